package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lyndonlyu/secretshield/internal/redact"
	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/lyndonlyu/secretshield/internal/secret"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SECRETSHIELD_STYLE.
const EnvPrefix = "SECRETSHIELD_"

type Config struct {
	RedactionStyle   string   `yaml:"redaction_style"`
	Sensitivity      string   `yaml:"sensitivity"`
	ShowDiff         bool     `yaml:"show_diff"`
	ShowConfirmation bool     `yaml:"show_confirmation"`
	AllowList        []string `yaml:"allow_list"`
	DenyList         []string `yaml:"deny_list"`
	InterceptAllCopy bool     `yaml:"intercept_all_copy"`

	LogLevel      string        `yaml:"log_level"`
	ScanTimeout   time.Duration `yaml:"scan_timeout"`
	GuardInterval time.Duration `yaml:"guard_interval"`
	History       bool          `yaml:"history"`
	Audit         bool          `yaml:"audit"`

	// Retention in days for gc; 0 keeps everything.
	HistoryRetentionDays int `yaml:"history_retention_days"`
	AuditRetentionDays   int `yaml:"audit_retention_days"`

	BaseDir string `yaml:"-"`
	File    string `yaml:"-"`
}

func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		RedactionStyle:   string(redact.Partial),
		Sensitivity:      string(secret.Balanced),
		ShowDiff:         false,
		ShowConfirmation: false,
		AllowList:        []string{},
		DenyList:         []string{},
		InterceptAllCopy: true,
		LogLevel:         "info",
		ScanTimeout:      10 * time.Second,
		GuardInterval:    500 * time.Millisecond,
		History:          true,
		Audit:            true,
		BaseDir:          filepath.Join(home, ".secretshield"),

		HistoryRetentionDays: 30,
		AuditRetentionDays:   90,
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file is
// not an error. Environment overrides are applied afterwards and the result
// is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		cfg.BaseDir = filepath.Dir(path)
		cfg.File = path
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// Ensure defaults for zero values
	if cfg.RedactionStyle == "" {
		cfg.RedactionStyle = string(redact.Partial)
	}
	if cfg.Sensitivity == "" {
		cfg.Sensitivity = string(secret.Balanced)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ScanTimeout == 0 {
		cfg.ScanTimeout = 10 * time.Second
	}
	if cfg.GuardInterval == 0 {
		cfg.GuardInterval = 500 * time.Millisecond
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from SECRETSHIELD_* variables. Lists are comma
// separated.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = splitList(v)
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	duration := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
		return nil
	}

	str("REDACTION_STYLE", &c.RedactionStyle)
	str("SENSITIVITY", &c.Sensitivity)
	str("LOG_LEVEL", &c.LogLevel)
	list("ALLOW_LIST", &c.AllowList)
	list("DENY_LIST", &c.DenyList)

	for name, dst := range map[string]*bool{
		"SHOW_DIFF":          &c.ShowDiff,
		"SHOW_CONFIRMATION":  &c.ShowConfirmation,
		"INTERCEPT_ALL_COPY": &c.InterceptAllCopy,
		"HISTORY":            &c.History,
		"AUDIT":              &c.Audit,
	} {
		if err := boolean(name, dst); err != nil {
			return err
		}
	}
	if err := integer("HISTORY_RETENTION_DAYS", &c.HistoryRetentionDays); err != nil {
		return err
	}
	if err := integer("AUDIT_RETENTION_DAYS", &c.AuditRetentionDays); err != nil {
		return err
	}
	if err := duration("SCAN_TIMEOUT", &c.ScanTimeout); err != nil {
		return err
	}
	return duration("GUARD_INTERVAL", &c.GuardInterval)
}

// Validate rejects unknown enum values with secret.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if _, err := redact.ParseStyle(c.RedactionStyle); err != nil {
		return fmt.Errorf("config: redaction_style: %w", err)
	}
	if _, err := secret.ParseSensitivity(c.Sensitivity); err != nil {
		return fmt.Errorf("config: sensitivity: %w", err)
	}
	if c.ScanTimeout < 0 {
		return fmt.Errorf("config: scan_timeout: %w: negative duration", secret.ErrInvalidConfiguration)
	}
	if c.GuardInterval <= 0 {
		return fmt.Errorf("config: guard_interval: %w: must be positive", secret.ErrInvalidConfiguration)
	}
	if c.HistoryRetentionDays < 0 || c.AuditRetentionDays < 0 {
		return fmt.Errorf("config: retention: %w: negative days", secret.ErrInvalidConfiguration)
	}
	return nil
}

// ScrubOptions converts the settings into scrub options. Call Validate
// first; unknown values are passed through and rejected by scrub.
func (c *Config) ScrubOptions() scrub.Options {
	style, _ := redact.ParseStyle(c.RedactionStyle)
	sens, _ := secret.ParseSensitivity(c.Sensitivity)
	if style == "" {
		style = redact.Style(c.RedactionStyle)
	}
	if sens == "" {
		sens = secret.Sensitivity(c.Sensitivity)
	}
	return scrub.Options{
		Style:       style,
		Sensitivity: sens,
		AllowList:   c.AllowList,
		DenyList:    c.DenyList,
	}
}

// Path returns the file the config was loaded from, or config.yaml inside
// BaseDir.
func (c *Config) Path() string {
	if c.File != "" {
		return c.File
	}
	return filepath.Join(c.BaseDir, "config.yaml")
}

func (c *Config) AuditDir() string {
	return filepath.Join(c.BaseDir, "audit")
}

func (c *Config) HistoryPath() string {
	return filepath.Join(c.BaseDir, "history.db")
}

func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.BaseDir,
		c.AuditDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the config as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
