package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/lyndonlyu/secretshield/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	configPath string
	logLevel   string
	verbose    bool
	jsonLog    bool

	cfg *config.Config
)

// errSecretsFound makes scan --fail exit non-zero without printing usage.
var errSecretsFound = errors.New("secrets found")

var rootCmd = &cobra.Command{
	Use:           "secretshield",
	Short:         "Detect and redact secrets before text leaves your machine",
	Long:          "SecretShield scans text for API keys, tokens, private keys and connection strings and replaces them before the text is copied, pasted or shared.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(os.Stderr, logLevel, verbose, jsonLog); err != nil {
			return err
		}
		return loadConfig(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("secretshield v" + version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default ~/.secretshield/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging (same as --log-level debug)")
	pf.BoolVar(&jsonLog, "json-log", false, "Log as JSON instead of console text")

	rootCmd.AddCommand(
		versionCmd,
		scrubCmd,
		scanCmd,
		copyCmd,
		guardCmd,
		configCmd,
		historyCmd,
		auditCmd,
		patternsCmd,
		gcCmd,
		doctorCmd,
		metricsCmd,
	)
}

// loadConfig reads .env files, the config file and environment overrides.
// The log level from the config applies only when no flag set one.
func loadConfig(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		home, err := homeDir()
		if err != nil {
			return err
		}
		path = defaultConfigPath(home)
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = c

	if logLevel == "" && !verbose {
		if err := setLevel(cfg.LogLevel); err != nil {
			return err
		}
	}
	log.Debug().Str("config", path).Str("style", cfg.RedactionStyle).Str("sensitivity", cfg.Sensitivity).Msg("config loaded")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSecretsFound) {
			fmt.Fprintln(os.Stderr, styleError.Render("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}
