// Package audit keeps a tamper-evident log of clipboard decisions. Each
// record carries the SHA-256 hash of the previous one, so editing or removing
// a line breaks the chain.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lyndonlyu/secretshield/internal/filelock"
)

// lockWait bounds how long Log waits for another process to finish writing.
const lockWait = 5 * time.Second

// Actions recorded by the CLI.
const (
	ActionCopy      = "copy"
	ActionCopyRaw   = "copy_raw"
	ActionGuard     = "guard"
	ActionScrub     = "scrub"
	ActionScan      = "scan"
	ActionConfigMod = "config_changed"
)

// Outcomes of an action.
const (
	OutcomeClean     = "clean"
	OutcomeRedacted  = "redacted"
	OutcomeCancelled = "cancelled"
	OutcomeBypassed  = "bypassed"
	OutcomeFailed    = "failed"
)

// dateFileRe matches audit log files named YYYY-MM-DD.jsonl
var dateFileRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.jsonl$`)

// auditFiles returns only date-named .jsonl files from the audit directory,
// excluding non-audit files like anchors.jsonl.
func auditFiles(dir string) ([]string, error) {
	all, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
	if err != nil {
		return nil, err
	}
	var filtered []string
	for _, f := range all {
		if dateFileRe.MatchString(filepath.Base(f)) {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

// Entry is what callers hand to Log. Secret values never belong here; Types
// and Redactions describe what was found without revealing it.
type Entry struct {
	Action      string
	Source      string
	Outcome     string
	Redactions  int
	Types       []string
	Style       string
	Sensitivity string
	Duration    time.Duration
	Error       string
}

type Record struct {
	Timestamp   string   `json:"timestamp"`
	ActionID    string   `json:"action_id"`
	Action      string   `json:"action"`
	Source      string   `json:"source,omitempty"`
	Outcome     string   `json:"outcome"`
	Redactions  int      `json:"redactions"`
	Types       []string `json:"types,omitempty"`
	Style       string   `json:"style,omitempty"`
	Sensitivity string   `json:"sensitivity,omitempty"`
	DurationMs  int64    `json:"duration_ms"`
	Error       string   `json:"error,omitempty"`
	PrevHash    string   `json:"prev_hash,omitempty"`
	Hash        string   `json:"hash,omitempty"`
}

type Logger struct {
	dir      string
	lastHash string
	sanitize func(string) string
}

func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	l := &Logger{dir: dir}
	l.initLastHash()
	return l, nil
}

func (l *Logger) initLastHash() {
	l.lastHash = ""
	files, err := auditFiles(l.dir)
	if err != nil || len(files) == 0 {
		return
	}
	sort.Strings(files) // ascending date order
	// Read from the newest file
	path := files[len(files)-1]
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return
	}
	lines := strings.Split(content, "\n")
	lastLine := lines[len(lines)-1]
	var r Record
	if err := json.Unmarshal([]byte(lastLine), &r); err != nil {
		return
	}
	l.lastHash = r.Hash
}

// SetSanitizer installs a function applied to free-text fields (Source and
// Error) before a record is hashed and written.
func (l *Logger) SetSanitizer(fn func(string) string) {
	l.sanitize = fn
}

func computeHash(r Record) string {
	saved := r.Hash
	r.Hash = ""
	data, _ := json.Marshal(r)
	r.Hash = saved
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Log appends entry to today's file. Appends are serialised across processes
// with a file lock, and the chain head is re-read under that lock so records
// written by a concurrent guard or copy stay linked.
func (l *Logger) Log(entry Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockWait)
	defer cancel()
	lock, err := filelock.Acquire(ctx, filepath.Join(l.dir, ".lock"), 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	defer lock.Release()
	l.initLastHash()

	record := Record{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		ActionID:    uuid.New().String(),
		Action:      entry.Action,
		Source:      entry.Source,
		Outcome:     entry.Outcome,
		Redactions:  entry.Redactions,
		Types:       entry.Types,
		Style:       entry.Style,
		Sensitivity: entry.Sensitivity,
		DurationMs:  entry.Duration.Milliseconds(),
		Error:       entry.Error,
		PrevHash:    l.lastHash,
	}
	if l.sanitize != nil {
		record.Source = l.sanitize(record.Source)
		record.Error = l.sanitize(record.Error)
	}
	record.Hash = computeHash(record)

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	filename := time.Now().Format("2006-01-02") + ".jsonl"
	path := filepath.Join(l.dir, filename)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.Write(data); err != nil {
		return err
	}
	l.lastHash = record.Hash
	return nil
}

// Recent returns up to n records, newest first.
func (l *Logger) Recent(n int) ([]Record, error) {
	files, err := auditFiles(l.dir)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	var records []Record
	for _, f := range files {
		if len(records) >= n {
			break
		}
		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if len(records) >= n {
				break
			}
			var r Record
			if err := json.Unmarshal([]byte(lines[i]), &r); err != nil {
				continue
			}
			records = append(records, r)
		}
	}
	return records, nil
}

// Verify walks every record in order. It returns false and the index of the
// first record whose hash or back-link is wrong. After a prune the first
// record must link to the recorded head hash.
func (l *Logger) Verify() (bool, int, error) {
	files, err := auditFiles(l.dir)
	if err != nil {
		return false, -1, err
	}
	sort.Strings(files) // ascending date order

	pruned, err := LoadPruned(l.dir)
	if err != nil {
		return false, -1, fmt.Errorf("audit: read prune marker: %w", err)
	}
	expectedPrevHash := pruned.HeadHash
	index := 0

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return false, -1, err
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		for _, line := range strings.Split(content, "\n") {
			var r Record
			if err := json.Unmarshal([]byte(line), &r); err != nil {
				return false, -1, fmt.Errorf("audit: parse record %d: %w", index, err)
			}
			if r.Hash == "" || computeHash(r) != r.Hash {
				return false, index, nil
			}
			if r.PrevHash != expectedPrevHash {
				return false, index, nil
			}
			expectedPrevHash = r.Hash
			index++
		}
	}

	return true, -1, nil
}

func (l *Logger) RecordsForDate(date string) ([]Record, error) {
	path := filepath.Join(l.dir, date+".jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, nil
	}
	var records []Record
	for _, line := range strings.Split(content, "\n") {
		var r Record
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("parse audit record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (l *Logger) LastHashForDate(date string) (string, int, error) {
	records, err := l.RecordsForDate(date)
	if err != nil {
		return "", 0, err
	}
	if len(records) == 0 {
		return "", 0, nil
	}
	return records[len(records)-1].Hash, len(records), nil
}

func (l *Logger) Dir() string {
	return l.dir
}
