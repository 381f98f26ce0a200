package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Anchor pins the chain hash at the end of one day's log. Keeping a copy of
// anchors elsewhere lets a truncated log be detected even when the remaining
// chain still verifies.
type Anchor struct {
	Date        string `json:"date"`
	ChainHash   string `json:"chain_hash"`
	RecordCount int    `json:"record_count"`
	CreatedAt   string `json:"created_at"`
}

// AnchorResult is the outcome of checking one anchor against the log.
type AnchorResult struct {
	Date    string `json:"date"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

const anchorsFile = "anchors.jsonl"

func LoadAnchors(auditDir string) ([]Anchor, error) {
	path := filepath.Join(auditDir, anchorsFile)
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
	var anchors []Anchor
	for _, line := range strings.Split(content, "\n") {
		var a Anchor
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			return nil, fmt.Errorf("parse anchor: %w", err)
		}
		anchors = append(anchors, a)
	}
	return anchors, nil
}

// WriteAnchor adds anchor, replacing any existing anchor for the same date.
func WriteAnchor(auditDir string, anchor Anchor) error {
	existing, err := LoadAnchors(auditDir)
	if err != nil {
		return err
	}
	found := false
	for i, a := range existing {
		if a.Date == anchor.Date {
			existing[i] = anchor
			found = true
			break
		}
	}
	if !found {
		existing = append(existing, anchor)
	}
	return writeAnchors(auditDir, existing)
}

func writeAnchors(auditDir string, anchors []Anchor) error {
	path := filepath.Join(auditDir, anchorsFile)
	tmp := path + ".tmp"
	var buf strings.Builder
	for _, a := range anchors {
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(tmp, []byte(buf.String()), 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// MaybeCreateAnchor creates or refreshes today's anchor. It returns true when
// an anchor was written.
func MaybeCreateAnchor(logger *Logger) (bool, error) {
	today := time.Now().Format("2006-01-02")
	hash, count, err := logger.LastHashForDate(today)
	if err != nil {
		return false, fmt.Errorf("read audit records: %w", err)
	}
	if count == 0 {
		return false, nil
	}
	existing, err := LoadAnchors(logger.Dir())
	if err != nil {
		return false, fmt.Errorf("load anchors: %w", err)
	}
	for _, a := range existing {
		if a.Date == today && a.ChainHash == hash {
			return false, nil
		}
	}
	anchor := Anchor{
		Date:        today,
		ChainHash:   hash,
		RecordCount: count,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := WriteAnchor(logger.Dir(), anchor); err != nil {
		return false, fmt.Errorf("write anchor: %w", err)
	}
	return true, nil
}

// VerifyAnchors compares every stored anchor with the log for its date. A day
// that gained records after anchoring is reported as a mismatch only when the
// anchored hash no longer appears at the anchored position.
func VerifyAnchors(logger *Logger) ([]AnchorResult, error) {
	anchors, err := LoadAnchors(logger.Dir())
	if err != nil {
		return nil, err
	}
	results := make([]AnchorResult, 0, len(anchors))
	for _, a := range anchors {
		records, err := logger.RecordsForDate(a.Date)
		if err != nil {
			return nil, err
		}
		res := AnchorResult{Date: a.Date, OK: true}
		switch {
		case len(records) < a.RecordCount:
			res.OK = false
			res.Message = fmt.Sprintf("expected at least %d records, found %d", a.RecordCount, len(records))
		case a.RecordCount > 0 && records[a.RecordCount-1].Hash != a.ChainHash:
			res.OK = false
			res.Message = "chain hash mismatch"
		}
		results = append(results, res)
	}
	return results, nil
}
