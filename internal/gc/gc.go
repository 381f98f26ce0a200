// Package gc enforces retention on the history database and the audit log.
package gc

import (
	"fmt"
	"time"

	"github.com/lyndonlyu/secretshield/internal/audit"
)

// Policy defines retention rules. A zero or negative limit keeps everything.
type Policy struct {
	MaxHistoryDays int  // delete history rows older than N days (default: 30)
	MaxAuditDays   int  // keep audit logs for N days (default: 90)
	DryRun         bool // report without deleting
}

// Result tracks what was cleaned up.
type Result struct {
	HistoryRemoved    int64
	AuditFilesRemoved int
	AuditRecords      int
	BytesFreed        int64
}

// HistoryStore is the part of the history database gc needs.
type HistoryStore interface {
	CountBefore(cutoff time.Time) (int64, error)
	PruneBefore(cutoff time.Time) (int64, error)
}

// DefaultPolicy returns the default GC policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxHistoryDays: 30,
		MaxAuditDays:   90,
	}
}

// Run applies policy at now. Either store may be nil when it is disabled.
func Run(history HistoryStore, logger *audit.Logger, policy Policy, now time.Time) (*Result, error) {
	result := &Result{}

	if history != nil && policy.MaxHistoryDays > 0 {
		if err := cleanHistory(history, now.AddDate(0, 0, -policy.MaxHistoryDays), policy.DryRun, result); err != nil {
			return result, fmt.Errorf("history cleanup: %w", err)
		}
	}

	if logger != nil && policy.MaxAuditDays > 0 {
		cutoff := now.AddDate(0, 0, -policy.MaxAuditDays).Format("2006-01-02")
		res, err := logger.PruneBefore(cutoff, policy.DryRun)
		if err != nil {
			return result, fmt.Errorf("audit cleanup: %w", err)
		}
		result.AuditFilesRemoved = res.Files
		result.AuditRecords = res.Records
		result.BytesFreed += res.Bytes
	}

	return result, nil
}

func cleanHistory(h HistoryStore, cutoff time.Time, dryRun bool, result *Result) error {
	if dryRun {
		n, err := h.CountBefore(cutoff)
		result.HistoryRemoved = n
		return err
	}
	n, err := h.PruneBefore(cutoff)
	result.HistoryRemoved = n
	return err
}
