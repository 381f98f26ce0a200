package shield

import (
	"context"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/redact"
	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/lyndonlyu/secretshield/internal/secret"
	"github.com/lyndonlyu/secretshield/internal/statedb"
)

// AuditRecorder appends events to the hash-chained audit log.
type AuditRecorder struct {
	Logger *audit.Logger
}

func (a AuditRecorder) Record(_ context.Context, ev Event) error {
	types := make([]string, 0, len(ev.Result.Redactions))
	for _, t := range ev.Result.Types() {
		types = append(types, string(t))
	}
	entry := audit.Entry{
		Action:      ev.Action,
		Source:      ev.Source,
		Outcome:     ev.Outcome,
		Redactions:  len(ev.Result.Redactions),
		Types:       types,
		Style:       string(ev.Options.Style),
		Sensitivity: string(ev.Options.Sensitivity),
		Duration:    ev.Duration,
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	return a.Logger.Log(entry)
}

// HistoryRecorder stores event metadata in the history database.
type HistoryRecorder struct {
	DB *statedb.DB
}

func (h HistoryRecorder) Record(ctx context.Context, ev Event) error {
	types := make([]string, 0, len(ev.Result.Redactions))
	for _, r := range ev.Result.Redactions {
		types = append(types, string(r.Type))
	}
	_, err := h.DB.RecordScrub(ctx, statedb.ScrubRecord{
		Action:      ev.Action,
		Source:      Sanitize(ev.Source),
		Outcome:     ev.Outcome,
		Redactions:  len(ev.Result.Redactions),
		Types:       types,
		Style:       string(ev.Options.Style),
		Sensitivity: string(ev.Options.Sensitivity),
		Bytes:       len(ev.Result.Original),
	})
	return err
}

// Sanitize scrubs free text with full redaction at strict sensitivity. It
// is installed on the audit logger so error messages cannot leak a secret.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	res, err := scrub.Scrub(s, scrub.Options{Style: redact.Full, Sensitivity: secret.Strict})
	if err != nil {
		return redact.FullText
	}
	return res.Scrubbed
}
