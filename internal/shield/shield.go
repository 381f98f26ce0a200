// Package shield runs the copy-with-shield flow: scrub the text, optionally
// show what changes and ask for confirmation, then put the result on the
// clipboard.
package shield

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/clipboard"
	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/rs/zerolog/log"
)

// ErrCancelled is returned when the user declines the redacted copy.
// Nothing is written to the clipboard in that case.
var ErrCancelled = errors.New("shield: cancelled by user")

// Presenter shows the user what a scrub changed.
type Presenter interface {
	ShowDiff(ctx context.Context, original, scrubbed string) error
}

// Confirmer asks whether count redactions may proceed.
type Confirmer interface {
	Confirm(ctx context.Context, count int) (bool, error)
}

// Event describes one finished copy for recorders. It carries the scrub
// result for counts and types; recorders must not persist secret values.
type Event struct {
	Action   string
	Source   string
	Outcome  string
	Result   scrub.Result
	Options  scrub.Options
	Duration time.Duration
	Err      error
}

// Recorder persists events, e.g. to the audit log or history database.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

type Service struct {
	Clip             clipboard.Writer
	Options          scrub.Options
	ShowDiff         bool
	ShowConfirmation bool
	// Timeout bounds the scan. Zero means no bound.
	Timeout   time.Duration
	Presenter Presenter
	Confirmer Confirmer
	Recorders []Recorder
}

// Copy scrubs text and writes it to the clipboard. Clean text is copied
// unchanged. When secrets are found the diff is shown if ShowDiff is set and
// confirmation is requested if ShowConfirmation is set; a declined
// confirmation returns ErrCancelled and copies nothing.
func (s *Service) Copy(ctx context.Context, source, text string) (scrub.Result, error) {
	start := time.Now()
	ev := Event{Action: audit.ActionCopy, Source: source, Options: s.Options}
	finish := func(outcome string, err error) {
		ev.Outcome, ev.Err, ev.Duration = outcome, err, time.Since(start)
		s.record(ctx, ev)
	}

	scanCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	res, err := scrub.ScrubContext(scanCtx, text, s.Options)
	if err != nil {
		finish(audit.OutcomeFailed, err)
		return scrub.Result{}, err
	}
	ev.Result = res

	if !res.Found {
		if err := s.Clip.WriteAll(text); err != nil {
			finish(audit.OutcomeFailed, err)
			return res, err
		}
		finish(audit.OutcomeClean, nil)
		return res, nil
	}

	if s.ShowDiff && s.Presenter != nil {
		if err := s.Presenter.ShowDiff(ctx, res.Original, res.Scrubbed); err != nil {
			finish(audit.OutcomeFailed, err)
			return res, fmt.Errorf("shield: show diff: %w", err)
		}
	}
	if s.ShowConfirmation && s.Confirmer != nil {
		ok, err := s.Confirmer.Confirm(ctx, len(res.Redactions))
		if err != nil {
			finish(audit.OutcomeFailed, err)
			return res, fmt.Errorf("shield: confirm: %w", err)
		}
		if !ok {
			finish(audit.OutcomeCancelled, nil)
			return res, ErrCancelled
		}
	}

	if err := s.Clip.WriteAll(res.Scrubbed); err != nil {
		finish(audit.OutcomeFailed, err)
		return res, err
	}
	finish(audit.OutcomeRedacted, nil)
	return res, nil
}

// CopyRaw writes text to the clipboard without scanning it. The bypass is
// still recorded.
func (s *Service) CopyRaw(ctx context.Context, source, text string) error {
	start := time.Now()
	err := s.Clip.WriteAll(text)
	outcome := audit.OutcomeBypassed
	if err != nil {
		outcome = audit.OutcomeFailed
	}
	s.record(ctx, Event{
		Action:   audit.ActionCopyRaw,
		Source:   source,
		Outcome:  outcome,
		Result:   scrub.Result{Original: text, Scrubbed: text, Redactions: []scrub.Redaction{}},
		Options:  s.Options,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

func (s *Service) record(ctx context.Context, ev Event) {
	for _, r := range s.Recorders {
		if err := r.Record(ctx, ev); err != nil {
			log.Warn().Err(err).Str("action", ev.Action).Msg("record copy event")
		}
	}
}
