package clipboard

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/lyndonlyu/secretshield/internal/scrub"
	"github.com/rs/zerolog/log"
)

// scrubContext is replaced in tests.
var scrubContext = scrub.ScrubContext

// Guard polls a clipboard and replaces any content that contains secrets
// with its scrubbed form.
type Guard struct {
	Clip     ReadWriter
	Options  scrub.Options
	Interval time.Duration
	// Timeout bounds each scan. Zero means no bound. Content whose scan
	// times out is skipped until it changes.
	Timeout time.Duration
	// OnRewrite is called after the clipboard was rewritten.
	OnRewrite func(scrub.Result)
	// Paused, when set and true, suspends rewrites. Content seen while
	// paused is left alone after resuming.
	Paused func() bool

	last [sha256.Size]byte
	seen bool
}

// Check inspects the clipboard once. It reports whether the clipboard was
// rewritten. Content already inspected is skipped until it changes.
func (g *Guard) Check(ctx context.Context) (bool, error) {
	text, err := g.Clip.ReadAll()
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256([]byte(text))
	if g.seen && sum == g.last {
		return false, nil
	}
	if g.Paused != nil && g.Paused() {
		g.last, g.seen = sum, true
		return false, nil
	}

	scanCtx := ctx
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	res, err := scrubContext(scanCtx, text, g.Options)
	if err != nil {
		// Content that outlasts the scan budget is not retried until it
		// changes.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			g.last, g.seen = sum, true
		}
		return false, err
	}

	g.last, g.seen = sum, true
	if !res.Found {
		return false, nil
	}

	if err := g.Clip.WriteAll(res.Scrubbed); err != nil {
		return false, err
	}
	g.last = sha256.Sum256([]byte(res.Scrubbed))
	if g.OnRewrite != nil {
		g.OnRewrite(res)
	}
	return true, nil
}

// Run polls until ctx is cancelled. A failed poll is logged and retried on
// the next tick, except ErrUnavailable which ends the loop.
func (g *Guard) Run(ctx context.Context) error {
	if g.Interval <= 0 {
		return fmt.Errorf("clipboard: guard interval must be positive, got %s", g.Interval)
	}
	ticker := time.NewTicker(g.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", g.Interval).Str("style", string(g.Options.Style)).Msg("clipboard guard started")
	for {
		rewritten, err := g.Check(ctx)
		switch {
		case errors.Is(err, ErrUnavailable):
			return err
		case errors.Is(err, context.Canceled) && ctx.Err() != nil:
			return nil
		case err != nil:
			log.Warn().Err(err).Msg("clipboard check failed")
		case rewritten:
			log.Info().Msg("clipboard rewritten")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("clipboard guard stopped")
			return nil
		case <-ticker.C:
		}
	}
}
