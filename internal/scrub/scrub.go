// Package scrub composes detection, policy filtering and redaction into a
// single rewrite of the input text.
package scrub

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/lyndonlyu/secretshield/internal/policy"
	"github.com/lyndonlyu/secretshield/internal/redact"
	"github.com/lyndonlyu/secretshield/internal/secret"
)

// Options selects how text is scrubbed.
type Options struct {
	Style       redact.Style
	Sensitivity secret.Sensitivity
	AllowList   []string
	DenyList    []string
}

// DefaultOptions returns partial redaction at balanced sensitivity with empty
// allow and deny lists.
func DefaultOptions() Options {
	return Options{
		Style:       redact.Partial,
		Sensitivity: secret.Balanced,
	}
}

// Redaction records one replaced secret. Start and End are offsets into the
// original text.
type Redaction struct {
	Original    string      `json:"original"`
	Replacement string      `json:"replacement"`
	Type        secret.Type `json:"type"`
	Start       int         `json:"start"`
	End         int         `json:"end"`
}

// Result is the outcome of a scrub. When Redactions is empty, Scrubbed equals
// Original and Found is false.
type Result struct {
	Original   string      `json:"original"`
	Scrubbed   string      `json:"scrubbed"`
	Redactions []Redaction `json:"redactions"`
	Found      bool        `json:"found"`
}

// Types returns the distinct secret types redacted, in first-seen order.
func (r Result) Types() []secret.Type {
	seen := make(map[secret.Type]bool)
	var out []secret.Type
	for _, rd := range r.Redactions {
		if !seen[rd.Type] {
			seen[rd.Type] = true
			out = append(out, rd.Type)
		}
	}
	return out
}

// Validate reports ErrInvalidConfiguration for an unknown style or
// sensitivity.
func (o Options) Validate() error {
	if !slices.Contains(redact.Styles(), o.Style) {
		return fmt.Errorf("%w: unknown redaction style %q", secret.ErrInvalidConfiguration, string(o.Style))
	}
	switch o.Sensitivity {
	case secret.Strict, secret.Balanced, secret.Lenient:
		return nil
	}
	return fmt.Errorf("%w: unknown sensitivity %q", secret.ErrInvalidConfiguration, string(o.Sensitivity))
}

// Plan returns the occurrences Scrub would replace: detected at the chosen
// sensitivity, approved by the allow and deny lists, and cleared of overlaps.
// A weaker occurrence wrapping an allowed one is dropped too, unless it is
// deny-listed itself.
func Plan(text string, opts Options) ([]secret.Detected, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	found, err := secret.Detect(text, opts.Sensitivity)
	if err != nil {
		return nil, err
	}

	p := policy.New(opts.AllowList, opts.DenyList)
	var toRedact, allowed []secret.Detected
	for _, d := range found {
		if p.ShouldRedact(d.Value) {
			toRedact = append(toRedact, d)
		} else {
			allowed = append(allowed, d)
		}
	}
	toRedact = slices.DeleteFunc(toRedact, func(d secret.Detected) bool {
		return !p.Denies(d.Value) && wrapsAllowed(d, allowed)
	})
	return secret.ResolveOverlaps(toRedact), nil
}

// wrapsAllowed reports whether d contains an allowed occurrence that would
// have won the overlap against it, e.g. a generic key=value match around an
// allowed AWS key.
func wrapsAllowed(d secret.Detected, allowed []secret.Detected) bool {
	for _, a := range allowed {
		if a.Start >= d.Start && a.End <= d.End && a.Confidence > d.Confidence {
			return true
		}
	}
	return false
}

// Scrub detects secrets in text and returns a copy with every secret that
// the allow and deny lists mark for redaction replaced.
func Scrub(text string, opts Options) (Result, error) {
	toRedact, err := Plan(text, opts)
	if err != nil {
		return Result{}, err
	}

	if len(toRedact) == 0 {
		return Result{Original: text, Scrubbed: text, Redactions: []Redaction{}}, nil
	}

	scrubbed, redactions, err := rewrite(text, toRedact, opts.Style)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Original:   text,
		Scrubbed:   scrubbed,
		Redactions: redactions,
		Found:      true,
	}, nil
}

// rewrite replaces each occurrence left to right. offset is the cumulative
// length change from earlier replacements, so start+offset is where the
// occurrence sits in the output built so far. secrets must be sorted by
// start and must not overlap.
func rewrite(text string, secrets []secret.Detected, style redact.Style) (string, []Redaction, error) {
	var b strings.Builder
	b.Grow(len(text))

	redactions := make([]Redaction, 0, len(secrets))
	offset := 0
	prev := 0
	for _, d := range secrets {
		replacement, err := redact.Replacement(d.Value, style, d.Type)
		if err != nil {
			return "", nil, err
		}

		if d.Start < prev {
			return "", nil, fmt.Errorf("scrub: overlapping occurrences at %d", d.Start)
		}
		b.WriteString(text[prev:d.Start])
		if b.Len() != d.Start+offset {
			return "", nil, fmt.Errorf("scrub: offset drift at %d", d.Start)
		}
		b.WriteString(replacement)
		offset += len(replacement) - len(d.Value)
		prev = d.End

		redactions = append(redactions, Redaction{
			Original:    d.Value,
			Replacement: replacement,
			Type:        d.Type,
			Start:       d.Start,
			End:         d.End,
		})
	}
	b.WriteString(text[prev:])
	return b.String(), redactions, nil
}

// ScrubContext runs Scrub and gives up when ctx is done first. The scan
// goroutine is left to finish in the background; its result is discarded.
func ScrubContext(ctx context.Context, text string, opts Options) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := Scrub(text, opts)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("scrub: %w", ctx.Err())
	case o := <-done:
		return o.res, o.err
	}
}
