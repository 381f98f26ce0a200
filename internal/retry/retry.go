// Package retry re-runs operations that fail for transient reasons, such as a
// clipboard helper that exits while the display server is busy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrorKind classifies an error for retry decisions.
type ErrorKind int

const (
	Retriable    ErrorKind = iota // transient, worth retrying
	NonRetriable                  // permanent, fail immediately
	Unknown                       // unclassified, treated as retriable
)

func (k ErrorKind) String() string {
	switch k {
	case Retriable:
		return "RETRIABLE"
	case NonRetriable:
		return "NON_RETRIABLE"
	default:
		return "UNKNOWN"
	}
}

// nonRetriableKeywords in an error message indicate permanent failures.
var nonRetriableKeywords = []string{
	"permission denied",
	"invalid",
	"not found",
	"no such file",
}

// retriableKeywords in an error message indicate transient failures.
var retriableKeywords = []string{
	"timeout",
	"timed out",
	"resource temporarily unavailable",
	"connection",
	"temporary",
	"busy",
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

// Classify determines whether err is worth retrying from its type, the exit
// code of a failed helper process and the message text.
func Classify(err error) ErrorKind {
	if err == nil {
		return Retriable
	}
	var p permanentError
	if errors.As(err, &p) {
		return NonRetriable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Retriable
	}
	if errors.Is(err, context.Canceled) {
		return NonRetriable
	}

	// High exit codes (2+) are usage errors of the helper.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 2 {
		return NonRetriable
	}

	lower := strings.ToLower(err.Error())
	for _, kw := range nonRetriableKeywords {
		if strings.Contains(lower, kw) {
			return NonRetriable
		}
	}
	for _, kw := range retriableKeywords {
		if strings.Contains(lower, kw) {
			return Retriable
		}
	}
	return Unknown
}

// Policy is an exponential backoff schedule.
type Policy struct {
	MaxAttempts int
	InitDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultPolicy suits clipboard helpers, which either work within a few
// hundred milliseconds or not at all.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		InitDelay:   50 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    500 * time.Millisecond,
	}
}

// Execute calls fn until it succeeds, returns a NonRetriable error, the
// attempts run out or ctx is done.
func (p Policy) Execute(ctx context.Context, fn func() (string, error)) (string, error) {
	attempts := max(p.MaxAttempts, 1)
	delay := p.InitDelay
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if Classify(err) == NonRetriable {
			return "", err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
