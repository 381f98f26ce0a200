// Package clipboard reads and writes the system clipboard and runs the guard
// loop that keeps secrets off it.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/lyndonlyu/secretshield/internal/retry"
)

// ErrUnavailable is returned when no clipboard backend is present, e.g. a
// headless Linux box without xclip, xsel or wl-clipboard.
var ErrUnavailable = errors.New("clipboard: unavailable")

// Backend hooks, replaced in tests.
var (
	readAll     = clipboard.ReadAll
	writeAll    = clipboard.WriteAll
	unsupported = func() bool { return clipboard.Unsupported }
)

// Available reports whether a system clipboard backend was found.
func Available() bool {
	return !unsupported()
}

// permanent marks a missing backend as not worth retrying.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	if unsupported() || errors.Is(err, exec.ErrNotFound) {
		return retry.Permanent(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	return err
}

type Reader interface {
	ReadAll() (string, error)
}

type Writer interface {
	WriteAll(text string) error
}

type ReadWriter interface {
	Reader
	Writer
}

// System is the OS clipboard. Helper failures that look transient are
// retried with Retry, or retry.DefaultPolicy when it is zero.
type System struct {
	Retry retry.Policy
}

func (s System) policy() retry.Policy {
	if s.Retry.MaxAttempts == 0 {
		return retry.DefaultPolicy()
	}
	return s.Retry
}

func (s System) ReadAll() (string, error) {
	if unsupported() {
		return "", ErrUnavailable
	}
	text, err := s.policy().Execute(context.Background(), func() (string, error) {
		text, err := readAll()
		return text, permanent(err)
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return "", ErrUnavailable
		}
		return "", fmt.Errorf("clipboard: read: %w", err)
	}
	return text, nil
}

func (s System) WriteAll(text string) error {
	if unsupported() {
		return ErrUnavailable
	}
	_, err := s.policy().Execute(context.Background(), func() (string, error) {
		return "", permanent(writeAll(text))
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return ErrUnavailable
		}
		return fmt.Errorf("clipboard: write: %w", err)
	}
	return nil
}

// Memory is an in-process clipboard for tests and embedding.
type Memory struct {
	mu     sync.Mutex
	text   string
	writes int
}

func NewMemory(initial string) *Memory {
	return &Memory{text: initial}
}

func (m *Memory) ReadAll() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *Memory) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.writes++
	return nil
}

// Writes returns how many times WriteAll was called.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
