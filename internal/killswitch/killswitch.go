// Package killswitch implements file-based switches that one secretshield
// process flips and another observes: STOP ends a running clipboard guard and
// PAUSE suspends its rewrites.
package killswitch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

const DefaultInterval = 200 * time.Millisecond

// File names of the switches inside the data directory.
const (
	StopFile  = "GUARD_STOP"
	PauseFile = "GUARD_PAUSE"
)

type Switch struct {
	path      string
	interval  time.Duration
	triggered atomic.Bool
}

func New(path string) *Switch {
	return &Switch{
		path:     path,
		interval: DefaultInterval,
	}
}

// Stop returns the switch that ends a running guard.
func Stop(dataDir string) *Switch {
	return New(filepath.Join(dataDir, StopFile))
}

// Pause returns the switch that suspends guard rewrites.
func Pause(dataDir string) *Switch {
	return New(filepath.Join(dataDir, PauseFile))
}

func (s *Switch) Path() string {
	return s.path
}

func (s *Switch) IsActive() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Reason returns the text given to Activate, or "" when inactive.
func (s *Switch) Reason() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// WasTriggered returns true if Watch cancelled its context because the
// switch file appeared. This is reliable even if the file is removed before
// checking.
func (s *Switch) WasTriggered() bool {
	return s.triggered.Load()
}

func (s *Switch) Activate(reason string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(reason), 0600)
}

func (s *Switch) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Watch returns a context that is cancelled once the switch file exists.
func (s *Switch) Watch(ctx context.Context) (context.Context, context.CancelFunc) {
	watchCtx, cancel := context.WithCancel(ctx)

	if s.IsActive() {
		s.triggered.Store(true)
		cancel()
		return watchCtx, cancel
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				if s.IsActive() {
					s.triggered.Store(true)
					cancel()
					return
				}
			}
		}
	}()

	return watchCtx, cancel
}
