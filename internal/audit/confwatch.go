package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const confStateFile = "config-state.json"

// TrackedFile is a watched settings file and its last seen checksum.
type TrackedFile struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// ConfigChange is a settings file whose content differs from the last check.
type ConfigChange struct {
	File        string `json:"file"`
	OldChecksum string `json:"old_checksum"`
	NewChecksum string `json:"new_checksum"`
	Timestamp   string `json:"timestamp"`
}

// ConfigWatcher notices edits to settings files between runs. Allow and deny
// lists live in those files, so a change alters what gets redacted.
type ConfigWatcher struct {
	stateDir string
}

func NewConfigWatcher(stateDir string) *ConfigWatcher {
	return &ConfigWatcher{stateDir: stateDir}
}

// Check hashes each file, reports the ones that are new or changed since the
// last call and persists the new state. Missing files are skipped.
func (w *ConfigWatcher) Check(files []string) ([]ConfigChange, error) {
	existing, err := w.State()
	if err != nil {
		return nil, err
	}

	state := make(map[string]string, len(existing))
	for _, tf := range existing {
		state[tf.Path] = tf.Checksum
	}

	var changes []ConfigChange
	now := time.Now().UTC().Format(time.RFC3339)

	for _, file := range files {
		sum, err := fileChecksum(file)
		if err != nil {
			continue
		}
		if old, ok := state[file]; !ok || old != sum {
			changes = append(changes, ConfigChange{
				File:        file,
				OldChecksum: old,
				NewChecksum: sum,
				Timestamp:   now,
			})
		}
		state[file] = sum
	}

	updated := make([]TrackedFile, 0, len(state))
	for path, sum := range state {
		updated = append(updated, TrackedFile{Path: path, Checksum: sum})
	}
	sort.Slice(updated, func(i, j int) bool { return updated[i].Path < updated[j].Path })

	if err := w.saveState(updated); err != nil {
		return nil, err
	}
	return changes, nil
}

// State returns the persisted checksums, or nil when nothing was tracked yet.
func (w *ConfigWatcher) State() ([]TrackedFile, error) {
	data, err := os.ReadFile(filepath.Join(w.stateDir, confStateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []TrackedFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (w *ConfigWatcher) saveState(files []TrackedFile) error {
	if err := os.MkdirAll(w.stateDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.stateDir, confStateFile), data, 0o644)
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
