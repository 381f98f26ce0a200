package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const prunedFile = "pruned.json"

// Pruned records where the chain starts after old days were removed. HeadHash
// is the hash of the last removed record, which the first kept record links
// back to.
type Pruned struct {
	Before   string `json:"before"`
	HeadHash string `json:"head_hash"`
}

// PruneResult counts what PruneBefore removed or would remove.
type PruneResult struct {
	Files   int
	Records int
	Bytes   int64
}

// LoadPruned returns the prune marker, or the zero value when the log was
// never pruned.
func LoadPruned(dir string) (Pruned, error) {
	data, err := os.ReadFile(filepath.Join(dir, prunedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Pruned{}, nil
		}
		return Pruned{}, err
	}
	var p Pruned
	if err := json.Unmarshal(data, &p); err != nil {
		return Pruned{}, err
	}
	return p, nil
}

// PruneBefore deletes daily logs dated before date (YYYY-MM-DD) together with
// their anchors. The chain stays verifiable because the hash of the last
// deleted record is kept in pruned.json.
func (l *Logger) PruneBefore(date string, dryRun bool) (PruneResult, error) {
	var res PruneResult
	files, err := auditFiles(l.dir)
	if err != nil {
		return res, err
	}
	sort.Strings(files)

	var old []string
	for _, f := range files {
		if strings.TrimSuffix(filepath.Base(f), ".jsonl") < date {
			old = append(old, f)
		}
	}
	if len(old) == 0 {
		return res, nil
	}

	head := ""
	for _, f := range old {
		records, err := l.RecordsForDate(strings.TrimSuffix(filepath.Base(f), ".jsonl"))
		if err != nil {
			return res, err
		}
		if len(records) > 0 {
			head = records[len(records)-1].Hash
		}
		res.Records += len(records)
		if info, err := os.Stat(f); err == nil {
			res.Bytes += info.Size()
		}
		res.Files++
	}
	if dryRun {
		return res, nil
	}

	// The marker goes first so an interrupted prune never leaves a chain
	// that starts at an unknown hash.
	if head != "" {
		data, err := json.Marshal(Pruned{Before: date, HeadHash: head})
		if err != nil {
			return res, err
		}
		if err := os.WriteFile(filepath.Join(l.dir, prunedFile), data, 0600); err != nil {
			return res, err
		}
	}
	for _, f := range old {
		if err := os.Remove(f); err != nil {
			return res, err
		}
	}
	return res, removeAnchorsBefore(l.dir, date)
}

func removeAnchorsBefore(dir, date string) error {
	anchors, err := LoadAnchors(dir)
	if err != nil || len(anchors) == 0 {
		return err
	}
	var kept []Anchor
	for _, a := range anchors {
		if a.Date >= date {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(anchors) {
		return nil
	}
	return writeAnchors(dir, kept)
}
