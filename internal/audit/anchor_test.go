package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	a := Anchor{
		Date:        "2026-02-19",
		ChainHash:   "abc123",
		RecordCount: 5,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	require.NoError(t, WriteAnchor(dir, a))
	assert.FileExists(t, filepath.Join(dir, "anchors.jsonl"))

	anchors, err := LoadAnchors(dir)
	require.NoError(t, err)
	require.Len(t, anchors, 1)
	assert.Equal(t, "2026-02-19", anchors[0].Date)
	assert.Equal(t, "abc123", anchors[0].ChainHash)
	assert.Equal(t, 5, anchors[0].RecordCount)
}

func TestAnchorUpdateSameDay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteAnchor(dir, Anchor{Date: "2026-02-19", ChainHash: "hash1", RecordCount: 3, CreatedAt: "t1"}))
	require.NoError(t, WriteAnchor(dir, Anchor{Date: "2026-02-19", ChainHash: "hash2", RecordCount: 5, CreatedAt: "t2"}))

	anchors, err := LoadAnchors(dir)
	require.NoError(t, err)
	require.Len(t, anchors, 1, "should replace, not append")
	assert.Equal(t, "hash2", anchors[0].ChainHash)
	assert.Equal(t, 5, anchors[0].RecordCount)
}

func TestAnchorMultipleDays(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteAnchor(dir, Anchor{Date: "2026-02-18", ChainHash: "hash18", RecordCount: 2, CreatedAt: "t1"}))
	require.NoError(t, WriteAnchor(dir, Anchor{Date: "2026-02-19", ChainHash: "hash19", RecordCount: 3, CreatedAt: "t2"}))

	anchors, err := LoadAnchors(dir)
	require.NoError(t, err)
	require.Len(t, anchors, 2)
	assert.Equal(t, "2026-02-18", anchors[0].Date)
	assert.Equal(t, "2026-02-19", anchors[1].Date)
}

func TestLoadAnchorsEmpty(t *testing.T) {
	anchors, err := LoadAnchors(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, anchors)
}

func TestAnchorFilePermissions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteAnchor(dir, Anchor{Date: "2026-02-19", ChainHash: "hash", RecordCount: 1, CreatedAt: "t1"}))
	info, err := os.Stat(filepath.Join(dir, "anchors.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestMaybeCreateAnchor(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	require.NoError(t, err)

	created, err := MaybeCreateAnchor(logger)
	require.NoError(t, err)
	assert.False(t, created, "no records, no anchor")

	require.NoError(t, logger.Log(Entry{Action: ActionCopy, Outcome: OutcomeClean}))
	created, err = MaybeCreateAnchor(logger)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = MaybeCreateAnchor(logger)
	require.NoError(t, err)
	assert.False(t, created, "unchanged chain needs no new anchor")

	results, err := VerifyAnchors(logger)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
}

func TestVerifyAnchorsAfterMoreRecords(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, logger.Log(Entry{Action: ActionCopy, Outcome: OutcomeClean}))
	_, err = MaybeCreateAnchor(logger)
	require.NoError(t, err)
	require.NoError(t, logger.Log(Entry{Action: ActionCopy, Outcome: OutcomeRedacted, Redactions: 1}))

	results, err := VerifyAnchors(logger)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
}

func TestVerifyAnchorsDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, logger.Log(Entry{Action: ActionGuard, Outcome: OutcomeRedacted, Redactions: i}))
	}
	_, err = MaybeCreateAnchor(logger)
	require.NoError(t, err)

	today := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, today+".jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines[:2], "\n")+"\n"), 0600))

	results, err := VerifyAnchors(logger)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].OK)

	// The shortened chain on its own still verifies.
	ok, _, err := logger.Verify()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyAnchorsDetectsRewrite(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	require.NoError(t, logger.Log(Entry{Action: ActionCopy, Outcome: OutcomeClean}))
	_, err = MaybeCreateAnchor(logger)
	require.NoError(t, err)

	today := time.Now().Format("2006-01-02")
	anchors, err := LoadAnchors(dir)
	require.NoError(t, err)
	a := anchors[0]
	a.ChainHash = "0000"
	require.NoError(t, WriteAnchor(dir, a))

	results, err := VerifyAnchors(logger)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, today, results[0].Date)
	assert.False(t, results[0].OK)
	assert.Equal(t, "chain hash mismatch", results[0].Message)
}

func TestAnchorsFileIsNotAuditLog(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	require.NoError(t, logger.Log(Entry{Action: ActionCopy, Outcome: OutcomeClean}))
	_, err = MaybeCreateAnchor(logger)
	require.NoError(t, err)

	records, err := logger.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	var a Anchor
	data, err := os.ReadFile(filepath.Join(dir, "anchors.jsonl"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &a))
	assert.Equal(t, records[0].Hash, a.ChainHash)
}
