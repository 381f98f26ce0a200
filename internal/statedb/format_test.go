package statedb

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatScrubListEmpty(t *testing.T) {
	assert.Equal(t, "No history.\n", FormatScrubList(nil))
}

func TestFormatScrubList(t *testing.T) {
	out := FormatScrubList([]ScrubRecord{{
		Action:     "copy",
		Outcome:    "redacted",
		Redactions: 3,
		Types:      []string{"github_token", "github_token", "jwt_token"},
		Source:     "clipboard",
		CreatedAt:  "2026-03-01T10:00:00.000000000Z",
	}})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "OUTCOME")
	assert.Contains(t, lines[1], "2026-03-01T10:00:00")
	assert.NotContains(t, lines[1], ".000000000")
	assert.Contains(t, lines[1], "github_token,jwt_token")
	assert.Contains(t, lines[1], "clipboard")
}

func TestFormatStats(t *testing.T) {
	out := FormatStats("/tmp/h.db", Stats{
		Scrubs: 5, Redacted: 2, Cancelled: 1, Redactions: 4,
		ByType: []TypeCount{{Type: "aws_access_key", Count: 4}},
	})
	assert.Contains(t, out, "Database: /tmp/h.db")
	assert.Contains(t, out, "Scrubs: 5")
	assert.Contains(t, out, "Secrets redacted: 4")
	assert.Contains(t, out, "aws_access_key")
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatScrubListJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = FormatStatsJSON(Stats{Scrubs: 1})
	require.NoError(t, err)
	var s map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, float64(1), s["scrubs"])
	assert.Equal(t, []any{}, s["by_type"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
