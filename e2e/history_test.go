package e2e_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryEmpty(t *testing.T) {
	env := newTestEnv(t)
	stdout, stderr, code := env.run("history")

	assert.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "No history.")
}

func TestHistoryRecordsScrubs(t *testing.T) {
	env := newTestEnv(t)
	_, stderr, code := env.runWithInput("a "+githubToken+" b "+awsKey, nil, "scrub")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	_, stderr, code = env.runWithInput("clean", nil, "scrub")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	stdout, stderr, code := env.run("history", "--format", "json")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "clean", records[0]["outcome"])
	assert.Equal(t, "redacted", records[1]["outcome"])
	assert.EqualValues(t, 2, records[1]["redactions"])
	assert.NotContains(t, stdout, githubToken)
}

func TestHistoryStats(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		_, stderr, code := env.runWithInput(awsKey, nil, "scrub")
		require.Equal(t, 0, code, "stderr: %s", stderr)
	}

	stdout, stderr, code := env.run("history", "stats")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Scrubs: 2")
	assert.Contains(t, stdout, "Secrets redacted: 2")
	assert.Contains(t, stdout, "aws_access_key")
}

func TestHistoryDisabled(t *testing.T) {
	env := newTestEnv(t)
	_, stderr, code := env.runWithInput(awsKey, map[string]string{"SECRETSHIELD_HISTORY": "false"}, "scrub")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	stdout, _, _ := env.run("history")
	assert.Contains(t, stdout, "No history.")
}

func TestGCDryRunKeepsRecent(t *testing.T) {
	env := newTestEnv(t)
	_, stderr, code := env.runWithInput(awsKey, nil, "scrub")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	stdout, stderr, code := env.run("gc", "--dry-run")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Would remove 0 history record(s), 0 audit file(s)")

	stdout, _, _ = env.run("history", "stats")
	assert.Contains(t, stdout, "Scrubs: 1")
}
