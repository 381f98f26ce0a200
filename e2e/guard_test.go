package e2e_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardPauseAndResume(t *testing.T) {
	env := newTestEnv(t)
	pauseFile := filepath.Join(env.baseDir(), "GUARD_PAUSE")

	stdout, stderr, code := env.run("guard", "pause", "rotating keys")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Guard paused.")
	assert.Equal(t, "rotating keys", env.readFile(pauseFile))
	assert.Contains(t, env.auditLog(), `"outcome":"bypassed"`)

	stdout, stderr, code = env.run("guard", "resume")
	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Guard resumed.")
	_, err := os.Stat(pauseFile)
	assert.True(t, os.IsNotExist(err))
}

func TestGuardStopWithoutGuard(t *testing.T) {
	env := newTestEnv(t)
	stdout, stderr, code := env.run("guard", "stop")

	require.Equal(t, 0, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "No guard is running.")
}

func TestGuardRefusesWhenInterceptDisabled(t *testing.T) {
	env := newTestEnv(t)
	_, stderr, code := env.runWithInput("", map[string]string{"SECRETSHIELD_INTERCEPT_ALL_COPY": "false"}, "guard")

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "intercept_all_copy")
}
