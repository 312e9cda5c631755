package mcpstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFileLifecycle(t *testing.T) {
	dir := t.TempDir()

	running, state, err := IsRunning(dir)
	require.NoError(t, err)
	assert.False(t, running)
	assert.Nil(t, state)

	require.NoError(t, CreateStateFile(dir, "1.2.3", []string{"scripts"}))
	assert.FileExists(t, StatePath(dir))

	running, state, err = IsRunning(dir)
	require.NoError(t, err)
	assert.True(t, running)
	require.NotNil(t, state)
	assert.Equal(t, os.Getpid(), state.PID)
	assert.Equal(t, "1.2.3", state.Version)
	assert.Equal(t, []string{"scripts"}, state.SourceRoots)
	assert.False(t, state.StartedAt.IsZero())

	require.NoError(t, RemoveStateFile(dir))
	assert.NoFileExists(t, StatePath(dir))
	require.NoError(t, RemoveStateFile(dir), "removing twice is fine")

	running, state, err = IsRunning(dir)
	require.NoError(t, err)
	assert.False(t, running)
	assert.Nil(t, state)
}

func TestStateFileWithDeadProcess(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`{"pid": 999999, "startedAt": "2026-02-09T10:00:00Z"}`)
	require.NoError(t, os.WriteFile(StatePath(dir), data, 0o644))

	running, state, err := IsRunning(dir)
	require.NoError(t, err)
	assert.False(t, running)
	assert.Nil(t, state)
	assert.NoFileExists(t, StatePath(dir), "stale state file should be removed")
}

func TestStateFileCorrupted(t *testing.T) {
	for name, content := range map[string]string{
		"garbage": "corrupted json{{{",
		"no pid":  `{"startedAt": "2026-02-09T10:00:00Z"}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(StatePath(dir), []byte(content), 0o644))

			running, state, err := IsRunning(dir)
			require.NoError(t, err)
			assert.False(t, running)
			assert.Nil(t, state)
			assert.NoFileExists(t, StatePath(dir))
		})
	}
}

func TestStatePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/test/dir", stateFileName), StatePath("/test/dir"))
}
