package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "indexer")
	log.Debug("hidden")
	log.Info("indexed", "files", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "component=indexer")
	assert.Contains(t, out, "files=3")
}

func TestFileWritesToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.log")
	log, closer := File(path, "mcp", FileOptions{Level: slog.LevelInfo, MaxSizeMB: 1})
	log.Info("server starting")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server starting")
}
