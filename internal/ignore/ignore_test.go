package ignore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIgnore(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".gitignore")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestIsIgnored(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{"", false},
		{".nwsoutline/\n", true},
		{".nwsoutline\n", true},
		{"**/.nwsoutline/\n", true},
		{"# .nwsoutline/\n", false},
		{"cmd/.nwsoutline\n", false},
		{"nwsoutline/\n", false},
		{".nwsoutline/\n!.nwsoutline/index.db\n", false},
	}
	for _, tt := range tests {
		got, err := IsIgnored(writeIgnore(t, tt.content))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "content %q", tt.content)
	}
}

func TestAddEntryIsIdempotent(t *testing.T) {
	p := writeIgnore(t, "node_modules/")
	require.NoError(t, AddEntry(p))
	require.NoError(t, AddEntry(p))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "node_modules/\n\n# nwsoutline\n.nwsoutline/\n", string(data))
	assert.Equal(t, 1, strings.Count(string(data), ".nwsoutline/"))
}

func TestHandleIgnoreFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("bin/\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".dockerignore"), []byte(".nwsoutline/\n"), 0644))

	var asked []string
	confirm := func(tool, _ string) (bool, error) {
		asked = append(asked, tool)
		return true, nil
	}
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, HandleIgnoreFiles(root, cmd, confirm))
	assert.Equal(t, []string{"Git"}, asked, "docker already covered, should not prompt")
	assert.Contains(t, out.String(), "Added .nwsoutline/ to Git")

	ok, err := IsIgnored(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandleIgnoreFilesDeclined(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("bin/\n"), 0644))

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, HandleIgnoreFiles(root, cmd, func(string, string) (bool, error) { return false, nil }))
	assert.Contains(t, out.String(), "Skipped adding to Git")

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "bin/\n", string(data))
}
