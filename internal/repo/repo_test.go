package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
}

func TestFindRootFrom(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, deep, FindRootFrom(deep), "no marker falls back to the start dir")

	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	assert.Equal(t, root, FindRootFrom(deep))

	require.NoError(t, os.Mkdir(StateDir(filepath.Join(root, "a")), 0o755))
	assert.Equal(t, filepath.Join(root, "a"), FindRootFrom(deep), "nearest marker wins")
}

func TestSkipDir(t *testing.T) {
	for _, name := range []string{".git", ".nwsoutline", "node_modules", ".hidden", "__MACOSX"} {
		assert.True(t, SkipDir(name), name)
	}
	for _, name := range []string{"scripts", "src", ".", "module_1"} {
		assert.False(t, SkipDir(name), name)
	}
}

func TestScriptDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"top.nss",
		"scripts/a.nss",
		"scripts/inc/b.NSS",
		"docs/readme.md",
		".hidden/c.nss",
		"node_modules/d.nss",
		"empty/sub/e.txt",
	)

	dirs, err := ScriptDirs(root, []string{".nss"})
	require.NoError(t, err)
	assert.Equal(t, []string{".", "scripts", filepath.Join("scripts", "inc")}, dirs)
}

func TestValidateSelectedDirs(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name    string
		dirs    []string
		wantErr string
	}{
		{"single root", []string{"."}, ""},
		{"siblings", []string{"scripts", "includes"}, ""},
		{"duplicate", []string{"scripts", "scripts/"}, "duplicate"},
		{"nested", []string{"scripts", "scripts/inc"}, "parent/child"},
		{"root and child", []string{".", "scripts"}, "repository root"},
		{"prefix is not parent", []string{"scripts", "scripts2"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSelectedDirs(root, tt.dirs)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCollapse(t *testing.T) {
	root := t.TempDir()
	got := Collapse(root, []string{"scripts/inc", "other", "scripts", "scripts/x/y"})
	assert.Equal(t, []string{"other", "scripts"}, got)
	assert.Equal(t, []string{"."}, Collapse(root, []string{"a", ".", "b"}))
}
