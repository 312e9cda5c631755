package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
)

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.nss"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreadable))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadFileDirectory(t *testing.T) {
	_, err := ReadFile(t.TempDir())
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestResolveLinkFollowsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.nss")
	require.NoError(t, os.WriteFile(target, []byte("int A = 1;\n"), 0644))
	link := filepath.Join(dir, "link.nss")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, ResolveLink(link))

	buf, err := ReadFile(link)
	require.NoError(t, err)
	assert.Equal(t, "int A = 1;\n", string(buf))
}

func TestResolveLinkKeepsUnresolvablePath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.nss")
	assert.Equal(t, missing, ResolveLink(missing))
}

func TestOutline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.nss")
	require.NoError(t, os.WriteFile(path, []byte("void F(int a);\nint B = 2;\n"), 0644))

	x, err := nwscript.New(nwscript.Options{})
	require.NoError(t, err)
	res, err := Outline(x, path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FunctionCount)
	assert.Equal(t, 1, res.ConstantCount)
}
