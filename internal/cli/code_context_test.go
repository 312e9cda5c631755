package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/nwscript-tools/nwsoutline/internal/indexer"
	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
)

func TestMergeWindows(t *testing.T) {
	w := func(start, end int) codeWindow { return codeWindow{startLine: start, endLine: end} }

	tests := map[string]struct {
		in   []codeWindow
		want []codeWindow
	}{
		"none":         {[]codeWindow{}, nil},
		"one":          {[]codeWindow{w(1, 5)}, []codeWindow{w(1, 5)}},
		"overlap":      {[]codeWindow{w(1, 5), w(3, 8)}, []codeWindow{w(1, 8)}},
		"touching":     {[]codeWindow{w(1, 5), w(6, 10)}, []codeWindow{w(1, 10)}},
		"gap":          {[]codeWindow{w(1, 5), w(8, 10)}, []codeWindow{w(1, 5), w(8, 10)}},
		"chain":        {[]codeWindow{w(1, 3), w(2, 5), w(4, 8), w(10, 12)}, []codeWindow{w(1, 8), w(10, 12)}},
		"out of order": {[]codeWindow{w(10, 12), w(1, 3), w(5, 7)}, []codeWindow{w(1, 3), w(5, 7), w(10, 12)}},
		"nested":       {[]codeWindow{w(1, 20), w(4, 6)}, []codeWindow{w(1, 20)}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeWindows(tt.in))
		})
	}
}

func TestSafeJoinPath(t *testing.T) {
	root := t.TempDir()
	for rel, want := range map[string]string{
		"scripts/inc_dist.nss": filepath.Join(root, "scripts", "inc_dist.nss"),
		"..inc.nss":            filepath.Join(root, "..inc.nss"),
		"a/../b.nss":           filepath.Join(root, "b.nss"),
		".":                    root,
		"../../etc/passwd":     "",
		"..":                   "",
		"/etc/passwd":          "",
	} {
		assert.Equal(t, want, safeJoinPath(root, rel), "rel %q", rel)
	}
}

func TestSafeJoinPathFollowsLinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.nss")
	require.NoError(t, os.WriteFile(secret, []byte("int SECRET = 1;\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "inc", "real.nss"), []byte("int REAL = 1;\n"), 0o644))

	if err := os.Symlink(secret, filepath.Join(root, "leak.nss")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "outdir")))
	require.NoError(t, os.Symlink(filepath.Join(root, "inc", "real.nss"), filepath.Join(root, "alias.nss")))

	assert.Empty(t, safeJoinPath(root, "leak.nss"), "file link leaving the repository")
	assert.Empty(t, safeJoinPath(root, "outdir/secret.nss"), "directory link leaving the repository")
	assert.Equal(t, filepath.Join(root, "alias.nss"), safeJoinPath(root, "alias.nss"), "link staying inside")
	assert.Equal(t, filepath.Join(root, "missing.nss"), safeJoinPath(root, "missing.nss"))
}

const declSource = `// Returns the distance between two objects.
// Both must be in the same area.
float GetDistance(object oA,
                  object oB = OBJECT_SELF);

/* Creature object type.
 */
int OBJECT_TYPE_CREATURE = 1;
int UNDOCUMENTED = 2;
`

func TestDeclarationWindow(t *testing.T) {
	lines := splitLines(declSource)

	tests := []struct {
		name string
		line int
		want codeWindow
	}{
		{"line comments and multi-line prototype", 3, codeWindow{startLine: 1, endLine: 4}},
		{"block comment", 8, codeWindow{startLine: 6, endLine: 8}},
		{"no comment", 9, codeWindow{startLine: 9, endLine: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := declarationWindow(lines, tt.line); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	got := splitLines("a\r\nb\rc\n")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("unexpected lines %q", got)
	}
	if splitLines("") != nil {
		t.Error("expected no lines for empty text")
	}
}

func TestFetchDeclarationsCode(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "inc"), 0755); err != nil {
		t.Fatal(err)
	}
	wide, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(declSource))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "inc", "wide.nss"), wide, 0644); err != nil {
		t.Fatal(err)
	}

	x, err := nwscript.New(nwscript.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defs := []indexer.Definition{
		{Location: indexer.Location{Path: filepath.Join("inc", "wide.nss"), Line: 8}},
		{Location: indexer.Location{Path: filepath.Join("inc", "wide.nss"), Line: 9}},
		{Location: indexer.Location{Path: "missing.nss", Line: 1}},
		{Location: indexer.Location{Path: "../outside.nss", Line: 1}},
	}

	code := fetchDeclarationsCode(root, x, defs)
	for _, want := range []string{
		"// inc/wide.nss",
		"     6| /* Creature object type.",
		"     8| int OBJECT_TYPE_CREATURE = 1;",
		"     9| int UNDOCUMENTED = 2;",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("expected %q in:\n%s", want, code)
		}
	}
	if strings.Contains(code, "GetDistance") {
		t.Errorf("unexpected declaration in output:\n%s", code)
	}
	if strings.Contains(code, "missing.nss") || strings.Contains(code, "outside") {
		t.Errorf("unreadable files should be skipped:\n%s", code)
	}
}
