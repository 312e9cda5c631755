package indexer

import (
	"path/filepath"
	"testing"
)

func relPaths(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = filepath.ToSlash(c.RelPath)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiscover(t *testing.T) {
	root := writeRepo(t, map[string]string{
		".gitignore":           "build/\n*.bak.nss\n",
		"a.nss":                "",
		"scripts/b.nss":        "",
		"scripts/c.NSS":        "",
		"scripts/c.bak.nss":    "",
		"scripts/notes.txt":    "",
		"build/gen.nss":        "",
		"old/legacy/d.nss":     "",
		".hidden/e.nss":        "",
		".nwsoutline/f.nss":    "",
		"includes/inc_util.nh": "",
	})

	tests := []struct {
		name  string
		roots []string
		opts  DiscoverOptions
		want  []string
	}{
		{
			name:  "gitignore respected",
			roots: []string{"."},
			opts:  DiscoverOptions{RespectGitignore: true},
			want:  []string{"a.nss", "old/legacy/d.nss", "scripts/b.nss", "scripts/c.NSS"},
		},
		{
			name:  "gitignore off",
			roots: []string{"."},
			want:  []string{"a.nss", "build/gen.nss", "old/legacy/d.nss", "scripts/b.nss", "scripts/c.NSS", "scripts/c.bak.nss"},
		},
		{
			name:  "exclude glob",
			roots: []string{"."},
			opts:  DiscoverOptions{RespectGitignore: true, Exclude: []string{"old/**"}},
			want:  []string{"a.nss", "scripts/b.nss", "scripts/c.NSS"},
		},
		{
			name:  "extra extension",
			roots: []string{"includes"},
			opts:  DiscoverOptions{Extensions: []string{".nss", ".nh"}},
			want:  []string{"includes/inc_util.nh"},
		},
		{
			name:  "overlapping roots deduplicated",
			roots: []string{"scripts", "scripts"},
			opts:  DiscoverOptions{RespectGitignore: true},
			want:  []string{"scripts/b.nss", "scripts/c.NSS"},
		},
		{
			name:  "missing root",
			roots: []string{"nope"},
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discover(root, tt.roots, tt.opts)
			if err != nil {
				t.Fatalf("Discover: %v", err)
			}
			if !equalStrings(relPaths(got), tt.want) {
				t.Errorf("Discover = %v, want %v", relPaths(got), tt.want)
			}
		})
	}
}
