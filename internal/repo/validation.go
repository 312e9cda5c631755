package repo

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// contains reports whether child is parent or lies beneath it. Both paths
// must be clean and absolute.
func contains(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func absUnder(repoRoot, dir string) string {
	p := dir
	if !filepath.IsAbs(p) {
		p = filepath.Join(repoRoot, dir)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func displayName(dir string) string {
	if dir == "." {
		return "repository root"
	}
	return dir
}

// ValidateSelectedDirs rejects duplicate selections and selections nested
// inside one another, since either would index the same files twice.
func ValidateSelectedDirs(repoRoot string, selected []string) error {
	abs := make([]string, len(selected))
	for i, dir := range selected {
		abs[i] = absUnder(repoRoot, dir)
	}
	for i := range abs {
		for j := i + 1; j < len(abs); j++ {
			switch {
			case abs[i] == abs[j]:
				return fmt.Errorf("duplicate directory selected: %s", selected[j])
			case contains(abs[i], abs[j]) || contains(abs[j], abs[i]):
				return fmt.Errorf("directories cannot be parent/child of each other: %s and %s",
					displayName(selected[i]), displayName(selected[j]))
			}
		}
	}
	return nil
}

// Collapse drops every directory already covered by another entry, keeping
// the outermost ones in sorted order.
func Collapse(repoRoot string, dirs []string) []string {
	sorted := slices.Clone(dirs)
	slices.SortFunc(sorted, func(a, b string) int {
		return len(absUnder(repoRoot, a)) - len(absUnder(repoRoot, b))
	})
	var kept []string
	for _, d := range sorted {
		covered := slices.ContainsFunc(kept, func(k string) bool {
			return contains(absUnder(repoRoot, k), absUnder(repoRoot, d))
		})
		if !covered {
			kept = append(kept, d)
		}
	}
	slices.Sort(kept)
	return kept
}
