// Package repo locates the workspace root and its state directory.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StateDirName is the per-workspace directory holding config, index and logs.
const StateDirName = ".nwsoutline"

var skippedDirs = map[string]bool{
	".git":         true,
	StateDirName:   true,
	"node_modules": true,
	".idea":        true,
	".vscode":      true,
	"__MACOSX":     true,
}

// FindRoot walks up from the working directory looking for a state
// directory or a .git entry. Without either it returns the working directory.
func FindRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return FindRootFrom(cwd), nil
}

// FindRootFrom is FindRoot starting at dir.
func FindRootFrom(dir string) string {
	for cur := dir; ; {
		for _, marker := range []string{StateDirName, ".git"} {
			if _, err := os.Stat(filepath.Join(cur, marker)); err == nil {
				return cur
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

// StateDir returns the state directory for repoRoot.
func StateDir(repoRoot string) string {
	return filepath.Join(repoRoot, StateDirName)
}

// SkipDir reports whether a directory with this base name is never scanned:
// tool and VCS directories and any hidden directory.
func SkipDir(name string) bool {
	return skippedDirs[name] || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}
