// Package source loads script files for the extractor.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// ErrUnreadable reports that a file's contents could not be obtained.
// Extraction does not run for such files.
var ErrUnreadable = errors.New("file unreadable")

// ResolveLink returns the absolute form of path with symbolic links
// resolved. When resolution fails the absolute path is returned unchanged.
func ResolveLink(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// ReadFile resolves path and reads it. Errors wrap ErrUnreadable.
func ReadFile(path string) ([]byte, error) {
	resolved := ResolveLink(path)
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}
	buf, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}
	return buf, nil
}

// Outline loads path and extracts its outline with x.
func Outline(x *nwscript.Extractor, path string) (*symbols.FileResult, error) {
	buf, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return x.Extract(buf), nil
}
