package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/nwscript-tools/nwsoutline/internal/repo"
)

// DiscoverOptions filters the files returned by Discover.
type DiscoverOptions struct {
	Extensions       []string
	Exclude          []string // doublestar globs, repo-relative, forward slashes
	RespectGitignore bool
}

// Candidate is a discovered script file.
type Candidate struct {
	AbsPath string
	RelPath string // repo-relative, OS separators
	Lang    Lang
	Info    fs.FileInfo
}

// Discover walks the source roots under repoRoot in parallel and returns the
// script files they contain, sorted by relative path.
func Discover(repoRoot string, roots []string, opts DiscoverOptions) ([]Candidate, error) {
	langs := newLangMap(opts.Extensions)
	var gi *ignore.GitIgnore
	if opts.RespectGitignore {
		gi = loadGitignore(repoRoot)
	}

	var (
		mu    sync.Mutex
		found []Candidate
		seen  = map[string]bool{}
	)
	conf := fastwalk.Config{Follow: false}

	for _, root := range roots {
		absRoot := resolveRoot(repoRoot, root)
		err := fastwalk.Walk(&conf, absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			rel, relErr := filepath.Rel(repoRoot, path)
			if relErr != nil {
				return nil
			}
			slashRel := filepath.ToSlash(rel)

			if d.IsDir() {
				if path != absRoot && repo.SkipDir(d.Name()) {
					return filepath.SkipDir
				}
				if rel != "." && isExcluded(slashRel, true, gi, opts.Exclude) {
					return filepath.SkipDir
				}
				return nil
			}

			lang := langs.detect(path)
			if lang == LangUnknown || isExcluded(slashRel, false, gi, opts.Exclude) {
				return nil
			}
			info, err := d.Info()
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if !seen[rel] {
				seen[rel] = true
				found = append(found, Candidate{AbsPath: path, RelPath: rel, Lang: lang, Info: info})
			}
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("walk %s: %w", absRoot, err)
		}
	}

	slices.SortFunc(found, func(a, b Candidate) int { return strings.Compare(a.RelPath, b.RelPath) })
	return found, nil
}

func resolveRoot(repoRoot, root string) string {
	switch {
	case root == "." || root == "":
		return repoRoot
	case filepath.IsAbs(root):
		return root
	}
	return filepath.Join(repoRoot, root)
}

func isExcluded(slashRel string, isDir bool, gi *ignore.GitIgnore, globs []string) bool {
	if gi != nil {
		p := slashRel
		if isDir {
			p += "/"
		}
		if gi.MatchesPath(p) {
			return true
		}
	}
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, slashRel); ok {
			return true
		}
	}
	return false
}

// loadGitignore compiles the repository's top-level .gitignore, or returns
// nil when there is none.
func loadGitignore(repoRoot string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(repoRoot, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
