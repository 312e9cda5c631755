package indexer

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/nwscript-tools/nwsoutline/internal/logging"
	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
	"github.com/nwscript-tools/nwsoutline/internal/source"
	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// Options configures an Indexer.
type Options struct {
	Discover  DiscoverOptions
	Workers   int // 0 means GOMAXPROCS
	Extractor nwscript.Options
	Logger    *slog.Logger
}

// Progress is called after each file of a full index is stored or fails.
type Progress func(done, total int, relPath string)

// Indexer orchestrates file discovery, hashing, extraction and DB storage.
type Indexer struct {
	Store    *Store
	RepoRoot string

	// OnProgress, when set, receives per-file progress during FullIndex.
	OnProgress Progress

	opts     Options
	discover func(repoRoot string, roots []string, opts DiscoverOptions) ([]Candidate, error)
	x        *nwscript.Extractor
	langs    langMap
	parsers  parserRegistry
	log      *slog.Logger
}

// New creates an Indexer for the given DB and repo root and registers the
// project.
func New(d *sql.DB, repoRoot string, opts Options) (*Indexer, error) {
	x, err := nwscript.New(opts.Extractor)
	if err != nil {
		return nil, fmt.Errorf("configure extractor: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	idx := &Indexer{
		Store:    &Store{DB: d},
		RepoRoot: repoRoot,
		opts:     opts,
		discover: Discover,
		x:        x,
		langs:    newLangMap(opts.Discover.Extensions),
		parsers:  newParserRegistry(x),
		log:      log,
	}
	if err := idx.Store.EnsureProject(repoRoot); err != nil {
		return nil, fmt.Errorf("ensure project: %w", err)
	}
	return idx, nil
}

// Extractor returns the extractor files are parsed with.
func (idx *Indexer) Extractor() *nwscript.Extractor { return idx.x }

func (idx *Indexer) workers(items int) int {
	n := idx.opts.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(1, min(n, items))
}

// FullIndex wipes the project's outline data and re-indexes every file
// under sourceRoots. Discovery runs before anything is deleted, so a failed
// walk leaves the previous index in place. Extraction is parallelised
// across a bounded worker pool while storage stays on one goroutine.
// Cancelling ctx stops new files from being started; the partial run is
// recorded and ctx.Err() returned.
func (idx *Indexer) FullIndex(ctx context.Context, sourceRoots []string) (*IndexStats, error) {
	start := time.Now()
	if err := idx.Store.EnsureSourceRoots(sourceRoots); err != nil {
		return nil, fmt.Errorf("ensure source roots: %w", err)
	}
	runID, err := idx.Store.BeginRun("full", start)
	if err != nil {
		return nil, err
	}
	items, err := idx.discover(idx.RepoRoot, sourceRoots, idx.opts.Discover)
	if err != nil {
		return nil, idx.finishFailedRun(runID, start, fmt.Errorf("discover: %w", err))
	}
	if err := idx.Store.DeleteAllFiles(); err != nil {
		return nil, idx.finishFailedRun(runID, start, fmt.Errorf("delete all files: %w", err))
	}
	idx.log.Info("full index started", "run", runID, "files", len(items))

	type parseResult struct {
		item Candidate
		sha  string
		size int64
		fr   *symbols.FileResult
		err  error
	}

	numWorkers := idx.workers(len(items))
	results := make(chan parseResult, numWorkers*2)
	work := make(chan Candidate, numWorkers*2)

	var parseWg sync.WaitGroup
	for range numWorkers {
		parseWg.Add(1)
		go func() {
			defer parseWg.Done()
			for item := range work {
				pr := parseResult{item: item}
				src, err := source.ReadFile(item.AbsPath)
				if err != nil {
					pr.err = err
					results <- pr
					continue
				}
				pr.sha = sha256Bytes(src)
				pr.size = int64(len(src))
				if p := idx.parsers.get(item.Lang); p != nil {
					pr.fr, pr.err = p.Parse(item.AbsPath, src)
				}
				results <- pr
			}
		}()
	}

	go func() {
		defer func() {
			close(work)
			parseWg.Wait()
			close(results)
		}()
		for _, item := range items {
			select {
			case work <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	stats := &IndexStats{RunID: runID}
	done := 0
	for pr := range results {
		done++
		switch {
		case pr.err != nil:
			stats.Errors++
			idx.log.Warn("index file failed", "path", pr.item.RelPath, "error", pr.err)
		case pr.fr != nil:
			if err := idx.Store.UpsertFile(pr.item.RelPath, pr.item.Lang, pr.sha,
				pr.size, pr.item.Info.ModTime().Unix(), pr.fr); err != nil {
				stats.Errors++
				idx.log.Warn("store file failed", "path", pr.item.RelPath, "error", err)
				break
			}
			stats.Indexed++
			stats.Symbols += len(pr.fr.Members)
			stats.Bytes += pr.size
		}
		if idx.OnProgress != nil {
			idx.OnProgress(done, len(items), pr.item.RelPath)
		}
	}

	stats.Duration = time.Since(start)
	if err := idx.Store.FinishRun(runID, time.Now(), stats); err != nil {
		return stats, err
	}
	idx.log.Info("full index finished", "run", runID, "stats", stats.String())
	return stats, ctx.Err()
}

// Reconcile brings the index in line with the files on disk:
//   - new and changed files (by SHA) are re-indexed
//   - entries for deleted files are removed
func (idx *Indexer) Reconcile(ctx context.Context, sourceRoots []string) (*IndexStats, error) {
	start := time.Now()
	runID, err := idx.Store.BeginRun("reconcile", start)
	if err != nil {
		return nil, err
	}

	existing, err := idx.Store.AllFiles()
	if err != nil {
		return nil, idx.finishFailedRun(runID, start, fmt.Errorf("load existing files: %w", err))
	}
	items, err := idx.discover(idx.RepoRoot, sourceRoots, idx.opts.Discover)
	if err != nil {
		return nil, idx.finishFailedRun(runID, start, fmt.Errorf("discover: %w", err))
	}

	seen := make(map[string]bool, len(items))
	stats := &IndexStats{RunID: runID}
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		seen[item.RelPath] = true

		sha, err := fileSHA256(item.AbsPath)
		if err != nil {
			stats.Errors++
			continue
		}
		if oldSHA, ok := existing[item.RelPath]; ok && oldSHA == sha {
			stats.Skipped++
			continue
		}

		syms, size, err := idx.indexFile(item)
		if err != nil {
			stats.Errors++
			idx.log.Warn("index file failed", "path", item.RelPath, "error", err)
			continue
		}
		stats.Indexed++
		stats.Symbols += syms
		stats.Bytes += size
	}

	// Stale entries are only trusted after a complete walk.
	if ctx.Err() == nil {
		for p := range existing {
			if seen[p] {
				continue
			}
			if err := idx.Store.DeleteFile(p); err != nil {
				stats.Errors++
				continue
			}
			stats.Deleted++
		}
	}

	stats.Duration = time.Since(start)
	if err := idx.Store.FinishRun(runID, time.Now(), stats); err != nil {
		return stats, err
	}
	idx.log.Info("reconcile finished", "run", runID, "stats", stats.String())
	return stats, ctx.Err()
}

// finishFailedRun closes a run that stopped before touching any file and
// returns cause, joined with any error from recording the run.
func (idx *Indexer) finishFailedRun(runID string, start time.Time, cause error) error {
	stats := &IndexStats{RunID: runID, Duration: time.Since(start)}
	idx.log.Warn("index run failed", "run", runID, "error", cause)
	if err := idx.Store.FinishRun(runID, time.Now(), stats); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// IndexSingleFile refreshes the outline of one script given its absolute path.
// It reports false when the stored hash already matches and nothing was written.
func (idx *Indexer) IndexSingleFile(absPath string) (bool, error) {
	lang := idx.langs.detect(absPath)
	if lang == LangUnknown {
		return false, nil
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return false, err
	}
	relPath, err := filepath.Rel(idx.RepoRoot, absPath)
	if err != nil {
		return false, err
	}
	sha, err := fileSHA256(absPath)
	if err != nil {
		return false, err
	}

	existing, err := idx.Store.GetFile(relPath)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.SHA256 == sha {
		return false, nil
	}

	if _, _, err := idx.indexFile(Candidate{AbsPath: absPath, RelPath: relPath, Lang: lang, Info: info}); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveSingleFile forgets a deleted script given its absolute path.
func (idx *Indexer) RemoveSingleFile(absPath string) error {
	relPath, err := filepath.Rel(idx.RepoRoot, absPath)
	if err != nil {
		return err
	}
	return idx.Store.DeleteFile(relPath)
}

// Handles reports whether path has an indexed extension.
func (idx *Indexer) Handles(path string) bool {
	return idx.langs.detect(path) != LangUnknown
}

// indexFile reads, hashes, extracts and stores a single file.
// Returns the number of members stored and the bytes read.
func (idx *Indexer) indexFile(c Candidate) (int, int64, error) {
	src, err := source.ReadFile(c.AbsPath)
	if err != nil {
		return 0, 0, err
	}

	p := idx.parsers.get(c.Lang)
	if p == nil {
		return 0, 0, nil
	}
	result, err := p.Parse(c.AbsPath, src)
	if err != nil {
		return 0, 0, fmt.Errorf("parse %s: %w", c.RelPath, err)
	}

	if err := idx.Store.UpsertFile(c.RelPath, c.Lang, sha256Bytes(src), int64(len(src)), c.Info.ModTime().Unix(), result); err != nil {
		return 0, 0, fmt.Errorf("upsert %s: %w", c.RelPath, err)
	}
	return len(result.Members), int64(len(src)), nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sha256Bytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// IndexStats counts what one FullIndex or Reconcile run did.
type IndexStats struct {
	RunID    string        `json:"runId"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Deleted  int           `json:"deleted"`
	Errors   int           `json:"errors"`
	Symbols  int           `json:"symbols"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
}

func (s *IndexStats) String() string {
	return fmt.Sprintf("indexed=%d skipped=%d deleted=%d errors=%d symbols=%d bytes=%d",
		s.Indexed, s.Skipped, s.Deleted, s.Errors, s.Symbols, s.Bytes)
}
