package cli

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"

	"github.com/nwscript-tools/nwsoutline/internal/indexer"
	"github.com/nwscript-tools/nwsoutline/internal/repo"
)

const watchDebounce = 200 * time.Millisecond

// startFileWatcher watches the source roots and keeps the index in step
// with script files as they are written, renamed or removed.
func startFileWatcher(ctx context.Context, idx *indexer.Indexer, roots []string, repoRoot string, log *slog.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("failed to create watcher", "err", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range roots {
		absRoot := root
		if root == "." {
			absRoot = repoRoot
		} else if !filepath.IsAbs(root) {
			absRoot = filepath.Join(repoRoot, root)
		}
		if err := addWatchRecursive(watcher, absRoot); err != nil {
			log.Warn("failed to watch root", "root", absRoot, "err", err)
		}
	}
	log.Info("watcher started", "roots", roots)

	var mu sync.Mutex
	pending := map[string]struct{}{}
	var timer *time.Timer

	flush := func() {
		mu.Lock()
		files := pending
		pending = map[string]struct{}{}
		mu.Unlock()

		for path := range files {
			info, err := os.Stat(path)
			if err != nil {
				if idx.Handles(path) {
					if err := idx.RemoveSingleFile(path); err != nil {
						log.Warn("failed to remove", "path", path, "err", err)
					}
				}
				continue
			}
			if info.IsDir() {
				_ = addWatchRecursive(watcher, path)
				continue
			}
			changed, err := idx.IndexSingleFile(path)
			if err != nil {
				log.Warn("failed to index", "path", path, "err", err)
			} else if changed {
				log.Debug("reindexed", "path", path)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Directories have no extension; let flush decide what they are.
			if filepath.Ext(event.Name) != "" && !idx.Handles(event.Name) {
				continue
			}
			mu.Lock()
			pending[event.Name] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, flush)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "err", err)
		}
	}
}

// addWatchRecursive adds root and every directory below it that is not
// skipped by discovery.
func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	var (
		mu   sync.Mutex
		dirs []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && repo.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		mu.Lock()
		dirs = append(dirs, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return err
		}
	}
	return nil
}
