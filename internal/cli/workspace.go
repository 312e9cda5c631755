package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nwscript-tools/nwsoutline/internal/config"
	"github.com/nwscript-tools/nwsoutline/internal/db"
	"github.com/nwscript-tools/nwsoutline/internal/indexer"
	"github.com/nwscript-tools/nwsoutline/internal/logging"
	"github.com/nwscript-tools/nwsoutline/internal/mcpstate"
	"github.com/nwscript-tools/nwsoutline/internal/repo"
	"github.com/nwscript-tools/nwsoutline/internal/search"
)

const searchDirName = "search"

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// ErrNotInitialized is returned by commands that need an index when the
// repository has no state directory.
var ErrNotInitialized = errors.New("repository not initialized, run 'nwsoutline init' first")

// workspace is an opened repository: config, database and indexer.
type workspace struct {
	repoRoot string
	stateDir string
	cfg      *config.Config
	db       *sql.DB
	idx      *indexer.Indexer
	nav      *indexer.Navigator
	log      *slog.Logger

	sxMu sync.Mutex
	sx   *search.SymbolIndex
}

func (w *workspace) Close() error {
	var errs []error
	if w.sx != nil {
		errs = append(errs, w.sx.Close())
	}
	if w.db != nil {
		errs = append(errs, w.db.Close())
	}
	return errors.Join(errs...)
}

// symbolSearch opens the full-text index on first use and brings it in line
// with the SQLite index before returning it.
func (w *workspace) symbolSearch() (*search.SymbolIndex, error) {
	w.sxMu.Lock()
	defer w.sxMu.Unlock()

	if w.sx == nil {
		sx, err := openSymbolSearch(w.stateDir, w.log)
		if err != nil {
			return nil, err
		}
		w.sx = sx
	}
	st, err := w.sx.Sync(w.nav)
	if err != nil {
		return nil, fmt.Errorf("failed to sync search index: %w", err)
	}
	if st.Indexed > 0 || st.Removed > 0 {
		w.log.Debug("search index synced", "indexed", st.Indexed, "removed", st.Removed)
	}
	return w.sx, nil
}

// openSymbolSearch opens the on-disk index, or an in-memory one when another
// MCP server holds it or it cannot be opened.
func openSymbolSearch(stateDir string, log *slog.Logger) (*search.SymbolIndex, error) {
	if running, st, _ := mcpstate.IsRunning(stateDir); running && st != nil && st.PID != os.Getpid() {
		log.Debug("mcp server holds the search index, searching in memory", "pid", st.PID)
		return search.OpenMemory()
	}
	sx, err := search.Open(filepath.Join(stateDir, searchDirName))
	if err != nil {
		log.Warn("search index unavailable, searching in memory", "err", err)
		return search.OpenMemory()
	}
	return sx, nil
}

// loadConfig honours the persistent --config flag.
func loadConfig(cmd *cobra.Command, stateDir string) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(stateDir, file)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// cliLogger logs warnings to stderr, or everything with --verbose. The
// configured log level applies to the MCP server log file.
func cliLogger(cmd *cobra.Command, component string) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return logging.New(cmd.ErrOrStderr(), level, component)
}

func indexerOptions(cfg *config.Config, log *slog.Logger) indexer.Options {
	return indexer.Options{
		Discover: indexer.DiscoverOptions{
			Extensions:       cfg.Extensions,
			Exclude:          cfg.Exclude,
			RespectGitignore: cfg.RespectGitignore,
		},
		Workers:   cfg.Workers,
		Extractor: cfg.ExtractorOptions(),
		Logger:    log,
	}
}

// openWorkspace finds the repository, loads its config and opens the index.
// log may be nil, in which case a stderr logger is built from the config.
func openWorkspace(cmd *cobra.Command, log *slog.Logger) (*workspace, error) {
	repoRoot, err := repo.FindRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find repo root: %w", err)
	}
	return openWorkspaceAt(cmd, repoRoot, log)
}

func openWorkspaceAt(cmd *cobra.Command, repoRoot string, log *slog.Logger) (*workspace, error) {
	stateDir := repo.StateDir(repoRoot)
	dbPath := db.DatabasePath(stateDir)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%s: %w", repoRoot, ErrNotInitialized)
	}

	cfg, err := loadConfig(cmd, stateDir)
	if err != nil {
		return nil, err
	}
	if cfg.RepoRoot == "" {
		cfg.RepoRoot = repoRoot
	}
	if log == nil {
		log = cliLogger(cmd, "cli")
	}

	d, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(d); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	idx, err := indexer.New(d, repoRoot, indexerOptions(cfg, log))
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}

	return &workspace{
		repoRoot: repoRoot,
		stateDir: stateDir,
		cfg:      cfg,
		db:       d,
		idx:      idx,
		nav:      indexer.NewNavigator(idx.Store),
		log:      log,
	}, nil
}
