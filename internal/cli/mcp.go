package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/nwscript-tools/nwsoutline/internal/config"
	"github.com/nwscript-tools/nwsoutline/internal/db"
	"github.com/nwscript-tools/nwsoutline/internal/logging"
	"github.com/nwscript-tools/nwsoutline/internal/mcpstate"
	"github.com/nwscript-tools/nwsoutline/internal/repo"
)

const mcpLogFileName = "mcp.log"

func newMcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long:  "Start the Model Context Protocol server over stdio. The index is reconciled at startup and kept fresh while the server runs.",
		Args:  cobra.NoArgs,
		RunE:  runMcp,
	}

	cmd.Flags().String("cwd", "", "Working directory (defaults to current directory)")
	cmd.Flags().Bool("no-watch", false, "Do not watch source roots for changes")

	return cmd
}

func runMcp(cmd *cobra.Command, args []string) error {
	cwd, err := cmd.Flags().GetString("cwd")
	if err != nil {
		return fmt.Errorf("failed to get cwd flag: %w", err)
	}
	if cwd != "" {
		info, err := os.Stat(cwd)
		if err != nil {
			return fmt.Errorf("failed to access cwd directory %q: %w", cwd, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("cwd path %q is not a directory", cwd)
		}
		if err := os.Chdir(cwd); err != nil {
			return fmt.Errorf("failed to change to directory %q: %w", cwd, err)
		}
	}

	repoRoot, err := repo.FindRoot()
	if err != nil {
		return fmt.Errorf("failed to find repo root: %w", err)
	}
	stateDir := repo.StateDir(repoRoot)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", stateDir, err)
	}

	// stdout belongs to the JSON-RPC transport; everything else goes to
	// the rotated log file.
	cfg, err := loadConfig(cmd, stateDir)
	if err != nil {
		return err
	}
	log, closer := mcpLogger(stateDir, cfg)
	defer func() { _ = closer.Close() }()
	log.Info("mcp server starting", "version", Version, "repo", repoRoot)

	// A repository that was never initialised gets an index built on the fly.
	fresh := false
	if _, err := os.Stat(db.DatabasePath(stateDir)); os.IsNotExist(err) {
		if err := db.Initialize(db.DatabasePath(stateDir)); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		fresh = true
	}

	ws, err := openWorkspaceAt(cmd, repoRoot, log)
	if err != nil {
		log.Error("open workspace", "err", err)
		return err
	}
	defer func() { _ = ws.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fresh {
		stats, err := ws.idx.FullIndex(ctx, ws.cfg.SourceRoots)
		if err != nil {
			log.Error("initial index failed", "err", err)
		} else {
			log.Info("initial index", "stats", stats.String())
		}
	} else {
		stats, err := ws.idx.Reconcile(ctx, ws.cfg.SourceRoots)
		if err != nil {
			log.Error("reconcile failed", "err", err)
		} else if stats.Indexed > 0 || stats.Deleted > 0 || stats.Errors > 0 {
			log.Info("reconcile", "indexed", stats.Indexed, "deleted", stats.Deleted, "errors", stats.Errors)
		}
	}

	if err := mcpstate.CreateStateFile(stateDir, Version, ws.cfg.SourceRoots); err != nil {
		log.Warn("could not write state file", "err", err)
	}
	defer func() {
		if err := mcpstate.RemoveStateFile(stateDir); err != nil {
			log.Warn("could not remove state file", "err", err)
		}
	}()

	if noWatch, _ := cmd.Flags().GetBool("no-watch"); !noWatch {
		go startFileWatcher(ctx, ws.idx, ws.cfg.SourceRoots, repoRoot, log.With("subsystem", "watcher"))
	}

	server := newMCPServer(ws)
	err = server.Run(ctx, &mcp.StdioTransport{})
	log.Info("mcp server stopped", "err", err)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func mcpLogger(stateDir string, cfg *config.Config) (*slog.Logger, io.Closer) {
	return logging.File(filepath.Join(stateDir, mcpLogFileName), "mcp", logging.FileOptions{
		Level:      logging.ParseLevel(cfg.Log.Level),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
}
