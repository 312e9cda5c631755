package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nwscript-tools/nwsoutline/internal/indexer"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Update the index",
		Long:  "Re-index changed files and drop deleted ones. With --full the index is rebuilt from scratch.",
		Args:  cobra.NoArgs,
		RunE:  runIndex,
	}

	cmd.Flags().Bool("full", false, "Rebuild the whole index")
	cmd.Flags().Bool("no-progress", false, "Do not draw a progress bar")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	full, _ := cmd.Flags().GetBool("full")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	var stats *indexer.IndexStats
	if full {
		if !noProgress {
			ws.idx.OnProgress = newProgressReporter(cmd.ErrOrStderr())
		}
		stats, err = ws.idx.FullIndex(cmd.Context(), ws.cfg.SourceRoots)
	} else {
		stats, err = ws.idx.Reconcile(cmd.Context(), ws.cfg.SourceRoots)
	}
	if err != nil {
		return fmt.Errorf("failed to index: %w", err)
	}

	printIndexStats(cmd.OutOrStdout(), stats)
	return nil
}

// newProgressReporter draws a bar sized on the first callback, once the
// number of discovered files is known.
func newProgressReporter(w io.Writer) indexer.Progress {
	var bar *progressbar.ProgressBar
	return func(done, total int, relPath string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Indexing files"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
		if done >= total {
			_ = bar.Finish()
		}
	}
}

func printIndexStats(w io.Writer, stats *indexer.IndexStats) {
	fmt.Fprintf(w, "%s Indexed %d files (%d symbols, %s) in %s\n",
		successStyle.Render("✓"), stats.Indexed, stats.Symbols,
		humanize.Bytes(uint64(stats.Bytes)), stats.Duration.Round(time.Millisecond))
	if stats.Skipped > 0 || stats.Deleted > 0 {
		fmt.Fprintf(w, "  %d unchanged, %d removed\n", stats.Skipped, stats.Deleted)
	}
	if stats.Errors > 0 {
		fmt.Fprintf(w, "%s %d files could not be indexed\n", warnStyle.Render("!"), stats.Errors)
	}
}
