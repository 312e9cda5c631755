package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nwscript-tools/nwsoutline/internal/indexer"
	"github.com/nwscript-tools/nwsoutline/internal/mcpstate"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index statistics and MCP server state",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	stats, err := ws.nav.Stats()
	if err != nil {
		return fmt.Errorf("failed to read index stats: %w", err)
	}
	running, state, err := mcpstate.IsRunning(ws.stateDir)
	if err != nil {
		ws.log.Warn("could not read mcp state", "err", err)
	}

	printStatus(cmd.OutOrStdout(), ws.repoRoot, ws.cfg.SourceRoots, stats, running, state)
	return nil
}

func printStatus(w io.Writer, repoRoot string, roots []string, st *indexer.ProjectStats, running bool, state *mcpstate.State) {
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Repository:"), repoRoot)
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("Source roots:"), strings.Join(roots, ", "))
	fmt.Fprintf(w, "%s %d files, %s\n", headerStyle.Render("Index:"), st.Files, humanize.Bytes(uint64(st.Bytes)))
	fmt.Fprintf(w, "  %d engine structures, %d functions, %d constants\n",
		st.EngineStructureCount, st.FunctionCount, st.ConstantCount)

	if run := st.LastRun; run != nil {
		when := "in progress"
		if !run.FinishedAt.IsZero() {
			when = humanize.Time(run.FinishedAt)
		}
		fmt.Fprintf(w, "%s %s run %s (%s)\n", headerStyle.Render("Last run:"), run.Mode, when, run.Stats.String())
	} else {
		fmt.Fprintf(w, "%s never\n", headerStyle.Render("Last run:"))
	}

	if running && state != nil {
		fmt.Fprintf(w, "%s %s (pid %d, started %s)\n", headerStyle.Render("MCP server:"),
			successStyle.Render("running"), state.PID, humanize.Time(state.StartedAt))
	} else {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render("MCP server:"), faintStyle.Render("not running"))
	}
}
