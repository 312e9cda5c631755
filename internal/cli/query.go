package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nwscript-tools/nwsoutline/internal/indexer"
)

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <name>",
		Short: "Show every declaration of a name",
		Args:  cobra.ExactArgs(1),
		RunE:  runLookup,
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	cmd.Flags().Bool("code", false, "Print the declaration source with its leading comment")
	return cmd
}

func runLookup(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	defs, err := ws.nav.Lookup(args[0])
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		return fmt.Errorf("no declaration named %q", args[0])
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(w, defs)
	}
	fmt.Fprint(w, formatDefinitions(defs))
	if withCode, _ := cmd.Flags().GetBool("code"); withCode {
		fmt.Fprintln(w)
		fmt.Fprint(w, fetchDeclarationsCode(ws.repoRoot, ws.idx.Extractor(), defs))
	}
	return nil
}

func newCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <prefix>",
		Short: "List declared names starting with a prefix",
		Args:  cobra.ExactArgs(1),
		RunE:  runComplete,
	}
	cmd.Flags().IntP("limit", "n", 50, "Maximum number of names")
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

func runComplete(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	limit, _ := cmd.Flags().GetInt("limit")
	items, err := ws.nav.Complete(args[0], limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(w, items)
	}
	fmt.Fprint(w, formatCompletions(items))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDefinitions(defs []indexer.Definition) string {
	var sb strings.Builder
	for _, d := range defs {
		fmt.Fprintf(&sb, "%s:%d  %s  %s\n", d.Location.Path, d.Location.Line, d.Kind, d.Signature)
	}
	return sb.String()
}

func formatCompletions(items []indexer.Completion) string {
	var sb strings.Builder
	for _, c := range items {
		fmt.Fprintf(&sb, "%-32s %s  %s\n", c.Name, c.Signature,
			faintStyle.Render(fmt.Sprintf("%s:%d", c.Location.Path, c.Location.Line)))
	}
	return sb.String()
}
