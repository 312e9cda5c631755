package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nwscript-tools/nwsoutline/internal/search"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <words>...",
		Short: "Find declarations by the words in their names and signatures",
		Long:  "Rank indexed declarations against free text. Names are split into words at underscores and case changes, so 'creature distance' finds GetDistanceToCreature and OBJECT_TYPE_CREATURE.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().StringSliceP("kind", "k", nil, "Only return these kinds (engine_structure, function, constant)")
	cmd.Flags().String("path", "", "Only return declarations from paths with this prefix")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of results")
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	kindNames, _ := cmd.Flags().GetStringSlice("kind")
	kinds, err := parseKinds(kindNames)
	if err != nil {
		return err
	}
	pathPrefix, _ := cmd.Flags().GetString("path")
	limit, _ := cmd.Flags().GetInt("limit")

	ws, err := openWorkspace(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	sx, err := ws.symbolSearch()
	if err != nil {
		return err
	}
	hits, err := sx.Search(strings.Join(args, " "), search.Options{
		Kinds:      kinds,
		PathPrefix: pathPrefix,
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(w, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matching declarations.")
		return nil
	}
	fmt.Fprint(w, formatHits(hits))
	return nil
}

func formatHits(hits []search.Hit) string {
	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "%s:%d  %s  %s %s\n", h.Path, h.Line, h.Kind, h.Signature,
			faintStyle.Render(fmt.Sprintf("(%.2f)", h.Score)))
	}
	return sb.String()
}
