package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
	"github.com/nwscript-tools/nwsoutline/internal/source"
	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

type outlineOptions struct {
	format  string
	kinds   []string
	charset string
	jobs    int
}

// fileOutline is one file's outline as printed by the outline command.
type fileOutline struct {
	Path               string `json:"path" yaml:"path"`
	symbols.FileResult `yaml:",inline"`
}

func newOutlineCmd() *cobra.Command {
	opts := &outlineOptions{}
	cmd := &cobra.Command{
		Use:   "outline <file>...",
		Short: "Print the outline of NWScript files",
		Long:  "Extract engine structures, function prototypes and constants from each file and print them sorted by name.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutline(cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().StringSliceVarP(&opts.kinds, "kind", "k", nil, "Only print these kinds (engine_structure, function, constant)")
	cmd.Flags().StringVar(&opts.charset, "charset", "", "Legacy code page for narrow files that are not UTF-8, e.g. windows-1252")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "Files extracted in parallel")

	return cmd
}

func parseKinds(names []string) ([]symbols.SymbolKind, error) {
	kinds := make([]symbols.SymbolKind, 0, len(names))
	for _, n := range names {
		k := symbols.ParseKind(strings.TrimSpace(n))
		if k == symbols.KindUnknown {
			return nil, fmt.Errorf("unknown kind %q", n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// runOutline extracts every path, prints the readable ones in argument order
// and returns the joined read errors.
func runOutline(w io.Writer, paths []string, opts *outlineOptions) error {
	kinds, err := parseKinds(opts.kinds)
	if err != nil {
		return err
	}
	x, err := nwscript.New(nwscript.Options{LegacyCharset: opts.charset})
	if err != nil {
		return err
	}

	results := make([]*symbols.FileResult, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			results[i], errs[i] = source.Outline(x, path)
			return nil
		})
	}
	_ = g.Wait()

	outs := make([]fileOutline, 0, len(paths))
	for i, fr := range results {
		if fr == nil {
			continue
		}
		outs = append(outs, fileOutline{Path: paths[i], FileResult: fr.Only(kinds...)})
	}

	if err := writeOutlines(w, opts.format, outs); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func writeOutlines(w io.Writer, format string, outs []fileOutline) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outs)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(outs); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		for i, o := range outs {
			if i > 0 {
				fmt.Fprintln(w)
			}
			renderOutline(w, o)
		}
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

func renderOutline(w io.Writer, o fileOutline) {
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render(o.Path),
		faintStyle.Render(fmt.Sprintf("(%s; %d engine structures, %d functions, %d constants)",
			o.Encoding, o.EngineStructureCount, o.FunctionCount, o.ConstantCount)))
	for _, m := range o.Members {
		fmt.Fprintf(w, "  %-16s %s %s\n",
			m.Kind, m.Signature(), faintStyle.Render(fmt.Sprintf(":%d", m.Line)))
	}
}
