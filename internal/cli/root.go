package cli

import (
	"github.com/spf13/cobra"
)

// Version is the version of the nwsoutline CLI.
// Update this constant manually on every release.
const Version = "v0.3.0"

// NewRootCmd creates the root command for nwsoutline.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nwsoutline",
		Short:         "NWScript outline extractor, index and MCP server",
		Long:          "nwsoutline extracts engine structures, function prototypes and constants from NWScript sources, keeps a per-repository index of them and serves it over MCP.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().String("config", "", "Config file (defaults to .nwsoutline/config.yaml)")

	rootCmd.AddCommand(newOutlineCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newCompleteCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newMcpCmd())

	return rootCmd
}
