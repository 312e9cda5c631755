package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nwscript-tools/nwsoutline/internal/config"
	"github.com/nwscript-tools/nwsoutline/internal/db"
	"github.com/nwscript-tools/nwsoutline/internal/ignore"
	"github.com/nwscript-tools/nwsoutline/internal/indexer"
	"github.com/nwscript-tools/nwsoutline/internal/repo"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize nwsoutline in the current repository",
		Long:  "Select the directories holding NWScript sources, write .nwsoutline/config.yaml and build the index.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}

	cmd.Flags().StringSlice("roots", nil, "Source roots to index, skipping the interactive selection")
	cmd.Flags().BoolP("yes", "y", false, "Accept defaults and skip every prompt")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	repoRoot, err := repo.FindRoot()
	if err != nil {
		return fmt.Errorf("failed to find repo root: %w", err)
	}
	yes, _ := cmd.Flags().GetBool("yes")
	roots, _ := cmd.Flags().GetStringSlice("roots")

	cmd.Printf("%s Initializing nwsoutline in: %s\n", infoStyle.Render("→"), repoRoot)

	cfg := config.Default()
	cfg.RepoRoot = repoRoot

	selectedDirs := roots
	if len(selectedDirs) == 0 {
		scriptDirs, err := repo.ScriptDirs(repoRoot, cfg.Extensions)
		if err != nil {
			return fmt.Errorf("failed to discover directories: %w", err)
		}
		if yes {
			selectedDirs = repo.Collapse(repoRoot, scriptDirs)
		} else {
			selectedDirs, err = promptSourceRoots(scriptDirs)
			if err != nil {
				return err
			}
		}
	}
	if len(selectedDirs) == 0 {
		cmd.Println("No directories selected. Exiting.")
		return nil
	}
	if err := repo.ValidateSelectedDirs(repoRoot, selectedDirs); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	cfg.SourceRoots = selectedDirs

	// Re-initialising replaces the whole state directory.
	stateDir := repo.StateDir(repoRoot)
	if err := os.RemoveAll(stateDir); err != nil {
		return fmt.Errorf("failed to remove existing %s directory: %w", repo.StateDirName, err)
	}
	if err := config.Save(cfg, stateDir); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	cmd.Printf("%s Configuration saved to: %s\n", successStyle.Render("✓"), config.ConfigPath(stateDir))

	dbPath := db.DatabasePath(stateDir)
	if err := db.Initialize(dbPath); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	cmd.Printf("%s Database initialized at: %s\n", successStyle.Render("✓"), dbPath)

	cmd.Printf("%s Indexing source files...\n", infoStyle.Render("→"))
	ws, err := openWorkspaceAt(cmd, repoRoot, nil)
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	ws.idx.OnProgress = newProgressReporter(cmd.ErrOrStderr())
	stats, err := ws.idx.FullIndex(cmd.Context(), cfg.SourceRoots)
	if err != nil {
		return fmt.Errorf("failed to index: %w", err)
	}
	printIndexStats(cmd.OutOrStdout(), stats)

	confirm := ignore.HuhConfirm
	if yes {
		confirm = func(string, string) (bool, error) { return true, nil }
	}
	if err := ignore.HandleIgnoreFiles(repoRoot, cmd, confirm); err != nil {
		cmd.Printf("%s Warning: failed to update ignore files: %v\n", warnStyle.Render("!"), err)
	}

	if !yes {
		if err := promptAndUpdateAssistantGuidance(cmd, repoRoot); err != nil {
			cmd.Printf("%s Warning: failed to update assistant guidance: %v\n", warnStyle.Render("!"), err)
		}
	}

	cmd.Printf("\n%s Initialization complete!\n", successStyle.Render("✓"))
	cmd.Println("Next steps:")
	cmd.Println("  - Run 'nwsoutline lookup <name>' or 'nwsoutline complete <prefix>' to query the index")
	cmd.Println("  - Run 'nwsoutline mcp' to serve the index to your AI assistant")
	return nil
}

// sourceRootOptions lists the repository root first, then every directory
// holding scripts.
func sourceRootOptions(scriptDirs []string) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption(". (repository root)", ".")}
	for _, dir := range scriptDirs {
		if dir == "." {
			continue
		}
		options = append(options, huh.NewOption(filepath.ToSlash(dir), dir))
	}
	return options
}

func promptSourceRoots(scriptDirs []string) ([]string, error) {
	var selected []string
	if slices.Contains(scriptDirs, ".") || len(scriptDirs) == 0 {
		selected = []string{"."}
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select directories to index").
				Description("Directories containing " + indexer.DefaultExtensions[0] + " files are listed. Space to select, enter to confirm. Selected directories cannot be parent/child of each other.").
				Options(sourceRootOptions(scriptDirs)...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("interactive prompt failed: %w", err)
	}
	return selected, nil
}
