// Package ignore keeps the local state directory out of git and docker
// build contexts.
package ignore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/cobra"
)

const (
	gitignoreFile    = ".gitignore"
	dockerignoreFile = ".dockerignore"
	ignorePattern    = ".nwsoutline/"
	commentMarker    = "# nwsoutline"

	// statePathSample is a path inside the state directory used to test coverage.
	statePathSample = ".nwsoutline/index.db"
)

var infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

// Confirm asks whether to add the pattern to the file for toolName.
type Confirm func(toolName, impact string) (bool, error)

// HuhConfirm prompts interactively.
func HuhConfirm(toolName, impact string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Add %s to %s?", ignorePattern, toolName)).
				Description(fmt.Sprintf("This %s", impact)).
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("interactive prompt failed: %w", err)
	}
	return ok, nil
}

// HandleIgnoreFiles offers to add .nwsoutline/ to existing .gitignore and
// .dockerignore files that do not already cover it.
func HandleIgnoreFiles(repoRoot string, cmd *cobra.Command, confirm Confirm) error {
	if err := handleIgnoreFile(filepath.Join(repoRoot, gitignoreFile), "Git",
		"prevents committing the local index and config to version control", cmd, confirm); err != nil {
		return fmt.Errorf("failed to handle .gitignore: %w", err)
	}
	if err := handleIgnoreFile(filepath.Join(repoRoot, dockerignoreFile), "Docker",
		"keeps the local index out of docker build contexts", cmd, confirm); err != nil {
		return fmt.Errorf("failed to handle .dockerignore: %w", err)
	}
	return nil
}

func handleIgnoreFile(filePath, toolName, impact string, cmd *cobra.Command, confirm Confirm) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	covered, err := IsIgnored(filePath)
	if err != nil {
		return fmt.Errorf("failed to check ignore file: %w", err)
	}
	if covered {
		return nil
	}

	add, err := confirm(toolName, impact)
	if err != nil {
		return err
	}
	if !add {
		cmd.Printf("%s Skipped adding to %s\n", infoStyle.Render("→"), toolName)
		return nil
	}

	if err := AddEntry(filePath); err != nil {
		return fmt.Errorf("failed to add ignore entry: %w", err)
	}
	cmd.Printf("✓ Added %s to %s\n", ignorePattern, toolName)
	return nil
}

// IsIgnored reports whether the ignore file already covers the state
// directory.
func IsIgnored(filePath string) (bool, error) {
	gi, err := gitignore.CompileIgnoreFile(filePath)
	if err != nil {
		return false, err
	}
	return gi.MatchesPath(statePathSample), nil
}

// AddEntry appends the state directory pattern to the ignore file. It is a
// no-op when the file already covers it.
func AddEntry(filePath string) error {
	covered, err := IsIgnored(filePath)
	if err != nil {
		return fmt.Errorf("failed to re-check ignore file: %w", err)
	}
	if covered {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "\n%s\n%s\n", commentMarker, ignorePattern)

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
