// Package mcpstate tracks whether an MCP server is serving a workspace.
package mcpstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const stateFileName = "mcp.state"

// State is the content of the state file written by a running server.
type State struct {
	PID         int       `json:"pid"`
	Version     string    `json:"version,omitempty"`
	SourceRoots []string  `json:"sourceRoots,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
}

// StatePath returns the path to the state file inside stateDir.
func StatePath(stateDir string) string {
	return filepath.Join(stateDir, stateFileName)
}

// CreateStateFile records the current process as the server for stateDir.
func CreateStateFile(stateDir, version string, roots []string) error {
	state := State{
		PID:         os.Getpid(),
		Version:     version,
		SourceRoots: roots,
		StartedAt:   time.Now().UTC(),
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(StatePath(stateDir), data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// RemoveStateFile removes the state file. A missing file is not an error.
func RemoveStateFile(stateDir string) error {
	if err := os.Remove(StatePath(stateDir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

// IsRunning reports whether the process named in the state file is alive.
// Corrupt or stale state files are removed.
func IsRunning(stateDir string) (bool, *State, error) {
	statePath := StatePath(stateDir)

	data, err := os.ReadFile(statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil || state.PID <= 0 {
		_ = os.Remove(statePath)
		return false, nil, nil
	}

	process, err := os.FindProcess(state.PID)
	if err != nil {
		_ = os.Remove(statePath)
		return false, nil, nil
	}
	// Signal 0 checks for existence without delivering anything.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		_ = os.Remove(statePath)
		return false, nil, nil
	}

	return true, &state, nil
}
