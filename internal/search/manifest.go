package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// manifest records, per indexed script, the content hash the documents were
// built from and their IDs, so a file's documents can be replaced or
// dropped without querying the index.
type manifest struct {
	Files map[string]manifestEntry `json:"files"`
}

type manifestEntry struct {
	SHA256 string   `json:"sha256"`
	DocIDs []string `json:"docIds"`
}

func newManifest() *manifest {
	return &manifest{Files: map[string]manifestEntry{}}
}

func loadManifest(path string) (*manifest, error) {
	m := newManifest()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		// Corrupt: start over, the next sync rebuilds everything.
		return nil, nil
	}
	if m.Files == nil {
		m.Files = map[string]manifestEntry{}
	}
	return m, nil
}

func saveManifest(path string, m *manifest) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir manifest dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write manifest tmp: %w", err)
	}
	return os.Rename(tmp, path)
}
