package search

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// openConfig bounds the wait for the index lock so a second process fails
// instead of blocking.
var openConfig = map[string]interface{}{"bolt_timeout": "1s"}

// bleveIndex is a thin wrapper over a Bleve index. path is empty for an
// in-memory index.
type bleveIndex struct {
	path  string
	index bleve.Index
}

// openOrCreate opens the index at path, or creates it with m.
func openOrCreate(path string, m mapping.IndexMapping) (*bleveIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("mkdir index dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.OpenUsing(path, openConfig)
		if err != nil {
			return nil, fmt.Errorf("bleve open: %w", err)
		}
		return &bleveIndex{path: path, index: idx}, nil
	}

	idx, err := bleve.NewUsing(path, m, bleve.Config.DefaultIndexType, bleve.Config.DefaultKVStore, openConfig)
	if err != nil {
		return nil, fmt.Errorf("bleve new: %w", err)
	}
	return &bleveIndex{path: path, index: idx}, nil
}

func newMemOnly(m mapping.IndexMapping) (*bleveIndex, error) {
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("bleve new: %w", err)
	}
	return &bleveIndex{index: idx}, nil
}

// reset deletes the index directory and recreates an empty index.
func reset(path string, m mapping.IndexMapping) (*bleveIndex, error) {
	_ = os.RemoveAll(path)
	return openOrCreate(path, m)
}

func (b *bleveIndex) Close() error {
	if b == nil || b.index == nil {
		return nil
	}
	return b.index.Close()
}
