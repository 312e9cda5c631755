package indexer

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// Location is the declaration site of a member.
type Location struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// Definition is one indexed declaration of a name.
type Definition struct {
	symbols.Symbol
	Signature string   `json:"signature"`
	Location  Location `json:"location"`
}

// Completion is one autocomplete candidate.
type Completion struct {
	Name      string             `json:"name"`
	Kind      symbols.SymbolKind `json:"kind"`
	Signature string             `json:"signature"`
	Location  Location           `json:"location"`
}

// ProjectStats summarises the index of a project.
type ProjectStats struct {
	Files                int       `json:"files"`
	Bytes                int64     `json:"bytes"`
	EngineStructureCount int       `json:"engineStructureCount"`
	FunctionCount        int       `json:"functionCount"`
	ConstantCount        int       `json:"constantCount"`
	LastRun              *IndexRun `json:"lastRun,omitempty"`
}

// Navigator answers queries against the index.
type Navigator struct {
	DB        *sql.DB
	ProjectID int64
}

// NewNavigator returns a Navigator sharing the store's project.
func NewNavigator(s *Store) *Navigator {
	return &Navigator{DB: s.DB, ProjectID: s.ProjectID}
}

// Lookup returns every declaration named name, ordered by file then line.
func (n *Navigator) Lookup(name string) ([]Definition, error) {
	rows, err := n.DB.Query(`
		SELECT s.id, s.name, s.kind, s.type, s.value, s.signature, s.line, f.path
		FROM symbols s
		JOIN files f ON s.file_id = f.id
		WHERE f.project_id = ? AND s.name = ?
		ORDER BY f.path ASC, s.line ASC, s.ordinal ASC
	`, n.ProjectID, name)
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}

	var (
		results []Definition
		ids     []int64
	)
	for rows.Next() {
		var (
			d       Definition
			id      int64
			kindInt int
		)
		if err := rows.Scan(&id, &d.Name, &kindInt, &d.Type, &d.Value, &d.Signature, &d.Line, &d.Location.Path); err != nil {
			_ = rows.Close()
			return nil, err
		}
		d.Kind = symbols.SymbolKind(kindInt)
		d.Location.Line = d.Line
		results = append(results, d)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i, id := range ids {
		params, err := n.parameters(id)
		if err != nil {
			return nil, err
		}
		results[i].Parameters = params
	}
	return results, nil
}

func (n *Navigator) parameters(symbolID int64) ([]symbols.Parameter, error) {
	rows, err := n.DB.Query(
		`SELECT type, name, default_value FROM parameters WHERE symbol_id = ? ORDER BY position`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("query parameters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	params := []symbols.Parameter{}
	for rows.Next() {
		var p symbols.Parameter
		if err := rows.Scan(&p.Type, &p.Name, &p.DefaultValue); err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

// globEscaper makes a user prefix literal inside a GLOB pattern.
var globEscaper = strings.NewReplacer("[", "[[]", "*", "[*]", "?", "[?]")

// Complete returns up to limit members whose name starts with prefix,
// case-sensitively, in ordinal name order. A non-positive limit means 50.
func (n *Navigator) Complete(prefix string, limit int) ([]Completion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := n.DB.Query(`
		SELECT s.name, s.kind, s.signature, f.path, s.line
		FROM symbols s
		JOIN files f ON s.file_id = f.id
		WHERE f.project_id = ? AND s.name GLOB ?
		ORDER BY s.name ASC, f.path ASC, s.line ASC
		LIMIT ?
	`, n.ProjectID, globEscaper.Replace(prefix)+"*", limit)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Completion
	for rows.Next() {
		var (
			c       Completion
			kindInt int
		)
		if err := rows.Scan(&c.Name, &kindInt, &c.Signature, &c.Location.Path, &c.Location.Line); err != nil {
			return nil, err
		}
		c.Kind = symbols.SymbolKind(kindInt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ErrNotIndexed is returned for files absent from the index.
var ErrNotIndexed = errors.New("file not indexed")

// FileOutline rebuilds the stored outline of a repo-relative path.
func (n *Navigator) FileOutline(path string) (*symbols.FileResult, error) {
	var (
		fileID   int64
		encoding string
	)
	err := n.DB.QueryRow(`SELECT id, encoding FROM files WHERE project_id = ? AND path = ?`,
		n.ProjectID, path).Scan(&fileID, &encoding)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexed, path)
	}
	if err != nil {
		return nil, err
	}

	rows, err := n.DB.Query(`
		SELECT id, name, kind, type, value, line FROM symbols WHERE file_id = ? ORDER BY ordinal
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query outline: %w", err)
	}
	res := &symbols.FileResult{Members: []symbols.Symbol{}, Encoding: encoding}
	var ids []int64
	for rows.Next() {
		var (
			s       symbols.Symbol
			id      int64
			kindInt int
		)
		if err := rows.Scan(&id, &s.Name, &kindInt, &s.Type, &s.Value, &s.Line); err != nil {
			_ = rows.Close()
			return nil, err
		}
		s.Kind = symbols.SymbolKind(kindInt)
		switch s.Kind {
		case symbols.KindEngineStructure:
			res.EngineStructureCount++
		case symbols.KindFunction:
			res.FunctionCount++
		case symbols.KindConstant:
			res.ConstantCount++
		}
		res.Members = append(res.Members, s)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i, id := range ids {
		params, err := n.parameters(id)
		if err != nil {
			return nil, err
		}
		res.Members[i].Parameters = params
	}
	return res, nil
}

// Files returns every indexed path with its content hash.
func (n *Navigator) Files() (map[string]string, error) {
	return (&Store{DB: n.DB, ProjectID: n.ProjectID}).AllFiles()
}

// Stats summarises the project's index.
func (n *Navigator) Stats() (*ProjectStats, error) {
	st := &ProjectStats{}
	if err := n.DB.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM files WHERE project_id = ?`, n.ProjectID,
	).Scan(&st.Files, &st.Bytes); err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}

	rows, err := n.DB.Query(`
		SELECT s.kind, COUNT(*)
		FROM symbols s
		JOIN files f ON s.file_id = f.id
		WHERE f.project_id = ?
		GROUP BY s.kind
	`, n.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("count symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var kindInt, count int
		if err := rows.Scan(&kindInt, &count); err != nil {
			return nil, err
		}
		switch symbols.SymbolKind(kindInt) {
		case symbols.KindEngineStructure:
			st.EngineStructureCount = count
		case symbols.KindFunction:
			st.FunctionCount = count
		case symbols.KindConstant:
			st.ConstantCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	st.LastRun, err = (&Store{DB: n.DB, ProjectID: n.ProjectID}).LastRun()
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	return st, nil
}
