package indexer

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// Store wraps DB operations for the indexer.
type Store struct {
	DB        *sql.DB
	ProjectID int64
}

// EnsureProject ensures a project row exists and records its ID.
func (s *Store) EnsureProject(repoRoot string) error {
	var id int64
	err := s.DB.QueryRow(`SELECT id FROM projects WHERE repo_root = ?`, repoRoot).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := s.DB.Exec(`INSERT INTO projects (repo_root) VALUES (?)`, repoRoot)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		id, _ = res.LastInsertId()
	} else if err != nil {
		return fmt.Errorf("query project: %w", err)
	}
	s.ProjectID = id
	return nil
}

// EnsureSourceRoots replaces the stored source roots for the project.
func (s *Store) EnsureSourceRoots(roots []string) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM source_roots WHERE project_id = ?`, s.ProjectID); err != nil {
		return err
	}
	for _, r := range roots {
		if _, err := tx.Exec(`INSERT INTO source_roots (project_id, path) VALUES (?, ?)`, s.ProjectID, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FileRow represents a row in the files table.
type FileRow struct {
	ID       int64
	Path     string
	SHA256   string
	Encoding string
	Size     int64
}

// GetFile looks up an indexed file by repo-relative path. It returns nil
// when the file is not indexed.
func (s *Store) GetFile(path string) (*FileRow, error) {
	var f FileRow
	err := s.DB.QueryRow(
		`SELECT id, path, sha256, encoding, size_bytes FROM files WHERE project_id = ? AND path = ?`,
		s.ProjectID, path,
	).Scan(&f.ID, &f.Path, &f.SHA256, &f.Encoding, &f.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// AllFiles returns all indexed file paths and their SHA for the project.
func (s *Store) AllFiles() (map[string]string, error) {
	rows, err := s.DB.Query(`SELECT path, sha256 FROM files WHERE project_id = ?`, s.ProjectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	m := map[string]string{}
	for rows.Next() {
		var path, sha string
		if err := rows.Scan(&path, &sha); err != nil {
			return nil, err
		}
		m[path] = sha
	}
	return m, rows.Err()
}

// UpsertFile inserts or updates a file record and replaces its outline.
// Members are stored with their position in the sorted outline.
func (s *Store) UpsertFile(path string, lang Lang, sha string, sizeBytes, mtimeUnix int64, fr *symbols.FileResult) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var fileID int64
	err = tx.QueryRow(
		`SELECT id FROM files WHERE project_id = ? AND path = ?`,
		s.ProjectID, path,
	).Scan(&fileID)

	now := time.Now().UTC().Format(time.RFC3339)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.Exec(
			`INSERT INTO files (project_id, path, lang, encoding, sha256, size_bytes, mtime_unix, indexed_at) VALUES (?,?,?,?,?,?,?,?)`,
			s.ProjectID, path, string(lang), fr.Encoding, sha, sizeBytes, mtimeUnix, now,
		)
		if err != nil {
			return fmt.Errorf("insert file: %w", err)
		}
		fileID, _ = res.LastInsertId()
	case err != nil:
		return err
	default:
		if _, err := tx.Exec(
			`UPDATE files SET lang=?, encoding=?, sha256=?, size_bytes=?, mtime_unix=?, indexed_at=? WHERE id=?`,
			string(lang), fr.Encoding, sha, sizeBytes, mtimeUnix, now, fileID,
		); err != nil {
			return fmt.Errorf("update file: %w", err)
		}
		// parameters go with their symbols
		if _, err := tx.Exec(`DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
			return err
		}
	}

	symStmt, err := tx.Prepare(
		`INSERT INTO symbols (file_id, ordinal, name, kind, type, value, signature, line) VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer symStmt.Close()
	paramStmt, err := tx.Prepare(
		`INSERT INTO parameters (symbol_id, position, type, name, default_value) VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer paramStmt.Close()

	for i, sym := range fr.Members {
		res, err := symStmt.Exec(fileID, i, sym.Name, int(sym.Kind), sym.Type, sym.Value, sym.Signature(), sym.Line)
		if err != nil {
			return fmt.Errorf("insert symbol %q: %w", sym.Name, err)
		}
		if len(sym.Parameters) == 0 {
			continue
		}
		symID, _ := res.LastInsertId()
		for pos, p := range sym.Parameters {
			if _, err := paramStmt.Exec(symID, pos, p.Type, p.Name, p.DefaultValue); err != nil {
				return fmt.Errorf("insert parameter %q of %q: %w", p.Name, sym.Name, err)
			}
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file and, by cascade, its outline.
func (s *Store) DeleteFile(path string) error {
	_, err := s.DB.Exec(`DELETE FROM files WHERE project_id = ? AND path = ?`, s.ProjectID, path)
	return err
}

// DeleteAllFiles removes every indexed file of the project.
func (s *Store) DeleteAllFiles() error {
	_, err := s.DB.Exec(`DELETE FROM files WHERE project_id = ?`, s.ProjectID)
	return err
}

// IndexRun is one recorded indexing pass.
type IndexRun struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Stats      IndexStats `json:"stats"`
}

// runTimeLayout keeps a fixed number of fractional digits so stored run
// times sort as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// BeginRun records the start of an indexing pass and returns its ID.
func (s *Store) BeginRun(mode string, started time.Time) (string, error) {
	id := uuid.NewString()
	if _, err := s.DB.Exec(
		`INSERT INTO index_runs (id, project_id, mode, started_at) VALUES (?,?,?,?)`,
		id, s.ProjectID, mode, started.UTC().Format(runTimeLayout),
	); err != nil {
		return "", fmt.Errorf("record index run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a pass started with BeginRun.
func (s *Store) FinishRun(id string, finished time.Time, st *IndexStats) error {
	_, err := s.DB.Exec(
		`UPDATE index_runs SET finished_at=?, files_indexed=?, files_skipped=?, files_removed=?, files_failed=?, symbols=?, bytes_read=? WHERE id=?`,
		finished.UTC().Format(runTimeLayout), st.Indexed, st.Skipped, st.Deleted, st.Errors, st.Symbols, st.Bytes, id,
	)
	if err != nil {
		return fmt.Errorf("finish index run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run, or nil if there is none.
func (s *Store) LastRun() (*IndexRun, error) {
	var (
		r                 IndexRun
		started, finished string
	)
	err := s.DB.QueryRow(
		`SELECT id, mode, started_at, finished_at, files_indexed, files_skipped, files_removed, files_failed, symbols, bytes_read
		 FROM index_runs WHERE project_id = ? ORDER BY started_at DESC LIMIT 1`, s.ProjectID,
	).Scan(&r.ID, &r.Mode, &started, &finished,
		&r.Stats.Indexed, &r.Stats.Skipped, &r.Stats.Deleted, &r.Stats.Errors, &r.Stats.Symbols, &r.Stats.Bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	if finished != "" {
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	}
	r.Stats.RunID = r.ID
	return &r, nil
}
