// Package storage persists parsed templates and saved project states in a
// local SQLite database.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"labz/internal/gallery"
	"labz/internal/project"
	"labz/internal/solidity"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS templates (
			name TEXT PRIMARY KEY,
			path TEXT,
			source TEXT,
			content_hash TEXT,
			parsed JSON
		);`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT,
			state JSON,
			updated_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- Template cache ---

// SaveTemplate upserts one parsed template, keyed by contract name.
func (s *SQLiteStore) SaveTemplate(ctx context.Context, info *gallery.TemplateInfo) error {
	parsed, err := json.Marshal(info.Contract)
	if err != nil {
		return fmt.Errorf("failed to encode parsed contract: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (name, path, source, content_hash, parsed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path=excluded.path,
			source=excluded.source,
			content_hash=excluded.content_hash,
			parsed=excluded.parsed
	`, info.Name, info.Path, info.Source, hashSource(info.Source), parsed)

	return err
}

// SaveTemplates writes a whole gallery scan in one transaction.
func (s *SQLiteStore) SaveTemplates(ctx context.Context, infos []*gallery.TemplateInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO templates (name, path, source, content_hash, parsed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path=excluded.path,
			source=excluded.source,
			content_hash=excluded.content_hash,
			parsed=excluded.parsed
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, info := range infos {
		parsed, err := json.Marshal(info.Contract)
		if err != nil {
			return fmt.Errorf("failed to encode parsed contract %s: %w", info.Name, err)
		}
		if _, err := stmt.Exec(info.Name, info.Path, info.Source, hashSource(info.Source), parsed); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetTemplate loads one cached template by name.
func (s *SQLiteStore) GetTemplate(ctx context.Context, name string) (*gallery.TemplateInfo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT name, path, source, parsed FROM templates WHERE name = ?", name)

	var info gallery.TemplateInfo
	var parsed []byte
	if err := row.Scan(&info.Name, &info.Path, &info.Source, &parsed); err != nil {
		return nil, err
	}
	if len(parsed) > 0 {
		var c solidity.Contract
		if err := json.Unmarshal(parsed, &c); err != nil {
			return nil, fmt.Errorf("failed to decode parsed contract: %w", err)
		}
		info.Contract = &c
	}

	return &info, nil
}

// ListTemplates returns all cached templates ordered by name.
func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]*gallery.TemplateInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, path, source, parsed FROM templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var infos []*gallery.TemplateInfo
	for rows.Next() {
		var info gallery.TemplateInfo
		var parsed []byte
		if err := rows.Scan(&info.Name, &info.Path, &info.Source, &parsed); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if len(parsed) > 0 {
			var c solidity.Contract
			if err := json.Unmarshal(parsed, &c); err == nil {
				info.Contract = &c
			}
		}
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

// TemplateChanged reports whether the stored hash differs from the given
// source, so callers can skip re-parsing untouched templates.
func (s *SQLiteStore) TemplateChanged(ctx context.Context, name, source string) (bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT content_hash FROM templates WHERE name = ?", name)

	var stored string
	if err := row.Scan(&stored); err != nil {
		if err == sql.ErrNoRows {
			return true, nil
		}
		return false, err
	}
	return stored != hashSource(source), nil
}

// --- Project store ---

// SaveProject upserts a project state snapshot under the given id.
func (s *SQLiteStore) SaveProject(ctx context.Context, id string, state project.State) error {
	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode project state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			state=excluded.state,
			updated_at=excluded.updated_at
	`, id, state.Name, encoded, time.Now().UTC().Format(time.RFC3339))

	return err
}

// LoadProject restores a saved project state.
func (s *SQLiteStore) LoadProject(ctx context.Context, id string) (project.State, error) {
	row := s.db.QueryRowContext(ctx, "SELECT state FROM projects WHERE id = ?", id)

	var encoded []byte
	if err := row.Scan(&encoded); err != nil {
		return project.State{}, err
	}

	var st project.State
	if err := json.Unmarshal(encoded, &st); err != nil {
		return project.State{}, fmt.Errorf("failed to decode project state: %w", err)
	}
	return st, nil
}

// ProjectSummary is one row from the saved-project listing.
type ProjectSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
}

// ListProjects returns saved projects, most recently updated first.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, updated_at FROM projects ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectSummary
	for rows.Next() {
		var p ProjectSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a saved project. Deleting a missing id is not an
// error.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func hashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
