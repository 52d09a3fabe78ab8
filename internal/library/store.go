// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library is the bundled SQLite component library. It implements
// the engine's Retriever, PermissionGate, and Writer collaborators over
// an FTS5-indexed components table so the CLI is a complete system.
// Implements: prd012-component-library (R1-R5);
//
//	docs/ARCHITECTURE § Component Library.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// Store manages the component library SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the library database at cfg.Path and creates the
// schema if it does not exist.
func Open(cfg types.LibraryConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "library.db"
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening library database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS spaces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS members (
			space_id INTEGER NOT NULL REFERENCES spaces(id),
			user_id INTEGER NOT NULL,
			can_write INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (space_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS components (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			excerpt TEXT,
			full_text TEXT,
			label TEXT NOT NULL,
			tags TEXT,
			author_id INTEGER,
			space_id INTEGER NOT NULL REFERENCES spaces(id),
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_components_label ON components(label)`,
		`CREATE INDEX IF NOT EXISTS idx_components_space ON components(space_id)`,
		`CREATE TABLE IF NOT EXISTS assemblies (
			component_id INTEGER PRIMARY KEY REFERENCES components(id),
			schema_version INTEGER NOT NULL,
			prompt_id INTEGER NOT NULL,
			content_ids TEXT,
			style_id INTEGER,
			compat_score REAL,
			context TEXT,
			pinned INTEGER NOT NULL DEFAULT 0,
			blueprint TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='components_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE components_fts USING fts5(
				title, excerpt, full_text, tags,
				content=components, content_rowid=id
			)`,
			`CREATE TRIGGER components_ai AFTER INSERT ON components BEGIN
				INSERT INTO components_fts(rowid, title, excerpt, full_text, tags)
				VALUES (new.id, new.title, new.excerpt, new.full_text, new.tags);
			END`,
			`CREATE TRIGGER components_ad AFTER DELETE ON components BEGIN
				INSERT INTO components_fts(components_fts, rowid, title, excerpt, full_text, tags)
				VALUES('delete', old.id, old.title, old.excerpt, old.full_text, old.tags);
			END`,
			`CREATE TRIGGER components_au AFTER UPDATE ON components BEGIN
				INSERT INTO components_fts(components_fts, rowid, title, excerpt, full_text, tags)
				VALUES('delete', old.id, old.title, old.excerpt, old.full_text, old.tags);
				INSERT INTO components_fts(rowid, title, excerpt, full_text, tags)
				VALUES (new.id, new.title, new.excerpt, new.full_text, new.tags);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// AddSpace creates a collection scope and returns its id. An existing
// name returns the existing id.
func (s *Store) AddSpace(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM spaces WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up space %q: %w", name, err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO spaces (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("creating space %q: %w", name, err)
	}
	return res.LastInsertId()
}

// AddMember grants a user membership (and optionally write access) on a space.
func (s *Store) AddMember(ctx context.Context, spaceID, userID int64, canWrite bool) error {
	write := 0
	if canWrite {
		write = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (space_id, user_id, can_write) VALUES (?, ?, ?)
		 ON CONFLICT(space_id, user_id) DO UPDATE SET can_write = excluded.can_write`,
		spaceID, userID, write)
	if err != nil {
		return fmt.Errorf("adding member %d to space %d: %w", userID, spaceID, err)
	}
	return nil
}

// AddComponent inserts a component record into a space and returns its id.
func (s *Store) AddComponent(ctx context.Context, c *types.Component, spaceID int64) (int64, error) {
	tagsJSON, err := json.Marshal(c.Tags)
	if err != nil {
		return 0, fmt.Errorf("encoding tags: %w", err)
	}

	label := c.Label
	if label == "" {
		label = string(c.Role)
	}
	if label == "" {
		return 0, fmt.Errorf("component needs a role label")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO components (title, excerpt, full_text, label, tags, author_id, space_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Title, c.Excerpt, c.FullText, label, string(tagsJSON), c.AuthorID, spaceID,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("inserting component: %w", err)
	}
	return res.LastInsertId()
}

// CreateRecord persists a created tool record plus its assembly metadata
// in one transaction, satisfying the engine's Write collaborator.
func (s *Store) CreateRecord(ctx context.Context, rec *types.ToolRecord) (int64, error) {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return 0, fmt.Errorf("encoding tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO components (title, excerpt, full_text, label, tags, author_id, space_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, excerptOf(rec.Body), rec.Body, rec.Label, string(tagsJSON),
		rec.AuthorID, rec.SpaceID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("inserting record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if rec.Assembly.SchemaVersion > 0 {
		contentJSON, err := json.Marshal(rec.Assembly.ContentIDs)
		if err != nil {
			return 0, fmt.Errorf("encoding content ids: %w", err)
		}
		pinned := 0
		if rec.Assembly.Pinned {
			pinned = 1
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO assemblies (component_id, schema_version, prompt_id, content_ids, style_id, compat_score, context, pinned, blueprint)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, rec.Assembly.SchemaVersion, rec.Assembly.PromptID, string(contentJSON),
			rec.Assembly.StyleID, rec.Assembly.CompatScore, rec.Assembly.Context,
			pinned, string(rec.Assembly.Blueprint))
		if err != nil {
			return 0, fmt.Errorf("inserting assembly metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing record: %w", err)
	}
	return id, nil
}

// excerptOf derives a stored excerpt from a record body.
func excerptOf(body string) string {
	const max = 240
	if len(body) <= max {
		return body
	}
	return body[:max]
}
