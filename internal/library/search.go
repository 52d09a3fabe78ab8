// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// Search returns permission-filtered candidates for one role, ranked by
// FTS relevance. Scores are left at zero; the engine's ranker assigns
// them. An empty or operator-free query falls back to newest-first.
func (s *Store) Search(ctx context.Context, query string, role types.Role, limit int, caller types.Requester) ([]types.Candidate, error) {
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)

	match := ftsQuery(query)
	if match != "" {
		qb.WriteString(
			`SELECT c.id, c.title, c.excerpt, c.tags, c.label
			FROM components_fts
			JOIN components c ON c.id = components_fts.rowid
			WHERE components_fts MATCH ?`)
		args = append(args, match)
	} else {
		qb.WriteString(
			`SELECT c.id, c.title, c.excerpt, c.tags, c.label
			FROM components c
			WHERE 1=1`)
	}

	qb.WriteString(` AND c.label = ?`)
	args = append(args, string(role))

	qb.WriteString(` AND c.space_id IN (SELECT space_id FROM members WHERE user_id = ?)`)
	args = append(args, caller.UserID)

	if match != "" {
		qb.WriteString(` ORDER BY components_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY c.created_at DESC`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching components: %w", err)
	}
	defer rows.Close()

	var candidates []types.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows, role)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Fetch resolves a component by id, enforcing readability through space
// membership. Missing or unreadable records return an error.
func (s *Store) Fetch(ctx context.Context, id int64, caller types.Requester) (*types.Component, error) {
	var (
		c        types.Component
		tagsJSON sql.NullString
		label    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.title, c.excerpt, c.full_text, c.label, c.tags, c.author_id
		FROM components c
		WHERE c.id = ?
		  AND c.space_id IN (SELECT space_id FROM members WHERE user_id = ?)`,
		id, caller.UserID,
	).Scan(&c.ID, &c.Title, &c.Excerpt, &c.FullText, &label, &tagsJSON, &c.AuthorID)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("component %d not found or not accessible", id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching component %d: %w", id, err)
	}

	c.Label = label
	if role, perr := types.ParseRole(label); perr == nil {
		c.Role = role
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &c.Tags)
	}
	return &c, nil
}

// CanRead reports whether the caller's space memberships cover the
// component's space.
func (s *Store) CanRead(ctx context.Context, id int64, caller types.Requester) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM components c
		 JOIN members m ON m.space_id = c.space_id
		 WHERE c.id = ? AND m.user_id = ?`,
		id, caller.UserID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking read permission: %w", err)
	}
	return n > 0, nil
}

// CanWrite reports whether the caller holds write membership on the space.
func (s *Store) CanWrite(ctx context.Context, spaceID int64, caller types.Requester) (bool, error) {
	var canWrite int
	err := s.db.QueryRowContext(ctx,
		`SELECT can_write FROM members WHERE space_id = ? AND user_id = ?`,
		spaceID, caller.UserID,
	).Scan(&canWrite)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking write permission: %w", err)
	}
	return canWrite == 1, nil
}

// List returns the caller-visible components with an optional label
// filter, newest first.
func (s *Store) List(ctx context.Context, label string, caller types.Requester) ([]types.Candidate, error) {
	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT c.id, c.title, c.excerpt, c.tags, c.label
		FROM components c
		WHERE c.space_id IN (SELECT space_id FROM members WHERE user_id = ?)`)
	args = append(args, caller.UserID)

	if label != "" {
		qb.WriteString(` AND c.label = ?`)
		args = append(args, label)
	}
	qb.WriteString(` ORDER BY c.created_at DESC LIMIT ?`)
	args = append(args, s.maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	defer rows.Close()

	var out []types.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows, "")
		if err != nil {
			return nil, err
		}
		if role, perr := types.ParseRole(c.Label); perr == nil {
			c.Role = role
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCandidate(rows *sql.Rows, role types.Role) (types.Candidate, error) {
	var (
		c        types.Candidate
		excerpt  sql.NullString
		tagsJSON sql.NullString
	)
	if err := rows.Scan(&c.ID, &c.Title, &excerpt, &tagsJSON, &c.Label); err != nil {
		return c, fmt.Errorf("scanning component row: %w", err)
	}
	c.Role = role
	if excerpt.Valid {
		c.Excerpt = excerpt.String
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &c.Tags)
	}
	return c, nil
}

// ftsQuery sanitizes free text into an FTS5 OR-query of quoted tokens so
// user input cannot inject FTS operators.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	var tokens []string
	for _, f := range fields {
		f = strings.Trim(f, `"'`)
		f = strings.Map(func(r rune) rune {
			if r == '"' {
				return -1
			}
			return r
		}, f)
		if f == "" {
			continue
		}
		tokens = append(tokens, `"`+f+`"`)
	}
	return strings.Join(tokens, " OR ")
}
