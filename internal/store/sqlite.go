package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"labelboard/pkg/diagram"
)

// SQLiteStore persists diagrams as JSON blobs keyed by session id.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS diagrams (
			session_id TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS permissions (
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			PRIMARY KEY (session_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS tags (
			session_id TEXT PRIMARY KEY,
			tags_json TEXT NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LoadDiagram(ctx context.Context, sessionID string) (*diagram.Diagram, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM diagrams WHERE session_id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Lenient decode: a corrupt row degrades to the default document.
	return diagram.DecodeJSON([]byte(raw)), nil
}

func (s *SQLiteStore) SaveDiagram(ctx context.Context, sessionID string, d *diagram.Diagram) error {
	if d == nil {
		return errors.New("store: diagram is nil")
	}
	raw, err := diagram.EncodeJSON(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO diagrams(session_id, json, updated_at_unixms) VALUES(?, ?, ?)`,
		sessionID, string(raw), time.Now().UTC().UnixMilli())
	return err
}

// Permission resolves a user's role on a session. A session with no
// permission rows at all belongs to whoever opens it first (owner); once
// any row exists, users without one get view access.
func (s *SQLiteStore) Permission(ctx context.Context, sessionID, userID string) (Permission, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role FROM permissions WHERE session_id = ? AND user_id = ?`, sessionID, userID).Scan(&role)
	if err == nil {
		switch p := Permission(role); p {
		case PermissionOwner, PermissionEdit, PermissionView:
			return p, nil
		}
		return PermissionView, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return PermissionView, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM permissions WHERE session_id = ?`, sessionID).Scan(&n); err != nil {
		return PermissionView, err
	}
	if n == 0 {
		return PermissionOwner, nil
	}
	return PermissionView, nil
}

func (s *SQLiteStore) GrantPermission(ctx context.Context, sessionID, userID string, p Permission) error {
	switch p {
	case PermissionOwner, PermissionEdit, PermissionView:
	default:
		return errors.New("store: unknown permission role")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO permissions(session_id, user_id, role) VALUES(?, ?, ?)`,
		sessionID, userID, string(p))
	return err
}

func (s *SQLiteStore) Tags(ctx context.Context, sessionID string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT tags_json FROM tags WHERE session_id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, nil
	}
	return out, nil
}

func (s *SQLiteStore) SetTags(ctx context.Context, sessionID string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tags(session_id, tags_json) VALUES(?, ?)`,
		sessionID, string(raw))
	return err
}
