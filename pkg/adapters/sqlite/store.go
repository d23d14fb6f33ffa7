// Package sqlite provides an embedded, SQLite-backed progress store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/lessonweave/pkg/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	profile_id TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store implements ports.ProgressStore on a SQLite database.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) a SQLite progress store at path.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != dsn {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a distinct database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save upserts the progress document of a profile.
func (s *Store) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	if strings.TrimSpace(profileID) == "" {
		return fmt.Errorf("profile id is required")
	}
	doc, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO progress (profile_id, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(profile_id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		profileID, string(doc), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Load retrieves the progress document of a profile.
func (s *Store) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	var doc string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT document FROM progress WHERE profile_id = ?`, profileID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}

	var progress domain.Progress
	if err := json.Unmarshal([]byte(doc), &progress); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	return &progress, nil
}

// Delete removes the progress document of a profile.
func (s *Store) Delete(ctx context.Context, profileID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM progress WHERE profile_id = ?`, profileID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

// List returns all profile ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT profile_id FROM progress ORDER BY profile_id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}
