package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one received notice as kept in the archive database.
type Record struct {
	ID           int64
	SupereventID string
	AlertType    string
	Topic        string
	ReceivedAt   time.Time
	FAR          float64
	Significant  bool
	HasSkymap    bool
	// Path is where the skymap was written, empty when none was.
	Path string
}

// Store is the minimal interface the downloader needs to archive notices.
type Store interface {
	RecordNotice(r Record) error
	ListNotices(limit int) ([]Record, error)
	Close() error
}

// SQLite implements Store on a local sqlite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the archive database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS notices (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		superevent_id TEXT NOT NULL,
		alert_type    TEXT NOT NULL,
		topic         TEXT,
		received_at   TIMESTAMP NOT NULL,
		far           REAL,
		significant   INTEGER NOT NULL DEFAULT 0,
		has_skymap    INTEGER NOT NULL DEFAULT 0,
		path          TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_notices_superevent ON notices(superevent_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// RecordNotice appends one received notice to the archive.
func (s *SQLite) RecordNotice(r Record) error {
	_, err := s.db.Exec(
		`INSERT INTO notices (superevent_id, alert_type, topic, received_at, far, significant, has_skymap, path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SupereventID, r.AlertType, r.Topic, r.ReceivedAt.UTC().Format(time.RFC3339),
		r.FAR, boolToInt(r.Significant), boolToInt(r.HasSkymap), r.Path,
	)
	if err != nil {
		return fmt.Errorf("storage: record notice %s: %w", r.SupereventID, err)
	}
	return nil
}

// ListNotices returns the most recently received notices, newest first.
// limit <= 0 means no limit.
func (s *SQLite) ListNotices(limit int) ([]Record, error) {
	q := `SELECT id, superevent_id, alert_type, topic, received_at, far, significant, has_skymap, path
	      FROM notices ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list notices: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var received string
		var significant, hasSkymap int
		if err := rows.Scan(&r.ID, &r.SupereventID, &r.AlertType, &r.Topic, &received,
			&r.FAR, &significant, &hasSkymap, &r.Path); err != nil {
			return nil, fmt.Errorf("storage: scan notice: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, received); err == nil {
			r.ReceivedAt = t
		}
		r.Significant = significant != 0
		r.HasSkymap = hasSkymap != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
