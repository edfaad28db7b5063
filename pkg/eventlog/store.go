package eventlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the durable SQLite archive behind the in-memory ring. It keeps
// full event history so polling clients can recover past the ring floor
// and the log can resume its index sequence after a restart.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the archive database and its schema.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(2)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return s, nil
}

// Close closes the archive database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		idx        INTEGER PRIMARY KEY,
		timestamp  TEXT NOT NULL,
		kind       TEXT NOT NULL,
		body       TEXT NOT NULL,
		command_id TEXT NOT NULL,
		reason     TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_events_command ON events(command_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Archive writes one append batch transactionally. Implements Archiver.
func (s *Store) Archive(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO events (idx, timestamp, kind, body, command_id, reason)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(
			ev.Index,
			ev.Timestamp.Format(time.RFC3339Nano),
			string(ev.Kind),
			ev.Body,
			ev.CommandID,
			ev.Reason,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// HighWatermark returns the largest archived index, 0 when empty.
func (s *Store) HighWatermark() (uint64, error) {
	var wm sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(idx) FROM events`).Scan(&wm); err != nil {
		return 0, err
	}
	if !wm.Valid {
		return 0, nil
	}
	return uint64(wm.Int64), nil
}

// FetchSince reads archived events with index > since, oldest first,
// capped at limit (0 = no cap).
func (s *Store) FetchSince(since uint64, limit int) ([]Event, error) {
	query := `SELECT idx, timestamp, kind, body, command_id, reason
		  FROM events WHERE idx > ? ORDER BY idx`
	args := []any{since}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var ts, kind string
		if err := rows.Scan(&ev.Index, &ts, &kind, &ev.Body, &ev.CommandID, &ev.Reason); err != nil {
			return nil, err
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		ev.Kind = EventKind(kind)
		out = append(out, ev)
	}
	return out, rows.Err()
}
