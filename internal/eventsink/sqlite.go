package eventsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dyluth/switchboard/pkg/ami"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteSink appends records to a local SQLite database.
type SQLiteSink struct {
	db      *sql.DB
	session string
	path    string
}

// OpenSQLite opens (creating if needed) the database at path. Records are
// stored under session; an empty session gets a generated one.
func OpenSQLite(path, session string) (*SQLiteSink, error) {
	if session == "" {
		session = NewSessionID()
	}
	if err := ValidateSessionID(session); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection avoids "database is locked" between the pump and readers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		seq INTEGER NOT NULL,
		received_at INTEGER NOT NULL,
		name TEXT NOT NULL,
		record TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS events_received_at ON events (received_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create events index: %w", err)
	}

	log.Printf("[Sink] SQLite sink open at %s (session %s)", path, session)
	return &SQLiteSink{db: db, session: session, path: path}, nil
}

// Session returns the session records are stored under.
func (s *SQLiteSink) Session() string {
	return s.session
}

// Append implements ami.Sink.
func (s *SQLiteSink) Append(ctx context.Context, e ami.Entry) error {
	data, err := json.Marshal(e.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (session, seq, received_at, name, record) VALUES (?, ?, ?, ?, ?)`,
		s.session, int64(e.Seq), e.ReceivedAt.UnixNano(), e.Record.Name(), string(data))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Query selects stored records. Zero fields do not filter.
type Query struct {
	Session          string
	SinceTimestampMs int64  // inclusive
	UntilTimestampMs int64  // inclusive
	NameGlob         string // SQLite GLOB syntax, same as filepath.Match for * and ?
	Seq              uint64
	Limit            int
}

// Query returns matching records, oldest first.
func (s *SQLiteSink) Query(ctx context.Context, q Query) ([]StoredEntry, error) {
	stmt := `SELECT session, seq, received_at, name, record FROM events WHERE 1=1`
	var args []any
	if q.Session != "" {
		stmt += ` AND session = ?`
		args = append(args, q.Session)
	}
	if q.SinceTimestampMs > 0 {
		stmt += ` AND received_at >= ?`
		args = append(args, time.UnixMilli(q.SinceTimestampMs).UnixNano())
	}
	if q.UntilTimestampMs > 0 {
		stmt += ` AND received_at < ?`
		args = append(args, time.UnixMilli(q.UntilTimestampMs+1).UnixNano())
	}
	if q.NameGlob != "" {
		stmt += ` AND name GLOB ?`
		args = append(args, q.NameGlob)
	}
	if q.Seq > 0 {
		stmt += ` AND seq = ?`
		args = append(args, int64(q.Seq))
	}
	stmt += ` ORDER BY received_at, id`
	if q.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredEntry
	for rows.Next() {
		var (
			e          StoredEntry
			seq        int64
			receivedAt int64
			record     string
		)
		if err := rows.Scan(&e.Session, &seq, &receivedAt, &e.Name, &record); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal([]byte(record), &e.Record); err != nil {
			return nil, fmt.Errorf("decode record %s/%d: %w", e.Session, seq, err)
		}
		e.Seq = uint64(seq)
		e.ReceivedAt = time.Unix(0, receivedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Sessions lists the sessions present in the database, most recent first.
func (s *SQLiteSink) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session FROM events GROUP BY session ORDER BY MAX(received_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
