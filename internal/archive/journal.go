package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SourceTimestamp marks records produced by the periodic stamper.
const SourceTimestamp = "timestamp"

// Entry is one journaled record.
type Entry struct {
	ID           int64
	RecordedAt   time.Time
	Source       string
	ConnectionID string
	Payload      []byte
}

// Journal is the SQLite-backed record history.
type Journal struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("archive path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Connections race on pragmas and migrations otherwise.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string { return j.path }

// Record appends one committed record. connID may be empty.
func (j *Journal) Record(ctx context.Context, source, connID string, payload []byte) error {
	if j == nil || j.db == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO records (recorded_at, source, size, payload, connection_id) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		source,
		len(payload),
		payload,
		nullableString(connID),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, recorded_at, source, connection_id, payload FROM records ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			recordedAt string
			connID     sql.NullString
		)
		if err := rows.Scan(&e.ID, &recordedAt, &e.Source, &connID, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			e.RecordedAt = ts
		}
		e.ConnectionID = connID.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Count returns the number of journaled records.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
