package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/pcaptcha/botsense/internal/signal"
)

// SQLiteStore is the local/dev backend: same append-only contract as the
// Postgres store, one file on disk.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	// WAL + busy timeout to avoid "database is locked" under concurrent
	// request handlers.
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	ddl := `CREATE TABLE IF NOT EXISTS records(
		id          INTEGER PRIMARY KEY,
		received_at TEXT NOT NULL,
		payload     TEXT NOT NULL CHECK (json_valid(payload))
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec signal.EnrichedRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records(received_at, payload) VALUES(?, json(?))`,
		rec.ReceivedAt.UTC().Format(time.RFC3339Nano),
		string(payload))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FetchAll(ctx context.Context) ([]signal.EnrichedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer rows.Close()

	records := []signal.EnrichedRecord{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec signal.EnrichedRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
