package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"

	"github.com/pcaptcha/botsense/internal/signal"
)

// PGStore keeps records in a Postgres JSONB table. The *sql.DB pool is safe
// for concurrent request handlers.
type PGStore struct {
	db    *sql.DB
	table string
}

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName rejects anything that cannot be safely interpolated
// into DDL/DML. Postgres identifiers top out at 63 bytes.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("table name %q exceeds 63 characters", name)
	}
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("table name %q contains invalid characters", name)
	}
	return nil
}

// OpenPG connects, verifies the connection, and ensures the table exists.
// A dead connection string is a startup failure, not something to limp past.
func OpenPG(ctx context.Context, dsn, table string) (*PGStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := NewPGStore(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPGStore wraps an existing pool, for callers that manage the
// connection themselves (and for tests).
func NewPGStore(ctx context.Context, db *sql.DB, table string) (*PGStore, error) {
	if err := validateTableName(table); err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id          BIGSERIAL PRIMARY KEY,
		received_at TIMESTAMPTZ NOT NULL,
		payload     JSONB NOT NULL
	)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return &PGStore{db: db, table: table}, nil
}

func (s *PGStore) Insert(ctx context.Context, rec signal.EnrichedRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	query := fmt.Sprintf("INSERT INTO %s (received_at, payload) VALUES ($1, $2)", s.table)
	if _, err := s.db.ExecContext(ctx, query, rec.ReceivedAt, payload); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *PGStore) FetchAll(ctx context.Context) ([]signal.EnrichedRecord, error) {
	query := fmt.Sprintf("SELECT payload FROM %s ORDER BY id", s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer rows.Close()

	records := []signal.EnrichedRecord{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec signal.EnrichedRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	return records, nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	return nil
}

func (s *PGStore) Close() error {
	return s.db.Close()
}
