package store

import (
	"context"
	"sync"

	"github.com/pcaptcha/botsense/internal/signal"
)

// MemStore keeps records in process memory. Used by test mode and tests;
// same append-only contract as the durable backends.
type MemStore struct {
	mu      sync.Mutex
	records []signal.EnrichedRecord
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Insert(ctx context.Context, rec signal.EnrichedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemStore) FetchAll(ctx context.Context) ([]signal.EnrichedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]signal.EnrichedRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Close() error { return nil }
