// Package store persists enriched records. The store is append-only: there
// is no update or delete path, and no key stronger than insertion order.
package store

import (
	"context"
	"errors"

	"github.com/pcaptcha/botsense/internal/signal"
)

// ErrNotReady means the store connection is not live. At startup it is
// fatal; on a request path it maps to a 500.
var ErrNotReady = errors.New("store not connected")

type Store interface {
	// Insert appends one record. Identical records stored twice stay two
	// distinct rows.
	Insert(ctx context.Context, rec signal.EnrichedRecord) error
	// FetchAll returns every stored record in storage order.
	FetchAll(ctx context.Context) ([]signal.EnrichedRecord, error)
	Ping(ctx context.Context) error
	Close() error
}
