// Package export fans enriched records out to downstream systems after they
// have been persisted. Exports are best-effort: a failed publish is counted
// and logged but never fails the ingestion request that produced the record.
package export

import (
	"context"

	"github.com/pcaptcha/botsense/internal/signal"
)

type Exporter interface {
	Start(ctx context.Context) error
	Publish(rec signal.EnrichedRecord) error
	Close() error
	Name() string // for metrics and logging
}
