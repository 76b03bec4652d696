package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/pcaptcha/botsense/internal/signal"
)

// NDJSONExporter appends one JSON line per record to a file, or to stdout
// when the destination is the literal "stdout".
type NDJSONExporter struct {
	dst string

	mu sync.Mutex
	f  *os.File
}

func NewNDJSONExporter() *NDJSONExporter {
	dst := os.Getenv("NDJSON_PATH")
	if dst == "" {
		dst = "records.ndjson"
	}
	return &NDJSONExporter{dst: dst}
}

func (e *NDJSONExporter) Name() string { return "ndjson" }

func (e *NDJSONExporter) Start(ctx context.Context) error {
	if e.dst == "stdout" {
		return nil
	}
	f, err := os.OpenFile(e.dst, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.dst, err)
	}
	e.f = f
	return nil
}

func (e *NDJSONExporter) Publish(rec signal.EnrichedRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.f
	if out == nil {
		out = os.Stdout
	}
	if _, err := out.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (e *NDJSONExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f == nil {
		return nil
	}
	err := e.f.Close()
	e.f = nil
	return err
}
