package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/pcaptcha/botsense/internal/signal"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenSQLite(t *testing.T) {
	t.Run("creates the database file", func(t *testing.T) {
		s := newSQLiteStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping() failed: %v", err)
		}
	})

	t.Run("rejects empty path", func(t *testing.T) {
		if _, err := OpenSQLite(context.Background(), ""); err == nil {
			t.Error("expected error for empty path")
		}
	})
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	first := signal.EnrichedRecord{
		Snapshot: signal.Snapshot{
			Platform:   "Win32",
			ClickCount: 1,
			TimeOnPage: 2000,
			Extra:      map[string]json.RawMessage{"batteryLevel": []byte(`42`)},
		},
		RecordID:   "rec-1",
		ReceivedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		IsBot:      true,
		Confidence: 0.95,
	}
	second := first
	second.RecordID = "rec-2"
	second.Snapshot.Platform = "MacIntel"

	if err := s.Insert(ctx, first); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := s.Insert(ctx, second); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	records, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	got := records[0]
	if got.RecordID != "rec-1" || got.Platform != "Win32" {
		t.Errorf("records[0] = %+v", got)
	}
	if !got.IsBot || got.Confidence != 0.95 {
		t.Errorf("verdict = (%v, %v)", got.IsBot, got.Confidence)
	}
	if !got.ReceivedAt.Equal(first.ReceivedAt) {
		t.Errorf("ReceivedAt = %v, want %v", got.ReceivedAt, first.ReceivedAt)
	}
	if string(got.Extra["batteryLevel"]) != "42" {
		t.Errorf("Extra[batteryLevel] = %s", got.Extra["batteryLevel"])
	}
	if records[1].Platform != "MacIntel" {
		t.Errorf("records[1].Platform = %q", records[1].Platform)
	}
}

func TestSQLiteStoreDuplicatesAreKept(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	rec := signal.EnrichedRecord{
		Snapshot:   signal.Snapshot{ClickCount: 1},
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() failed: %v", err)
	}

	records, err := s.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("len(records) = %d, want 2 (no deduplication)", len(records))
	}
}

func TestSQLiteStoreEmpty(t *testing.T) {
	s := newSQLiteStore(t)

	records, err := s.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %v, want empty non-nil slice", records)
	}
}
