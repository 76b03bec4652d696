package store

import (
	"context"
	"sync"
	"testing"

	"github.com/pcaptcha/botsense/internal/signal"
)

func TestMemStore(t *testing.T) {
	t.Run("append and fetch", func(t *testing.T) {
		s := NewMemStore()
		ctx := context.Background()

		if err := s.Insert(ctx, signal.EnrichedRecord{RecordID: "a"}); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
		if err := s.Insert(ctx, signal.EnrichedRecord{RecordID: "b"}); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}

		records, err := s.FetchAll(ctx)
		if err != nil {
			t.Fatalf("FetchAll() failed: %v", err)
		}
		if len(records) != 2 || records[0].RecordID != "a" || records[1].RecordID != "b" {
			t.Errorf("records = %+v", records)
		}
	})

	t.Run("fetch returns a copy", func(t *testing.T) {
		s := NewMemStore()
		ctx := context.Background()
		_ = s.Insert(ctx, signal.EnrichedRecord{RecordID: "a"})

		records, _ := s.FetchAll(ctx)
		records[0].RecordID = "mutated"

		again, _ := s.FetchAll(ctx)
		if again[0].RecordID != "a" {
			t.Errorf("stored record mutated through the returned slice")
		}
	})

	t.Run("concurrent inserts", func(t *testing.T) {
		s := NewMemStore()
		ctx := context.Background()

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_ = s.Insert(ctx, signal.EnrichedRecord{})
				}
			}()
		}
		wg.Wait()

		records, _ := s.FetchAll(ctx)
		if len(records) != 400 {
			t.Errorf("len(records) = %d, want 400", len(records))
		}
	})
}
