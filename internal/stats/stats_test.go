package stats

import (
	"testing"

	"github.com/pcaptcha/botsense/internal/signal"
)

func rec(clicks int, timeOnPage int64, platform string) signal.EnrichedRecord {
	return signal.EnrichedRecord{
		Snapshot: signal.Snapshot{
			ClickCount: clicks,
			TimeOnPage: timeOnPage,
			Platform:   platform,
		},
	}
}

func TestCompute(t *testing.T) {
	t.Run("means and heuristic split", func(t *testing.T) {
		records := []signal.EnrichedRecord{
			rec(1, 2000, "Win32"),
			rec(5, 10000, "Win32"),
		}

		agg := Compute(records)
		if agg.Sessions != 2 {
			t.Errorf("Sessions = %d, want 2", agg.Sessions)
		}
		if agg.AvgClickCount != 3 {
			t.Errorf("AvgClickCount = %v, want 3", agg.AvgClickCount)
		}
		if agg.AvgTimeOnPageMS != 6000 {
			t.Errorf("AvgTimeOnPageMS = %v, want 6000", agg.AvgTimeOnPageMS)
		}
		if agg.BotCount != 1 || agg.HumanCount != 1 {
			t.Errorf("split = %d/%d, want 1/1", agg.BotCount, agg.HumanCount)
		}
	})

	t.Run("empty record set yields zeros", func(t *testing.T) {
		agg := Compute(nil)
		if agg.Sessions != 0 {
			t.Errorf("Sessions = %d, want 0", agg.Sessions)
		}
		if agg.AvgClickCount != 0 || agg.AvgTimeOnPageMS != 0 {
			t.Errorf("means = (%v, %v), want zeros", agg.AvgClickCount, agg.AvgTimeOnPageMS)
		}
		if agg.Platforms == nil {
			t.Error("Platforms should be an empty map, not nil")
		}
	})

	t.Run("platform histogram buckets missing values as Unknown", func(t *testing.T) {
		records := []signal.EnrichedRecord{
			rec(0, 0, "Win32"),
			rec(0, 0, "Win32"),
			rec(0, 0, "MacIntel"),
			rec(0, 0, ""),
		}

		agg := Compute(records)
		if agg.Platforms["Win32"] != 2 {
			t.Errorf("Platforms[Win32] = %d, want 2", agg.Platforms["Win32"])
		}
		if agg.Platforms["MacIntel"] != 1 {
			t.Errorf("Platforms[MacIntel] = %d, want 1", agg.Platforms["MacIntel"])
		}
		if agg.Platforms["Unknown"] != 1 {
			t.Errorf("Platforms[Unknown] = %d, want 1", agg.Platforms["Unknown"])
		}
	})

	t.Run("heuristic split is independent of classifier verdicts", func(t *testing.T) {
		quick := rec(0, 1000, "Win32") // heuristic bot
		quick.IsBot = false            // model disagrees
		slow := rec(9, 60000, "Win32") // heuristic human
		slow.IsBot = true              // model disagrees

		agg := Compute([]signal.EnrichedRecord{quick, slow})
		if agg.BotCount != 1 || agg.HumanCount != 1 {
			t.Errorf("heuristic split = %d/%d, want 1/1", agg.BotCount, agg.HumanCount)
		}
		if agg.ClassifierBots != 1 || agg.ClassifierHumans != 1 {
			t.Errorf("classifier split = %d/%d, want 1/1", agg.ClassifierBots, agg.ClassifierHumans)
		}
	})
}

func TestHeuristicIsBot(t *testing.T) {
	tests := []struct {
		name   string
		clicks int
		timeMS int64
		want   bool
	}{
		{name: "no interaction and instant exit", clicks: 0, timeMS: 500, want: true},
		{name: "one click under threshold", clicks: 1, timeMS: 2999, want: true},
		{name: "two clicks is human", clicks: 2, timeMS: 1000, want: false},
		{name: "long dwell is human", clicks: 0, timeMS: 3000, want: false},
		{name: "engaged session", clicks: 10, timeMS: 60000, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicIsBot(rec(tt.clicks, tt.timeMS, ""))
			if got != tt.want {
				t.Errorf("HeuristicIsBot(clicks=%d, time=%d) = %v, want %v",
					tt.clicks, tt.timeMS, got, tt.want)
			}
		})
	}
}
