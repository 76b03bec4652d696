package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pcaptcha/botsense/internal/collector"
	"github.com/pcaptcha/botsense/internal/signal"
	"github.com/pcaptcha/botsense/internal/stats"
	"github.com/pcaptcha/botsense/internal/store"
)

// syntheticSession describes one simulated visitor for test mode.
type syntheticSession struct {
	env        collector.Environment
	moves      int
	keys       int
	clicks     int
	scroll     float64
	dwell      time.Duration
	username   string
	email      string
	isBot      bool
	confidence float64
}

func syntheticSessions() []syntheticSession {
	return []syntheticSession{
		{
			env: collector.Environment{
				UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
				Language:            "en-US",
				Platform:            "Win32",
				ScreenResolution:    "1920x1080",
				Timezone:            "America/New_York",
				HardwareConcurrency: 8,
				DeviceMemoryGB:      16,
			},
			moves: 120, keys: 14, clicks: 5, scroll: 2400, dwell: 45 * time.Second,
			username: "casey", email: "casey@example.com",
			isBot: false, confidence: 0.93,
		},
		{
			env: collector.Environment{
				UserAgent:        "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
				Language:         "en-GB",
				Platform:         "MacIntel",
				ScreenResolution: "1440x900",
				Timezone:         "Europe/London",
			},
			moves: 60, keys: 8, clicks: 3, scroll: 1200, dwell: 20 * time.Second,
			isBot: false, confidence: 0.81,
		},
		{
			// Headless visitor: no movement, no clicks, instant exit.
			env: collector.Environment{
				UserAgent: "Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/119.0",
				Platform:  "Linux x86_64",
			},
			dwell: 800 * time.Millisecond,
			isBot: true, confidence: 0.97,
		},
		{
			// Visitor reporting nothing at all.
			env:   collector.Environment{},
			dwell: 1200 * time.Millisecond,
			isBot: true, confidence: 0.88,
		},
	}
}

// runTestMode drives synthetic sessions through the collector and the
// persistence path against an in-memory store, then prints the aggregate.
// Useful for eyeballing the pipeline without a browser, a classifier
// service, or a database.
func runTestMode(ctx context.Context) {
	log.Println("TEST MODE: generating synthetic sessions...")

	st := store.NewMemStore()
	now := time.Now()

	sessions := syntheticSessions()
	for i, syn := range sessions {
		sess := collector.NewSession(syn.env)
		for m := 0; m < syn.moves; m++ {
			sess.RecordMouseMove(float64(10+m), float64(20+m%7))
		}
		for k := 0; k < syn.keys; k++ {
			sess.RecordKeyPress()
		}
		for c := 0; c < syn.clicks; c++ {
			sess.RecordClick()
		}
		sess.RecordScroll(syn.scroll)
		if syn.username != "" {
			sess.SetIdentity(syn.username, syn.email)
		}

		snap := sess.Snapshot()
		snap.TimeOnPage = syn.dwell.Milliseconds()

		rec := signal.EnrichedRecord{
			Snapshot:   snap,
			RecordID:   uuid.New().String(),
			ReceivedAt: now.Add(time.Duration(i) * time.Second).UTC(),
			IsBot:      syn.isBot,
			Confidence: syn.confidence,
		}
		if err := st.Insert(ctx, rec); err != nil {
			log.Fatalf("test mode: insert: %v", err)
		}
		log.Printf("stored session %d/%d: platform=%s clicks=%d dwell=%s",
			i+1, len(sessions), snap.Platform, snap.ClickCount, syn.dwell)
	}

	records, err := st.FetchAll(ctx)
	if err != nil {
		log.Fatalf("test mode: fetch: %v", err)
	}
	agg := stats.Compute(records)
	out, _ := json.MarshalIndent(agg, "", "  ")
	log.Printf("aggregate over %d records:\n%s", len(records), out)
}
