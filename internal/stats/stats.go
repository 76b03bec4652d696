// Package stats computes reporting aggregates over the full stored record
// set. The bot/human split here is a fixed heuristic and deliberately
// independent of the classifier's stored verdicts; the two signals are
// allowed to disagree and both stay observable.
package stats

import (
	"github.com/pcaptcha/botsense/internal/signal"
)

// Heuristic thresholds: a session with almost no clicks that leaves almost
// immediately is counted as a bot.
const (
	heuristicMaxClicks   = 2
	heuristicMaxTimeMS   = 3000
	unknownPlatformLabel = "Unknown"
)

// Aggregate is recomputed per request and never persisted.
type Aggregate struct {
	Sessions         int            `json:"sessions"`
	AvgTimeOnPageMS  float64        `json:"avg_time_on_page_ms"`
	AvgClickCount    float64        `json:"avg_click_count"`
	BotCount         int            `json:"bot_count"`
	HumanCount       int            `json:"human_count"`
	ClassifierBots   int            `json:"classifier_bot_count"`
	ClassifierHumans int            `json:"classifier_human_count"`
	Platforms        map[string]int `json:"platforms"`
}

// Compute derives the aggregate from every stored record. An empty input
// yields a zero-valued aggregate rather than dividing by zero.
func Compute(records []signal.EnrichedRecord) Aggregate {
	agg := Aggregate{Platforms: map[string]int{}}
	agg.Sessions = len(records)
	if agg.Sessions == 0 {
		return agg
	}

	var totalTime, totalClicks int64
	for _, rec := range records {
		totalTime += rec.TimeOnPage
		totalClicks += int64(rec.ClickCount)

		if HeuristicIsBot(rec) {
			agg.BotCount++
		} else {
			agg.HumanCount++
		}
		if rec.IsBot {
			agg.ClassifierBots++
		} else {
			agg.ClassifierHumans++
		}

		platform := rec.Platform
		if platform == "" {
			platform = unknownPlatformLabel
		}
		agg.Platforms[platform]++
	}

	agg.AvgTimeOnPageMS = float64(totalTime) / float64(agg.Sessions)
	agg.AvgClickCount = float64(totalClicks) / float64(agg.Sessions)
	return agg
}

// HeuristicIsBot applies the dashboard rule: fewer than two clicks and less
// than three seconds on the page.
func HeuristicIsBot(rec signal.EnrichedRecord) bool {
	return rec.ClickCount < heuristicMaxClicks && rec.TimeOnPage < heuristicMaxTimeMS
}
