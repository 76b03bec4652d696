package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"sort"
	"strings"
)

// RequestSignals are server-observed facts about the HTTP request that
// carried a snapshot. They are raw signals for the classifier and for
// offline analysis; no scoring happens here.
type RequestSignals struct {
	HeaderFingerprint string   `json:"header_fingerprint,omitempty"`
	HeaderCount       int      `json:"header_count,omitempty"`
	MissingExpected   []string `json:"missing_expected,omitempty"`

	UALength           int      `json:"ua_length,omitempty"`
	UAContainsBot      bool     `json:"ua_contains_automation,omitempty"`
	AutomationKeywords []string `json:"automation_keywords,omitempty"`

	RemoteIP string `json:"remote_ip,omitempty"`
}

var automationKeywords = []string{
	"headless", "selenium", "webdriver", "puppeteer",
	"playwright", "phantom", "jsdom", "nightmare",
	"chrome-headless", "automated", "bot", "crawler",
}

var expectedHeaders = []string{"User-Agent", "Accept", "Accept-Language", "Accept-Encoding"}

// AnalyzeRequest extracts request-level signals from an ingestion request.
func AnalyzeRequest(r *http.Request) *RequestSignals {
	sig := &RequestSignals{
		HeaderFingerprint: headerFingerprint(r.Header),
		HeaderCount:       len(r.Header),
		RemoteIP:          clientIP(r),
	}

	for _, h := range expectedHeaders {
		if r.Header.Get(h) == "" {
			sig.MissingExpected = append(sig.MissingExpected, h)
		}
	}

	ua := r.UserAgent()
	sig.UALength = len(ua)
	lower := strings.ToLower(ua)
	for _, kw := range automationKeywords {
		if strings.Contains(lower, kw) {
			sig.UAContainsBot = true
			sig.AutomationKeywords = append(sig.AutomationKeywords, kw)
		}
	}

	return sig
}

// headerFingerprint hashes the sorted header names plus value prefixes.
// The same browser build tends to produce a stable fingerprint; automation
// frameworks tend to cluster on a handful of values.
func headerFingerprint(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, strings.ToLower(key))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := headers.Get(key)
		if len(value) > 20 {
			value = value[:20]
		}
		parts = append(parts, key+":"+value)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:8])
}

// MoveTiming summarizes the inter-sample intervals of a pointer-move log.
// Real pointer events arrive with display-refresh jitter; synthetic movement
// driven by a timer lands on suspiciously round intervals.
type MoveTiming struct {
	Samples        int     `json:"samples"`
	MeanIntervalMS float64 `json:"mean_interval_ms"`
	// IntervalPrecision is the coarsest round step (in ms) that every
	// interval snaps to: 0 for organic jitter, 10/50/100/500/1000 for
	// timer-driven movement.
	IntervalPrecision int64 `json:"interval_precision_ms,omitempty"`
}

var precisionSteps = []int64{1000, 500, 100, 50, 10}

// AnalyzeMoveTiming derives timing signals from the sample timestamps.
// Fewer than two samples carry no interval information, so the result is nil.
func AnalyzeMoveTiming(moves []MouseSample) *MoveTiming {
	if len(moves) < 2 {
		return nil
	}

	var total int64
	intervals := make([]int64, 0, len(moves)-1)
	for i := 1; i < len(moves); i++ {
		d := moves[i].T - moves[i-1].T
		if d < 0 {
			// Out-of-order timestamps mean the log can't be trusted for
			// timing analysis.
			return &MoveTiming{Samples: len(moves)}
		}
		intervals = append(intervals, d)
		total += d
	}

	timing := &MoveTiming{
		Samples:        len(moves),
		MeanIntervalMS: float64(total) / float64(len(intervals)),
	}
	for _, step := range precisionSteps {
		if allSnapTo(intervals, step) {
			timing.IntervalPrecision = step
			break
		}
	}
	return timing
}

func allSnapTo(intervals []int64, step int64) bool {
	for _, d := range intervals {
		if d == 0 || d%step != 0 {
			return false
		}
	}
	return true
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
