package assets

import (
	"strings"
	"testing"
)

// The browser collector must mirror the Go collector's semantics: same ring
// capacity, same send cadence, and chronological sample order once the ring
// wraps. These are content checks only; the script itself runs in a browser.
func TestSignalsScriptParity(t *testing.T) {
	script := string(SignalsJS)

	if !strings.Contains(script, "MOVE_CAPACITY = 512") {
		t.Error("collector script ring capacity differs from the server default")
	}
	if !strings.Contains(script, "SEND_INTERVAL_MS = 10000") {
		t.Error("collector script send interval is not 10s")
	}
	if !strings.Contains(script, "moves.slice(moveNext).concat(moves.slice(0, moveNext))") {
		t.Error("collector script does not rotate the wrapped ring into chronological order")
	}
	if !strings.Contains(script, "mouseMoves: orderedMoves()") {
		t.Error("collector script does not send the ordered samples")
	}
}

func TestEmbeddedBundleNonEmpty(t *testing.T) {
	for name, body := range map[string][]byte{
		"index.html":   IndexHTML,
		"signals.js":   SignalsJS,
		"dashboard":    DashboardHTML,
		"dashboard.js": DashboardJS,
	} {
		if len(body) == 0 {
			t.Errorf("embedded asset %s is empty", name)
		}
	}
}
