package collector

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestEnvironmentDefaults(t *testing.T) {
	t.Run("missing facts fall back to Unknown", func(t *testing.T) {
		sess := NewSession(Environment{})
		snap := sess.Snapshot()

		if snap.UserAgent != "Unknown" {
			t.Errorf("UserAgent = %q, want Unknown", snap.UserAgent)
		}
		if snap.Platform != "Unknown" {
			t.Errorf("Platform = %q, want Unknown", snap.Platform)
		}
		if snap.Timezone != "Unknown" {
			t.Errorf("Timezone = %q, want Unknown", snap.Timezone)
		}
		if string(snap.DeviceMemory) != `"Unknown"` {
			t.Errorf("DeviceMemory = %s, want \"Unknown\"", snap.DeviceMemory)
		}
	})

	t.Run("provided facts are kept", func(t *testing.T) {
		sess := NewSession(Environment{
			UserAgent:      "test-agent",
			Platform:       "Win32",
			DeviceMemoryGB: 8,
		})
		snap := sess.Snapshot()

		if snap.UserAgent != "test-agent" {
			t.Errorf("UserAgent = %q", snap.UserAgent)
		}
		if string(snap.DeviceMemory) != "8" {
			t.Errorf("DeviceMemory = %s, want 8", snap.DeviceMemory)
		}
	})
}

func TestBehavioralCounters(t *testing.T) {
	sess := NewSession(Environment{})

	sess.RecordKeyPress()
	sess.RecordKeyPress()
	sess.RecordClick()
	sess.RecordScroll(400)
	sess.RecordScroll(150) // below running max, must not shrink
	sess.RecordScroll(900)

	snap := sess.Snapshot()
	if snap.KeyPressCount != 2 {
		t.Errorf("KeyPressCount = %d, want 2", snap.KeyPressCount)
	}
	if snap.ClickCount != 1 {
		t.Errorf("ClickCount = %d, want 1", snap.ClickCount)
	}
	if snap.ScrollDepth != 900 {
		t.Errorf("ScrollDepth = %v, want 900", snap.ScrollDepth)
	}

	// Counters are cumulative across snapshots.
	sess.RecordClick()
	snap2 := sess.Snapshot()
	if snap2.ClickCount != 2 {
		t.Errorf("ClickCount after second snapshot = %d, want 2", snap2.ClickCount)
	}
}

func TestMoveRing(t *testing.T) {
	t.Run("keeps newest samples once full", func(t *testing.T) {
		sess := NewSessionCap(Environment{}, 3)
		for i := 0; i < 5; i++ {
			sess.RecordMouseMove(float64(i), 0)
		}
		snap := sess.Snapshot()
		if len(snap.MouseMoves) != 3 {
			t.Fatalf("len(MouseMoves) = %d, want 3", len(snap.MouseMoves))
		}
		for i, want := range []float64{2, 3, 4} {
			if snap.MouseMoves[i].X != want {
				t.Errorf("MouseMoves[%d].X = %v, want %v", i, snap.MouseMoves[i].X, want)
			}
		}
	})

	t.Run("empty ring yields no samples", func(t *testing.T) {
		sess := NewSession(Environment{})
		if moves := sess.Snapshot().MouseMoves; len(moves) != 0 {
			t.Errorf("MouseMoves = %v, want empty", moves)
		}
	})
}

func TestTimeOnPageReadAndReset(t *testing.T) {
	sess := NewSession(Environment{})
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	sess.now = func() time.Time { return clock }
	sess.baseline = base

	clock = base.Add(4 * time.Second)
	snap1 := sess.Snapshot()
	if snap1.TimeOnPage != 4000 {
		t.Errorf("first TimeOnPage = %d, want 4000", snap1.TimeOnPage)
	}

	// The baseline resets on read; the next snapshot covers only the new
	// interval, not the whole session.
	clock = base.Add(7 * time.Second)
	snap2 := sess.Snapshot()
	if snap2.TimeOnPage != 3000 {
		t.Errorf("second TimeOnPage = %d, want 3000", snap2.TimeOnPage)
	}
}

func TestSetIdentity(t *testing.T) {
	sess := NewSession(Environment{})

	if snap := sess.Snapshot(); snap.Username != "" || snap.Email != "" {
		t.Errorf("identity before submit = (%q, %q), want empty", snap.Username, snap.Email)
	}

	sess.SetIdentity("casey", "casey@example.com")
	snap := sess.Snapshot()
	if snap.Username != "casey" || snap.Email != "casey@example.com" {
		t.Errorf("identity = (%q, %q)", snap.Username, snap.Email)
	}
}

func TestConcurrentReactions(t *testing.T) {
	sess := NewSession(Environment{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				sess.RecordKeyPress()
				sess.RecordClick()
				sess.RecordMouseMove(float64(g), float64(i))
				sess.RecordScroll(float64(i))
				_ = sess.Snapshot()
			}
		}(g)
	}
	wg.Wait()

	snap := sess.Snapshot()
	if snap.KeyPressCount != 800 {
		t.Errorf("KeyPressCount = %d, want 800", snap.KeyPressCount)
	}
	if snap.ClickCount != 800 {
		t.Errorf("ClickCount = %d, want 800", snap.ClickCount)
	}
}

func TestSnapshotMarshalsLikeClientPayload(t *testing.T) {
	sess := NewSession(Environment{Platform: "Win32"})
	sess.RecordClick()

	out, err := json.Marshal(sess.Snapshot())
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	for _, key := range []string{"userAgent", "platform", "clickCount", "timeOnPage", "deviceMemory"} {
		if _, ok := m[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}
}
