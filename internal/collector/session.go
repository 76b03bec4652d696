// Package collector maintains the signal state for one page session: the
// environment captured once at creation, and behavioral counters updated by
// event reactions until the next send.
package collector

import (
	"sync"
	"time"

	"github.com/pcaptcha/botsense/internal/signal"
)

// DefaultMoveCapacity bounds the pointer-move log. Once full, new samples
// overwrite the oldest so a long-lived session keeps only the most recent
// movement window.
const DefaultMoveCapacity = 512

const unknown = "Unknown"

// Environment holds the facts captured exactly once when a session starts.
// Missing facts never fail construction; they fall back to "Unknown".
type Environment struct {
	UserAgent           string
	Language            string
	Platform            string
	ScreenResolution    string
	Timezone            string
	DoNotTrack          string
	HardwareConcurrency int
	DeviceMemoryGB      int // 0 means unknown
}

func (e Environment) withDefaults() Environment {
	if e.UserAgent == "" {
		e.UserAgent = unknown
	}
	if e.Language == "" {
		e.Language = unknown
	}
	if e.Platform == "" {
		e.Platform = unknown
	}
	if e.ScreenResolution == "" {
		e.ScreenResolution = unknown
	}
	if e.Timezone == "" {
		e.Timezone = unknown
	}
	return e
}

// Session accumulates behavioral signals for one page visit. All methods are
// safe for concurrent use; event reactions may interleave with an in-flight
// send, and Snapshot's read-and-reset of the time-on-page baseline is the
// critical section that keeps intervals from double counting.
type Session struct {
	mu sync.Mutex

	env      Environment
	moves    *moveRing
	keyCount int
	clicks   int
	scroll   float64
	baseline time.Time

	username string
	email    string

	now func() time.Time // test hook
}

func NewSession(env Environment) *Session {
	return NewSessionCap(env, DefaultMoveCapacity)
}

func NewSessionCap(env Environment, moveCapacity int) *Session {
	if moveCapacity <= 0 {
		moveCapacity = DefaultMoveCapacity
	}
	s := &Session{
		env:   env.withDefaults(),
		moves: newMoveRing(moveCapacity),
		now:   time.Now,
	}
	s.baseline = s.now()
	return s
}

func (s *Session) RecordMouseMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves.push(signal.MouseSample{X: x, Y: y, T: s.now().UnixMilli()})
}

func (s *Session) RecordKeyPress() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyCount++
}

func (s *Session) RecordClick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks++
}

// RecordScroll tracks the maximum observed scroll extent.
func (s *Session) RecordScroll(extent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if extent > s.scroll {
		s.scroll = extent
	}
}

// SetIdentity attaches the form-submission identity fields. Subsequent
// snapshots carry them.
func (s *Session) SetIdentity(username, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.email = email
}

// Snapshot returns the current signal state and resets the time-on-page
// baseline, so the next snapshot measures only the interval since this one.
// A failed send does not replay the interval; the counter semantics accept
// that gap. Counters other than time-on-page are cumulative for the session.
func (s *Session) Snapshot() signal.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	elapsed := now.Sub(s.baseline).Milliseconds()
	s.baseline = now

	snap := signal.Snapshot{
		UserAgent:           s.env.UserAgent,
		Language:            s.env.Language,
		Platform:            s.env.Platform,
		ScreenResolution:    s.env.ScreenResolution,
		Timezone:            s.env.Timezone,
		DoNotTrack:          s.env.DoNotTrack,
		HardwareConcurrency: s.env.HardwareConcurrency,
		MouseMoves:          s.moves.samples(),
		KeyPressCount:       s.keyCount,
		ClickCount:          s.clicks,
		ScrollDepth:         s.scroll,
		TimeOnPage:          elapsed,
		Username:            s.username,
		Email:               s.email,
	}
	if s.env.DeviceMemoryGB > 0 {
		snap.DeviceMemory = signal.RawNumber(s.env.DeviceMemoryGB)
	} else {
		snap.DeviceMemory = signal.RawString(unknown)
	}
	return snap
}

// moveRing is a fixed-capacity circular buffer of pointer samples.
type moveRing struct {
	buf   []signal.MouseSample
	next  int
	count int
}

func newMoveRing(capacity int) *moveRing {
	return &moveRing{buf: make([]signal.MouseSample, capacity)}
}

func (r *moveRing) push(m signal.MouseSample) {
	r.buf[r.next] = m
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// samples returns the retained moves oldest-first as a fresh slice.
func (r *moveRing) samples() []signal.MouseSample {
	if r.count == 0 {
		return nil
	}
	out := make([]signal.MouseSample, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
