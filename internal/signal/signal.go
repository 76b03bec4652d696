package signal

import (
	"encoding/json"
	"time"
)

// MouseSample is one pointer-move observation from the client.
type MouseSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"` // unix milliseconds
}

// Snapshot is the client-reported signal set for one send: environmental
// facts captured once per session plus behavioral counters accumulated
// since the previous send. Identity fields are present only on the form
// submission path.
//
// Ingestion is permissive: fields the server does not know about, or known
// fields whose values do not parse into the typed schema, are carried in
// Extra and survive a store round trip verbatim.
type Snapshot struct {
	UserAgent           string          `json:"userAgent,omitempty"`
	Language            string          `json:"language,omitempty"`
	Platform            string          `json:"platform,omitempty"`
	ScreenResolution    string          `json:"screenResolution,omitempty"`
	Timezone            string          `json:"timezone,omitempty"`
	DoNotTrack          string          `json:"doNotTrack,omitempty"`
	HardwareConcurrency int             `json:"hardwareConcurrency,omitempty"`
	DeviceMemory        json.RawMessage `json:"deviceMemory,omitempty"` // number of GB, or "Unknown"

	MouseMoves    []MouseSample `json:"mouseMoves,omitempty"`
	KeyPressCount int           `json:"keyPressCount"`
	ClickCount    int           `json:"clickCount"`
	ScrollDepth   float64       `json:"scrollDepth"`
	TimeOnPage    int64         `json:"timeOnPage"` // milliseconds since last send

	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// RawNumber encodes n as a raw JSON number, for fields like deviceMemory
// that carry either a number or a placeholder string.
func RawNumber(n int) json.RawMessage {
	b, _ := json.Marshal(n)
	return b
}

// RawString encodes s as a raw JSON string.
func RawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// snapshotAlias strips the custom JSON methods for re-use in (un)marshaling.
type snapshotAlias Snapshot

var snapshotKeys = []string{
	"userAgent", "language", "platform", "screenResolution", "timezone",
	"doNotTrack", "hardwareConcurrency", "deviceMemory", "mouseMoves",
	"keyPressCount", "clickCount", "scrollDepth", "timeOnPage",
	"username", "email",
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var a snapshotAlias
	for _, key := range snapshotKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		// A known key whose value doesn't match the schema is kept raw
		// rather than rejected. Decode into a scratch copy: a value that
		// fails partway through (say, one bad sample in a mouseMoves array)
		// must not leak partial data into the typed fields.
		scratch := a
		if err := json.Unmarshal([]byte(`{"`+key+`":`+string(v)+`}`), &scratch); err != nil {
			continue
		}
		a = scratch
		delete(raw, key)
	}
	*s = Snapshot(a)
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(snapshotAlias(s))
	if err != nil {
		return nil, err
	}
	if len(s.Extra) == 0 {
		return b, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	// A key lands in Extra only when it failed the typed decode, so the
	// typed encoding can hold at most a zero value for it: the raw original
	// wins the merge.
	for k, v := range s.Extra {
		m[k] = v
	}
	return json.Marshal(m)
}

// EnrichedRecord is a Snapshot plus what the server adds at ingest time:
// a per-send record ID, the receipt timestamp, request-level signals, and
// the classifier's verdict. Records are immutable once stored.
//
// RecordID identifies a single send only. There is no session identifier:
// successive sends from the same client produce independent records.
type EnrichedRecord struct {
	Snapshot

	RecordID   string          `json:"record_id,omitempty"`
	ReceivedAt time.Time       `json:"timestamp"`
	Request    *RequestSignals `json:"request_signals,omitempty"`
	Timing     *MoveTiming     `json:"move_timing,omitempty"`
	IsBot      bool            `json:"is_bot"`
	Confidence float64         `json:"confidence"`
}

// The embedded Snapshot carries custom JSON methods, so the record has to
// flatten itself explicitly or the server-side fields would be dropped.

func (r EnrichedRecord) MarshalJSON() ([]byte, error) {
	b, err := r.Snapshot.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	put := func(key string, v any) error {
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		m[key] = enc
		return nil
	}
	if r.RecordID != "" {
		if err := put("record_id", r.RecordID); err != nil {
			return nil, err
		}
	}
	if err := put("timestamp", r.ReceivedAt); err != nil {
		return nil, err
	}
	if r.Request != nil {
		if err := put("request_signals", r.Request); err != nil {
			return nil, err
		}
	}
	if r.Timing != nil {
		if err := put("move_timing", r.Timing); err != nil {
			return nil, err
		}
	}
	if err := put("is_bot", r.IsBot); err != nil {
		return nil, err
	}
	if err := put("confidence", r.Confidence); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func (r *EnrichedRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	take := func(key string, dst any) {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err == nil {
				delete(raw, key)
			}
		}
	}
	take("record_id", &r.RecordID)
	take("timestamp", &r.ReceivedAt)
	take("request_signals", &r.Request)
	take("move_timing", &r.Timing)
	take("is_bot", &r.IsBot)
	take("confidence", &r.Confidence)

	rest, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return r.Snapshot.UnmarshalJSON(rest)
}
