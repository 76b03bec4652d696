// Package transport delivers signal snapshots to the ingestion endpoint.
// Delivery is intentionally best-effort: a fixed-interval ticker posts bare
// telemetry snapshots and swallows failures, while an explicit submit
// attaches identity fields and surfaces the outcome to the caller.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/pcaptcha/botsense/internal/collector"
)

// DefaultInterval matches the collector's background send cadence.
const DefaultInterval = 10 * time.Second

// Policy is the delivery contract for one snapshot. There is deliberately
// no retry, backoff, or buffering of failed payloads; the pipeline's merge
// semantics tolerate dropped periodic sends.
type Policy struct {
	MaxAttempts int
	// LogDrops controls whether a dropped periodic send is logged.
	LogDrops bool
}

// FireAndForget is the default policy: one attempt, log and drop on failure.
var FireAndForget = Policy{MaxAttempts: 1, LogDrops: true}

// Ack is the server's response to a successful send.
type Ack struct {
	Message    string  `json:"message"`
	IsBot      bool    `json:"is_bot"`
	Confidence float64 `json:"confidence"`
}

// Client posts session snapshots to a collect endpoint.
type Client struct {
	endpoint string
	session  *collector.Session
	policy   Policy
	interval time.Duration
	http     *http.Client

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewClient(endpoint string, session *collector.Session) *Client {
	return &Client{
		endpoint: endpoint,
		session:  session,
		policy:   FireAndForget,
		interval: DefaultInterval,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// WithInterval overrides the periodic send cadence, mainly for tests.
func (c *Client) WithInterval(d time.Duration) *Client {
	c.interval = d
	return c
}

// WithPolicy overrides the delivery policy.
func (c *Client) WithPolicy(p Policy) *Client {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	c.policy = p
	return c
}

// Start launches the periodic sender. Failures on this path are invisible
// to the user: they are logged per the policy and the payload is dropped.
func (c *Client) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.send(ctx, c.session.Snapshot()); err != nil {
					if c.policy.LogDrops {
						log.Printf("transport: periodic send dropped: %v", err)
					}
				}
			}
		}
	}()
}

// Submit attaches the identity fields, takes a final snapshot, and sends it
// once. Unlike the periodic path, the outcome is returned to the caller.
func (c *Client) Submit(ctx context.Context, username, email string) (*Ack, error) {
	c.session.SetIdentity(username, email)
	return c.send(ctx, c.session.Snapshot())
}

// Close stops the periodic sender and waits for an in-flight tick.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Client) send(ctx context.Context, snap any) (*Ack, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		ack, err := c.post(ctx, body)
		if err == nil {
			return ack, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, body []byte) (*Ack, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collect returned %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var ack Ack
	if err := json.Unmarshal(payload, &ack); err != nil {
		return nil, fmt.Errorf("decode ack: %w", err)
	}
	return &ack, nil
}
