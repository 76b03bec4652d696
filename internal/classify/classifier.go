// Package classify calls the external scoring service that decides whether
// a signal record came from a bot. The service is a black box: it receives
// the enriched-so-far record and must answer with exactly an is_bot flag
// and a confidence. Anything else is a protocol violation.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrBadResponse marks a classifier reply that violates the two-field
// contract. Callers treat it the same as any other classification failure:
// the ingestion request fails and nothing is persisted.
var ErrBadResponse = errors.New("classifier response violates contract")

// Result is the classifier's verdict.
type Result struct {
	IsBot      bool
	Confidence float64
}

// Client is a synchronous adapter to the scoring service. One attempt per
// record, no fallback heuristic: if the service is down, ingestion fails.
type Client struct {
	url  string
	http *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Classify posts the record and parses the verdict.
func (c *Client) Classify(ctx context.Context, record any) (Result, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return Result{}, fmt.Errorf("encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("classifier call: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Result{}, fmt.Errorf("classifier read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("classifier returned %d", resp.StatusCode)
	}

	return parseVerdict(payload)
}

// verdict is the wire shape. is_bot is kept raw because models commonly
// answer with true/false or with 0/1.
type verdict struct {
	IsBot      *json.RawMessage `json:"is_bot"`
	Confidence *float64         `json:"confidence"`
}

func parseVerdict(payload []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()

	var v verdict
	if err := dec.Decode(&v); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if v.IsBot == nil || v.Confidence == nil {
		return Result{}, fmt.Errorf("%w: missing is_bot or confidence", ErrBadResponse)
	}
	if *v.Confidence < 0 || *v.Confidence > 1 {
		return Result{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrBadResponse, *v.Confidence)
	}

	isBot, err := parseBoolish(*v.IsBot)
	if err != nil {
		return Result{}, err
	}
	return Result{IsBot: isBot, Confidence: *v.Confidence}, nil
}

func parseBoolish(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: is_bot %s is not boolean-like", ErrBadResponse, raw)
}
