package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pcaptcha/botsense/internal/classify"
	"github.com/pcaptcha/botsense/internal/export"
	"github.com/pcaptcha/botsense/internal/metrics"
	"github.com/pcaptcha/botsense/internal/signal"
	"github.com/pcaptcha/botsense/internal/stats"
	"github.com/pcaptcha/botsense/internal/store"
	cfg "github.com/pcaptcha/botsense/pkg/config"
)

// Classifier is the synchronous scoring dependency of the ingestion flow.
type Classifier interface {
	Classify(ctx context.Context, record any) (classify.Result, error)
}

type Env struct {
	Cfg        cfg.Config
	Store      store.Store
	Classifier Classifier
	Metrics    *metrics.Metrics
	Exporters  []export.Exporter

	// Test hooks; zero values fall back to the real thing.
	Now   func() time.Time
	NewID func() string
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Env) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.New().String()
}

func (e Env) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (e Env) Readyz(w http.ResponseWriter, r *http.Request) {
	if e.Store == nil {
		http.Error(w, "store not configured", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := e.Store.Ping(ctx); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// POST /collect: one SignalSnapshot in, one EnrichedRecord persisted.
//
// The flow is strictly classify-then-persist: a classifier failure ends the
// request with a 500 and nothing is stored, so classifier downtime drops
// telemetry rather than storing unscored records. Each send is independent;
// duplicate snapshots become duplicate records.
func (e Env) Collect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)
		return
	}
	if e.Store == nil {
		e.countIngest("store_not_ready")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Database not connected",
		})
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, e.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		// Anything else is a broken read, typically a client that went away
		// mid-body.
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	// Snapshot decoding is permissive: partial payloads and unknown fields
	// are accepted and stored as-is. Only byte-level invalid JSON is
	// rejected.
	var snap signal.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		e.countIngest("bad_json")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "invalid json",
			"error":   err.Error(),
		})
		return
	}

	rec := signal.EnrichedRecord{
		Snapshot:   snap,
		RecordID:   e.newID(),
		ReceivedAt: e.now().UTC(),
		Request:    signal.AnalyzeRequest(r),
		Timing:     signal.AnalyzeMoveTiming(snap.MouseMoves),
	}

	verdict, err := e.classify(r.Context(), rec)
	if err != nil {
		log.Printf("classify: %v", err)
		e.countIngest("classifier_failed")
		if e.Metrics != nil {
			e.Metrics.ClassifierFailures.Inc()
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Prediction failed",
			"error":   err.Error(),
		})
		return
	}
	rec.IsBot = verdict.IsBot
	rec.Confidence = verdict.Confidence

	ctx, cancel := context.WithTimeout(r.Context(), e.storeTimeout())
	defer cancel()
	if err := e.Store.Insert(ctx, rec); err != nil {
		log.Printf("store: insert: %v", err)
		e.countIngest("store_failed")
		if e.Metrics != nil {
			e.Metrics.IncrementStoreFailures("insert")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Failed to save data",
			"error":   err.Error(),
		})
		return
	}

	// Exports run after the durable write and never fail the request.
	for _, exp := range e.Exporters {
		if err := exp.Publish(rec); err != nil {
			log.Printf("export: %s: %v", exp.Name(), err)
			if e.Metrics != nil {
				e.Metrics.IncrementExportErrors(exp.Name())
			}
		}
	}

	e.countIngest("ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Prediction complete",
		"is_bot":     rec.IsBot,
		"confidence": rec.Confidence,
	})
}

// GET /api/data returns every stored record, as stored. No pagination or
// filtering; the read mirrors the append-only store.
func (e Env) Data(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, ok := e.fetchAll(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GET /api/stats returns the aggregate recomputed from the full record set.
func (e Env) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, ok := e.fetchAll(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(records))
}

func (e Env) fetchAll(w http.ResponseWriter, r *http.Request) ([]signal.EnrichedRecord, bool) {
	if e.Store == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Database not connected",
		})
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), e.storeTimeout())
	defer cancel()
	records, err := e.Store.FetchAll(ctx)
	if err != nil {
		log.Printf("store: fetch: %v", err)
		if e.Metrics != nil {
			e.Metrics.IncrementStoreFailures("fetch")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Failed to fetch data",
			"error":   err.Error(),
		})
		return nil, false
	}
	if records == nil {
		records = []signal.EnrichedRecord{}
	}
	return records, true
}

func (e Env) classify(ctx context.Context, rec signal.EnrichedRecord) (classify.Result, error) {
	timeout := time.Duration(e.Cfg.ClassifierTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := e.now()
	verdict, err := e.Classifier.Classify(ctx, rec)
	if e.Metrics != nil {
		e.Metrics.ObserveClassifierLatency(time.Since(start))
	}
	return verdict, err
}

func (e Env) storeTimeout() time.Duration {
	if e.Cfg.StoreTimeoutMS > 0 {
		return time.Duration(e.Cfg.StoreTimeoutMS) * time.Millisecond
	}
	return 5 * time.Second
}

func (e Env) maxBodyBytes() int64 {
	if e.Cfg.MaxBodyBytes > 0 {
		return e.Cfg.MaxBodyBytes
	}
	return 1 << 20
}

func (e Env) countIngest(outcome string) {
	if e.Metrics != nil {
		e.Metrics.IncrementIngested(outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
