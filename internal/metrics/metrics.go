package metrics

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the Prometheus metrics for the pipeline.
type Metrics struct {
	// Counters
	SnapshotsIngested  *prometheus.CounterVec // by outcome
	ClassifierFailures prometheus.Counter
	StoreFailures      *prometheus.CounterVec // by operation
	ExportErrors       *prometheus.CounterVec // by exporter
	HTTPRequests       *prometheus.CounterVec

	// Histograms
	ClassifierLatency prometheus.Histogram
	HTTPDuration      *prometheus.HistogramVec
}

// Config holds configuration for the metrics server.
type Config struct {
	Enabled bool
	Addr    string
}

// LoadConfig loads metrics configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Enabled: getBool("METRICS_ENABLED", false),
		Addr:    getOr("METRICS_ADDR", "127.0.0.1:9090"),
	}
}

// NewMetrics creates all pipeline metrics registered on a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		SnapshotsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsense_snapshots_ingested_total",
				Help: "Snapshots received on /collect by outcome",
			},
			[]string{"outcome"},
		),

		ClassifierFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "botsense_classifier_failures_total",
				Help: "Classifier calls that failed or violated the response contract",
			},
		),

		StoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsense_store_failures_total",
				Help: "Store operations that failed",
			},
			[]string{"operation"},
		),

		ExportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsense_export_errors_total",
				Help: "Record publishes that an exporter rejected",
			},
			[]string{"exporter"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botsense_http_requests_total",
				Help: "HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		ClassifierLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "botsense_classifier_latency_seconds",
				Help:    "Latency of the synchronous classifier call",
				Buckets: prometheus.DefBuckets,
			},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "botsense_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method"},
		),
	}

	reg.MustRegister(
		m.SnapshotsIngested,
		m.ClassifierFailures,
		m.StoreFailures,
		m.ExportErrors,
		m.HTTPRequests,
		m.HTTPDuration,
		m.ClassifierLatency,
	)

	return m
}

// Server exposes /metrics on its own listener, separate from the ingestion
// port.
type Server struct {
	server *http.Server
	config Config
}

func NewServer(config Config) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:         config.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{server: srv, config: config}
}

// Start starts the metrics server in a separate goroutine.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		log.Printf("metrics: disabled (METRICS_ENABLED=false)")
		return nil
	}

	go func() {
		log.Printf("metrics: HTTP server listening on %s", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics: server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	log.Printf("metrics: shutting down server...")
	return s.server.Shutdown(ctx)
}

// Helper functions
func getOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Convenience methods for common operations
func (m *Metrics) IncrementIngested(outcome string) {
	m.SnapshotsIngested.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementStoreFailures(operation string) {
	m.StoreFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementExportErrors(exporter string) {
	m.ExportErrors.WithLabelValues(exporter).Inc()
}

func (m *Metrics) IncrementHTTPRequests(endpoint, method, status string) {
	m.HTTPRequests.WithLabelValues(endpoint, method, status).Inc()
}

func (m *Metrics) ObserveClassifierLatency(duration time.Duration) {
	m.ClassifierLatency.Observe(duration.Seconds())
}

func (m *Metrics) ObserveHTTPDuration(endpoint, method string, duration time.Duration) {
	m.HTTPDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}
