package httpx

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/pcaptcha/botsense/internal/metrics"
	cfg "github.com/pcaptcha/botsense/pkg/config"
)

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s ua=%q dur=%s", r.Method, r.URL.Path, r.UserAgent(), time.Since(start))
	})
}

// CORS enforces the origin allow-list for browser callers. With no list
// configured, or with the dev relax toggle set, any origin is allowed.
// Requests without an Origin header (curl, server-to-server) pass through
// untouched.
func CORS(c cfg.Config) func(http.Handler) http.Handler {
	allowAll := c.DevAllowOrigins || len(c.AllowedOrigins) == 0
	allowed := make(map[string]bool, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case origin == "":
				// non-browser caller
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			default:
				if r.Method == http.MethodOptions {
					http.Error(w, "origin not allowed", http.StatusForbidden)
					return
				}
				// Non-preflight cross-origin request from a disallowed
				// origin: serve it without CORS headers and let the
				// browser withhold the response.
				next.ServeHTTP(w, r)
				return
			}

			if origin != "" {
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// knownEndpoints bounds the metrics label set. Arbitrary request paths would
// otherwise mint a new label value per 404.
var knownEndpoints = map[string]bool{
	"/":             true,
	"/healthz":      true,
	"/readyz":       true,
	"/collect":      true,
	"/api/data":     true,
	"/api/stats":    true,
	"/signals.js":   true,
	"/dashboard":    true,
	"/dashboard.js": true,
}

func endpointLabel(path string) string {
	if knownEndpoints[path] {
		return path
	}
	return "other"
}

func MetricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			endpoint := endpointLabel(r.URL.Path)
			m.IncrementHTTPRequests(endpoint, r.Method, strconv.Itoa(rec.status))
			m.ObserveHTTPDuration(endpoint, r.Method, time.Since(start))
		})
	}
}
