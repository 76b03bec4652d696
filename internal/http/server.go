package httpx

import (
	"net/http"

	"github.com/pcaptcha/botsense/internal/assets"
)

// NewMux wires the full route set: the ingestion and read endpoints, the
// aggregate endpoint, health checks, and the embedded client bundle.
func NewMux(e Env) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", e.Healthz)
	mux.HandleFunc("/readyz", e.Readyz)
	mux.HandleFunc("/collect", e.Collect)
	mux.HandleFunc("/api/data", e.Data)
	mux.HandleFunc("/api/stats", e.Stats)

	// Static client bundle
	mux.HandleFunc("/", serveAsset("text/html; charset=utf-8", assets.IndexHTML, true))
	mux.HandleFunc("/signals.js", serveAsset("application/javascript", assets.SignalsJS, false))
	mux.HandleFunc("/dashboard", serveAsset("text/html; charset=utf-8", assets.DashboardHTML, false))
	mux.HandleFunc("/dashboard.js", serveAsset("application/javascript", assets.DashboardJS, false))

	return RequestLogger(MetricsMiddleware(e.Metrics)(CORS(e.Cfg)(mux)))
}

// serveAsset returns a handler for one embedded file. The root handler is
// special-cased so unknown paths 404 instead of all resolving to the index.
func serveAsset(contentType string, body []byte, rootOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rootOnly && r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	}
}
