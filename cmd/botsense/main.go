package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pcaptcha/botsense/internal/classify"
	"github.com/pcaptcha/botsense/internal/export"
	httpx "github.com/pcaptcha/botsense/internal/http"
	"github.com/pcaptcha/botsense/internal/metrics"
	"github.com/pcaptcha/botsense/internal/store"
	"github.com/pcaptcha/botsense/pkg/config"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(os.Args) > 1 && os.Args[1] == "--test-mode" {
		runTestMode(ctx)
		return
	}

	// Startup is fail-fast: a missing connection string or an unreachable
	// store stops the process. There is no partial-availability mode.
	st := openStore(ctx, cfg)

	classifierTimeout := time.Duration(cfg.ClassifierTimeoutMS) * time.Millisecond
	classifier := classify.New(cfg.ClassifierURL, classifierTimeout)

	m := metrics.NewMetrics(nil)
	metricsSrv := metrics.NewServer(metrics.LoadConfig())
	_ = metricsSrv.Start(ctx)

	exporters := openExporters(ctx, cfg)

	env := httpx.Env{
		Cfg:        cfg,
		Store:      st,
		Classifier: classifier,
		Metrics:    m,
		Exporters:  exporters,
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           httpx.NewMux(env),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("botsense listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	for _, exp := range exporters {
		if err := exp.Close(); err != nil {
			log.Printf("export: %s: close: %v", exp.Name(), err)
		}
	}
	_ = st.Close()
}

func openStore(ctx context.Context, cfg config.Config) store.Store {
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch strings.ToLower(cfg.StoreDriver) {
	case "postgres":
		if cfg.PGDSN == "" {
			log.Fatalf("PG_DSN is required with STORE_DRIVER=postgres")
		}
		st, err := store.OpenPG(openCtx, cfg.PGDSN, cfg.StoreTable)
		if err != nil {
			log.Fatalf("store: %v", err)
		}
		log.Printf("store: connected to postgres, table %s", cfg.StoreTable)
		return st
	case "sqlite":
		st, err := store.OpenSQLite(openCtx, cfg.SQLitePath)
		if err != nil {
			log.Fatalf("store: %v", err)
		}
		log.Printf("store: opened sqlite at %s", cfg.SQLitePath)
		return st
	case "memory":
		log.Printf("store: using in-memory store (records are not durable)")
		return store.NewMemStore()
	default:
		log.Fatalf("unknown STORE_DRIVER %q (want postgres, sqlite, or memory)", cfg.StoreDriver)
		return nil
	}
}

func openExporters(ctx context.Context, cfg config.Config) []export.Exporter {
	var exporters []export.Exporter
	for _, name := range cfg.Exports {
		var exp export.Exporter
		switch strings.ToLower(name) {
		case "kafka":
			exp = export.NewKafkaExporterFromEnv()
		case "ndjson":
			exp = export.NewNDJSONExporter()
		default:
			log.Fatalf("unknown exporter %q in EXPORTS (want kafka or ndjson)", name)
		}
		if err := exp.Start(ctx); err != nil {
			log.Fatalf("export: %s: %v", exp.Name(), err)
		}
		log.Printf("export: %s enabled", exp.Name())
		exporters = append(exporters, exp)
	}
	return exporters
}
