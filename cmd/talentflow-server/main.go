// Command talentflow-server runs the simulated TalentFlow backend.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kilupskalvis/talentflow/internal/attachments"
	"github.com/kilupskalvis/talentflow/internal/backend"
	"github.com/kilupskalvis/talentflow/internal/seed"
	"github.com/kilupskalvis/talentflow/internal/store"
)

func main() {
	listen := flag.String("listen", envOrDefault("TALENTFLOW_LISTEN", "0.0.0.0:8730"), "Listen address")
	dataDir := flag.String("data-dir", envOrDefault("TALENTFLOW_DATA_DIR", "/var/lib/talentflow"), "Data directory")
	storeBackend := flag.String("store", envOrDefault("TALENTFLOW_STORE", store.BackendBbolt), "Store backend (bbolt, sqlite)")
	logLevel := flag.String("log-level", envOrDefault("TALENTFLOW_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOrDefault("TALENTFLOW_LOG_FORMAT", "json"), "Log format (json, text)")
	tlsCert := flag.String("tls-cert", os.Getenv("TALENTFLOW_TLS_CERT"), "TLS certificate file")
	tlsKey := flag.String("tls-key", os.Getenv("TALENTFLOW_TLS_KEY"), "TLS key file")
	webhookURLs := flag.String("webhook-urls", os.Getenv("TALENTFLOW_WEBHOOK_URLS"), "Comma-separated webhook URLs to notify on stage changes")
	webhookSecret := flag.String("webhook-secret", os.Getenv("TALENTFLOW_WEBHOOK_SECRET"), "HMAC secret for signing webhook payloads")
	minLatency := flag.Duration("latency-min", backend.DefaultMinLatency, "Minimum simulated latency")
	maxLatency := flag.Duration("latency-max", backend.DefaultMaxLatency, "Maximum simulated latency")
	failureRate := flag.Float64("failure-rate", backend.DefaultFailureRate, "Failure probability for mutating requests")
	reorderFailureRate := flag.Float64("reorder-failure-rate", backend.DefaultReorderFailureRate, "Failure probability for job reorders")
	rateLimit := flag.Int("rate-limit", 0, "Requests per minute per client (0 disables)")
	seedIfEmpty := flag.Bool("seed-if-empty", false, "Seed demo data when the store has no jobs")
	flag.Parse()

	// Setup logger
	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "error", err, "path", *dataDir)
		os.Exit(1)
	}

	st, err := store.Open(*storeBackend, filepath.Join(*dataDir, "talentflow.db"))
	if err != nil {
		logger.Error("failed to open store", "error", err, "backend", *storeBackend)
		os.Exit(1)
	}
	defer st.Close()

	if *seedIfEmpty {
		if err := seedEmptyStore(context.Background(), st, logger); err != nil {
			logger.Error("failed to seed store", "error", err)
			os.Exit(1)
		}
	}

	files, err := attachments.NewFSStore(filepath.Join(*dataDir, "attachments"))
	if err != nil {
		logger.Error("failed to open attachment store", "error", err)
		os.Exit(1)
	}

	// Backend config
	cfg := backend.DefaultConfig()
	cfg.MinLatency = *minLatency
	cfg.MaxLatency = *maxLatency
	cfg.FailureRate = *failureRate
	cfg.ReorderFailureRate = *reorderFailureRate
	cfg.RequestsPerMinute = *rateLimit

	// Webhooks
	if *webhookURLs != "" {
		var trimmed []string
		for _, u := range strings.Split(*webhookURLs, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				trimmed = append(trimmed, u)
			}
		}
		if len(trimmed) > 0 {
			cfg.Webhooks = backend.NewWebhookNotifier(&backend.WebhookConfig{URLs: trimmed, Secret: *webhookSecret}, logger)
			logger.Info("webhooks configured", "count", len(trimmed))
		}
	}

	h, handlerCleanup := backend.Handler(st, files, cfg, logger)
	defer handlerCleanup()

	srv := &http.Server{
		Addr:              *listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.Background() },
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting talentflow-server", "listen", *listen, "data_dir", *dataDir, "store", *storeBackend)
		var err error
		if *tlsCert != "" && *tlsKey != "" {
			err = srv.ListenAndServeTLS(*tlsCert, *tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// seedEmptyStore writes demo data when the store holds no jobs.
func seedEmptyStore(ctx context.Context, st store.Store, logger *slog.Logger) error {
	page, err := st.ListJobs(ctx, store.JobQuery{PageSize: 1})
	if err != nil {
		return err
	}
	if page.Total > 0 {
		return nil
	}
	res, err := seed.Run(ctx, st, seed.Options{Now: time.Now().UTC()})
	if err != nil {
		return err
	}
	logger.Info("seeded store", "jobs", res.Jobs, "candidates", res.Candidates, "assessments", res.Assessments)
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
