package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/kilupskalvis/talentflow/internal/attachments"
	"github.com/kilupskalvis/talentflow/internal/backend"
	"github.com/kilupskalvis/talentflow/internal/config"
	"github.com/kilupskalvis/talentflow/internal/seed"
	"github.com/kilupskalvis/talentflow/internal/store"
	"github.com/spf13/cobra"
)

var (
	serveListen        string
	serveDataDir       string
	serveStoreBackend  string
	serveTLSCert       string
	serveTLSKey        string
	serveWebhookURLs   string
	serveWebhookSecret string
	serveRateLimit     int
	serveSeedIfEmpty   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulated backend",
	Long: `Run the simulated TalentFlow backend on a network listener.

Every request is delayed by a random latency and mutating requests fail at
the configured rates. Settings come from the config file; flags and
TALENTFLOW_* environment variables override them.

Examples:
  talentflow serve
  talentflow serve --listen 0.0.0.0:8730 --seed-if-empty
  talentflow serve --no-latency --store sqlite`,
	Run: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveListen, "listen", envOrDefault("TALENTFLOW_LISTEN", "127.0.0.1:8730"), "Listen address (host:port)")
	f.StringVar(&serveDataDir, "data-dir", os.Getenv("TALENTFLOW_DATA_DIR"), "Data directory (default: data_dir from config)")
	f.StringVar(&serveStoreBackend, "store", os.Getenv("TALENTFLOW_STORE"), "Store backend: bbolt or sqlite (default: store_backend from config)")
	f.StringVar(&serveTLSCert, "tls-cert", os.Getenv("TALENTFLOW_TLS_CERT"), "TLS certificate file")
	f.StringVar(&serveTLSKey, "tls-key", os.Getenv("TALENTFLOW_TLS_KEY"), "TLS key file")
	f.StringVar(&serveWebhookURLs, "webhook-urls", os.Getenv("TALENTFLOW_WEBHOOK_URLS"), "Comma-separated webhook URLs to notify on stage changes")
	f.StringVar(&serveWebhookSecret, "webhook-secret", os.Getenv("TALENTFLOW_WEBHOOK_SECRET"), "HMAC secret for signing webhook payloads")
	f.IntVar(&serveRateLimit, "rate-limit", 0, "Requests per minute per client (0 disables)")
	f.BoolVar(&serveSeedIfEmpty, "seed-if-empty", false, "Seed demo data when the store has no jobs")
}

func runServe(cmd *cobra.Command, _ []string) {
	cfg := loadConfig()
	if serveDataDir != "" {
		cfg.DataDir = serveDataDir
	}
	if serveStoreBackend != "" {
		cfg.StoreBackend = serveStoreBackend
	}
	if urls := splitList(serveWebhookURLs); len(urls) > 0 {
		cfg.WebhookURLs = urls
	}
	if serveWebhookSecret != "" {
		cfg.WebhookSecret = serveWebhookSecret
	}
	if err := cfg.Validate(); err != nil {
		exitError("%v", err)
	}

	// Server logs default to info.
	level := flagLogLevel
	if !cmd.Flags().Changed("log-level") && os.Getenv("TALENTFLOW_LOG_LEVEL") == "" {
		level = "info"
	}
	logger := newLogger(os.Stdout, level, flagLogFormat)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "error", err, "path", cfg.DataDir)
		os.Exit(1)
	}

	st := openStore(cfg)
	defer st.Close()

	if serveSeedIfEmpty {
		seedIfEmpty(st, logger)
	}

	files, err := attachments.NewFSStore(filepath.Join(cfg.DataDir, config.AttachmentsDir))
	if err != nil {
		logger.Error("failed to open attachment store", "error", err)
		os.Exit(1)
	}

	bc := backendConfig(cfg, logger)
	bc.RequestsPerMinute = serveRateLimit
	if bc.Webhooks != nil {
		logger.Info("webhooks configured", "count", len(cfg.WebhookURLs))
	}

	h, handlerCleanup := backend.Handler(st, files, bc, logger)
	defer handlerCleanup()

	srv := &http.Server{
		Addr:              serveListen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.Background() },
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting talentflow backend",
			"listen", serveListen,
			"data_dir", cfg.DataDir,
			"store", cfg.StoreBackend,
			"latency_min", bc.MinLatency,
			"latency_max", bc.MaxLatency,
			"failure_rate", bc.FailureRate,
			"reorder_failure_rate", bc.ReorderFailureRate,
		)
		var err error
		if serveTLSCert != "" && serveTLSKey != "" {
			err = srv.ListenAndServeTLS(serveTLSCert, serveTLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()
	color.New(color.FgGreen).Fprintf(os.Stderr, "Serving on %s\n", serveListen)

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// seedIfEmpty seeds demo data when the store holds no jobs.
func seedIfEmpty(st store.Store, logger *slog.Logger) {
	ctx := context.Background()
	page, err := st.ListJobs(ctx, store.JobQuery{PageSize: 1})
	if err != nil {
		logger.Error("check store", "error", err)
		os.Exit(1)
	}
	if page.Total > 0 {
		return
	}
	res, err := seed.Run(ctx, st, seed.Options{Now: time.Now().UTC()})
	if err != nil {
		logger.Error("seed store", "error", err)
		os.Exit(1)
	}
	logger.Info("seeded store", "jobs", res.Jobs, "candidates", res.Candidates, "assessments", res.Assessments)
}
