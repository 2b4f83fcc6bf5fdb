// Package cli implements the command-line interface for TalentFlow.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/attachments"
	"github.com/kilupskalvis/talentflow/internal/backend"
	"github.com/kilupskalvis/talentflow/internal/config"
	"github.com/kilupskalvis/talentflow/internal/notify"
	"github.com/kilupskalvis/talentflow/internal/session"
	"github.com/kilupskalvis/talentflow/internal/store"
	"github.com/kilupskalvis/talentflow/internal/view"
	"github.com/spf13/cobra"
)

var (
	flagURL       string
	flagLogLevel  string
	flagLogFormat string
	flagNoLatency bool
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Store   store.Store // nil when talking to a remote backend
	Client  api.Client
	Session *session.Session
	Log     *notify.Log
	Logger  *slog.Logger

	cleanup func()
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.cleanup != nil {
		c.cleanup()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}

// Deps returns the collaborators the views need.
func (c *cmdContext) Deps() view.Deps {
	return view.Deps{Client: c.Client, Session: c.Session, Notifier: c.Log, Logger: c.Logger}
}

// loadConfig resolves the home directory and loads the config file.
func loadConfig() *config.Config {
	home, err := config.Home()
	if err != nil {
		exitError("%v", err)
	}
	cfg, err := config.Load(home)
	if err != nil {
		exitError("%v", err)
	}
	return cfg
}

// openStore opens the record store configured in cfg.
func openStore(cfg *config.Config) store.Store {
	st, err := store.Open(cfg.StoreBackend, cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	return st
}

// initContext loads config and session and connects to a backend: the
// remote one at --url or api_url, otherwise an in-process backend over the
// local store.
func initContext() *cmdContext {
	cfg := loadConfig()
	logger := newLogger(os.Stderr, flagLogLevel, flagLogFormat)

	c := &cmdContext{
		Config:  cfg,
		Session: session.Restore(cfg.Account),
		Log:     notify.NewLog(),
		Logger:  logger,
	}

	url := flagURL
	if url == "" {
		url = cfg.APIURL
	}
	if url != "" {
		c.Client = api.NewRetryClient(api.NewHTTPClient(url), nil)
		return c
	}

	c.Store = openStore(cfg)
	files, err := attachments.NewFSStore(cfg.AttachmentsPath())
	if err != nil {
		c.Close()
		exitError("failed to open attachment store: %v", err)
	}
	h, cleanup := backend.Handler(c.Store, files, backendConfig(cfg, logger), logger)
	c.cleanup = cleanup
	c.Client = api.NewInProcess(h)
	return c
}

// backendConfig maps the config file onto backend settings.
func backendConfig(cfg *config.Config, logger *slog.Logger) *backend.Config {
	bc := backend.DefaultConfig()
	bc.MinLatency = time.Duration(cfg.LatencyMin)
	bc.MaxLatency = time.Duration(cfg.LatencyMax)
	bc.FailureRate = cfg.FailureRate
	bc.ReorderFailureRate = cfg.ReorderFailureRate
	if flagNoLatency {
		bc.MinLatency, bc.MaxLatency = 0, 0
	}
	if len(cfg.WebhookURLs) > 0 {
		bc.Webhooks = backend.NewWebhookNotifier(&backend.WebhookConfig{
			URLs:   cfg.WebhookURLs,
			Secret: cfg.WebhookSecret,
		}, logger)
	}
	return bc
}

// newLogger builds the slog logger selected by level and format.
func newLogger(w io.Writer, levelName, format string) *slog.Logger {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:   "talentflow",
	Short: "Applicant tracking with optimistic updates",
	Long: `TalentFlow is an applicant-tracking tool: job postings, a candidate
pipeline board and assessments, backed by a simulated API with injected
latency and failures.

Mutations are applied to the local view immediately and rolled back if the
backend rejects them.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagURL, "url", os.Getenv("TALENTFLOW_URL"), "Backend base URL (default: in-process backend)")
	pf.StringVar(&flagLogLevel, "log-level", envOrDefault("TALENTFLOW_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")
	pf.StringVar(&flagLogFormat, "log-format", envOrDefault("TALENTFLOW_LOG_FORMAT", "text"), "Log format (json|text)")
	pf.BoolVar(&flagNoLatency, "no-latency", false, "Disable simulated latency for the in-process backend")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd, gcCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(assessmentsCmd)
	rootCmd.AddCommand(accountsCmd, loginCmd, logoutCmd, whoamiCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// envOrDefault returns the value of the environment variable key, or defaultVal if unset.
func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
