// Package backend implements the simulated TalentFlow API: HTTP handlers
// over the record store, with injected latency and random failures on
// mutating routes so that clients exercise their optimistic-update and
// rollback paths.
package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kilupskalvis/talentflow/internal/api"
	"github.com/kilupskalvis/talentflow/internal/attachments"
	"github.com/kilupskalvis/talentflow/internal/store"
)

// Config holds latency, fault injection and size limits for the backend.
type Config struct {
	MaxRequestBody     int64 // bytes, for JSON endpoints
	MaxAttachmentSize  int64 // bytes, for resume uploads
	MinLatency         time.Duration
	MaxLatency         time.Duration
	FailureRate        float64 // mutating routes
	ReorderFailureRate float64 // job reorder route
	RequestsPerMinute  int     // per client; 0 disables limiting
	Faults             Faults
	Webhooks           *WebhookNotifier
}

// Default latency and failure settings.
const (
	DefaultMinLatency         = 200 * time.Millisecond
	DefaultMaxLatency         = 1200 * time.Millisecond
	DefaultFailureRate        = 0.08
	DefaultReorderFailureRate = 0.10
)

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRequestBody:     1 << 20,  // 1MB
		MaxAttachmentSize:  10 << 20, // 10MB
		MinLatency:         DefaultMinLatency,
		MaxLatency:         DefaultMaxLatency,
		FailureRate:        DefaultFailureRate,
		ReorderFailureRate: DefaultReorderFailureRate,
	}
}

type server struct {
	store  store.Store
	files  attachments.Store
	cfg    *Config
	logger *slog.Logger
}

// Handler creates the HTTP handler with all routes and middleware.
// The returned cleanup function stops background goroutines and waits for
// pending webhook deliveries; call it on shutdown.
func Handler(st store.Store, files attachments.Store, cfg *Config, logger *slog.Logger) (http.Handler, func()) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Faults == nil {
		cfg.Faults = RandomFaults(time.Now().UnixNano())
	}
	if cfg.MaxRequestBody <= 0 {
		cfg.MaxRequestBody = DefaultConfig().MaxRequestBody
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &server{store: st, files: files, cfg: cfg, logger: logger}
	rl := newRateLimiter(cfg.RequestsPerMinute)
	latency := latencyMiddleware(cfg.MinLatency, cfg.MaxLatency, max(cfg.MaxRequestBody, cfg.MaxAttachmentSize))

	// applyMiddleware runs the first listed middleware outermost.
	// Reads: rate limit -> latency -> handler
	read := func(h http.HandlerFunc) http.Handler {
		return applyMiddleware(h, rl.middleware, latency)
	}
	// Mutations: rate limit -> latency -> fault injection -> handler
	mutate := func(rate float64, h http.HandlerFunc) http.Handler {
		return applyMiddleware(h, rl.middleware, latency, faultMiddleware(cfg.Faults, rate, logger))
	}
	fail := cfg.FailureRate

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)

	// Jobs
	mux.Handle("GET /api/jobs", read(s.handleListJobs))
	mux.Handle("GET /api/jobs/{id}", read(s.handleGetJob))
	mux.Handle("POST /api/jobs", mutate(fail, s.handleCreateJob))
	mux.Handle("PATCH /api/jobs/{id}", mutate(fail, s.handleUpdateJob))
	mux.Handle("PATCH /api/jobs/{id}/reorder", mutate(cfg.ReorderFailureRate, s.handleReorderJob))

	// Candidates
	mux.Handle("GET /api/candidates", read(s.handleListCandidates))
	mux.Handle("GET /api/candidates/{id}", read(s.handleGetCandidate))
	mux.Handle("PATCH /api/candidates/{id}", mutate(fail, s.handleUpdateCandidate))
	mux.Handle("GET /api/candidates/{id}/timeline", read(s.handleTimeline))
	mux.Handle("POST /api/candidates/{id}/notes", mutate(fail, s.handleAddNote))
	mux.Handle("PUT /api/candidates/{id}/resume", mutate(fail, s.handleUploadResume))
	mux.Handle("GET /api/attachments/{hash}", read(s.handleGetAttachment))

	// Assessments
	mux.Handle("GET /api/assessments", read(s.handleListAssessments))
	mux.Handle("GET /api/assessments/{id}", read(s.handleGetAssessment))
	mux.Handle("POST /api/assessments", mutate(fail, s.handleCreateAssessment))
	mux.Handle("PUT /api/assessments/{id}", mutate(fail, s.handleUpdateAssessment))
	mux.Handle("DELETE /api/assessments/{id}", mutate(fail, s.handleDeleteAssessment))
	mux.Handle("POST /api/assessments/{id}/responses", mutate(fail, s.handleSubmitResponse))

	// Request ID first so the log line and panic report carry it.
	handler := applyMiddleware(mux,
		requestIDMiddleware,
		loggingMiddleware(logger),
		recoveryMiddleware(logger),
	)

	cleanup := func() {
		rl.Stop()
		cfg.Webhooks.Wait()
	}

	return handler, cleanup
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, &api.ErrorResponse{Error: code, Message: message})
}

func readJSON(r *http.Request, maxSize int64, v any) error {
	limited := io.LimitReader(r.Body, maxSize)
	if err := json.NewDecoder(limited).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// storeError maps a store error to a response. what names the entity for
// not-found messages.
func (s *server) storeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, api.CodeNotFound, what+" not found")
	case errors.Is(err, store.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, api.CodeBadRequest, err.Error())
	default:
		s.logger.Error("store error", "error", err, "path", r.URL.Path, "request_id", requestID(r))
		writeError(w, http.StatusInternalServerError, api.CodeInternal, err.Error())
	}
}

func pagination[T any](p *store.Page[T]) api.Pagination {
	return api.Pagination{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
}
