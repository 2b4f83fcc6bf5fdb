package backend

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kilupskalvis/talentflow/internal/api"
)

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// requestIDMiddleware generates a UUID per request and adds it to the context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		ctx := context.WithValue(r.Context(), contextKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(contextKeyRequestID).(string)
	return id
}

// loggingMiddleware logs request method, path, status, and latency.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", requestID(r),
			)
		})
	}
}

// recoveryMiddleware catches panics and returns 500.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: 0}
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", "error", rec, "request_id", requestID(r))
					if rw.statusCode == 0 {
						http.Error(rw, `{"error":"internal_error","message":"internal server error"}`, http.StatusInternalServerError)
					}
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// latencyMiddleware delays each request by a random duration in [lo, hi].
// A request cancelled during the wait is not served. Up to maxBody bytes of
// the body are read first: net/http only notices a client disconnect once
// the body has been consumed.
func latencyMiddleware(lo, hi time.Duration, maxBody int64) func(http.Handler) http.Handler {
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func(next http.Handler) http.Handler {
		if hi <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				buf, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
				if err != nil {
					writeError(w, http.StatusBadRequest, api.CodeBadRequest, "failed to read request body")
					return
				}
				r.Body = struct {
					io.Reader
					io.Closer
				}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
			}

			d := lo
			if hi > lo {
				mu.Lock()
				d += time.Duration(rng.Int63n(int64(hi - lo + 1)))
				mu.Unlock()
			}
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
			case <-r.Context().Done():
				return
			}
			if r.Context().Err() != nil {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// faultMiddleware fails a request with 500 before it reaches the handler,
// with probability rate. A failed request changes nothing.
func faultMiddleware(faults Faults, rate float64, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if faults.Fail(rate) {
				logger.Debug("injected failure",
					"method", r.Method,
					"path", r.URL.Path,
					"rate", rate,
					"request_id", requestID(r),
				)
				writeError(w, http.StatusInternalServerError, api.CodeInjectedFailure, "simulated server error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter implements a per-client fixed window limit.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	done    chan struct{}
}

type window struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*window),
		limit:   requestsPerMinute,
		done:    make(chan struct{}),
	}
	if requestsPerMinute > 0 {
		go rl.cleanup()
	}
	return rl
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for k, w := range rl.windows {
				if now.After(w.resetAt) {
					delete(rl.windows, k)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) Stop() {
	close(rl.done)
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	if rl.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			key = r.RemoteAddr
		}

		rl.mu.Lock()
		win, ok := rl.windows[key]
		now := time.Now()
		if !ok || now.After(win.resetAt) {
			win = &window{resetAt: now.Add(time.Minute)}
			rl.windows[key] = win
		}
		win.count++
		count := win.count
		rl.mu.Unlock()

		if count > rl.limit {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, api.CodeRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
