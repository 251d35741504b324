// Package http exposes the tracker as a JSON API: expenses, categories,
// recurrence rules, summaries, settings, and backup import/export.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"duit/internal/cache"
	applog "duit/internal/log"
	"duit/internal/services"
	"duit/internal/store"
)

type Server struct {
	http.Server
	store       *store.Store
	generator   *services.Generator
	rateLimiter *rateLimiter
	clock       func() time.Time

	// LRU cache for summary responses with eviction policy
	summaryCache *cache.LRU[summaryResponse]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and returns a ready-to-run http.Server.
// The clock may be nil, defaulting to time.Now.
func NewServer(addr string, st *store.Store, gen *services.Generator, clock func() time.Time) *Server {
	if clock == nil {
		clock = time.Now
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:            st,
		generator:        gen,
		rateLimiter:      newRateLimiter(),
		clock:            clock,
		summaryCache:     cache.NewLRU[summaryResponse](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/expenses", s.wrap(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.wrap(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.wrap(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.wrap(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/categories", s.wrap(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.wrap(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.wrap(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.wrap(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/recurring", s.wrap(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.wrap(s.handleCreateRecurring))
	mux.HandleFunc("PUT /api/recurring/{id}", s.wrap(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.wrap(s.handleDeleteRecurring))
	mux.HandleFunc("POST /api/recurring/{id}/toggle", s.wrap(s.handleToggleRecurring))

	mux.HandleFunc("GET /api/summary", s.wrap(s.handleSummary))
	mux.HandleFunc("GET /api/currencies", s.wrap(s.handleListCurrencies))
	mux.HandleFunc("GET /api/settings/currency", s.wrap(s.handleGetDisplayCurrency))
	mux.HandleFunc("PUT /api/settings/currency", s.wrap(s.handleSetDisplayCurrency))

	mux.HandleFunc("GET /api/export", s.wrap(s.handleExport))
	mux.HandleFunc("GET /api/export.csv", s.wrap(s.handleExportCSV))
	mux.HandleFunc("POST /api/import", s.wrap(s.handleImport))

	return s
}

// wrap adds security headers, rate limiting on writes, and request
// logging around a handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// startCacheCleanup runs periodic cleanup for the summary cache
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateSummaries drops all cached summaries. A mutation can move
// amounts between arbitrary months, so per-key invalidation is not
// enough.
func (s *Server) invalidateSummaries() {
	s.summaryCache.Purge()
}
