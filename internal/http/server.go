// Package http exposes the dashboard API over net/http.
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

	"troupe/internal/cache"
	"troupe/internal/core"
)

const dashboardCacheKey = "dashboard"

type Server struct {
	http.Server
	finance     FinanceAPI
	roster      RosterAPI
	rateLimiter *rateLimiter

	// Cached dashboard aggregate, invalidated on every finance write.
	dashboardCache *cache.LRUCache[core.DashboardAggregate]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, finance FinanceAPI, roster RosterAPI) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		finance:          finance,
		roster:           roster,
		rateLimiter:      newRateLimiter(),
		dashboardCache:   cache.NewLRUCache[core.DashboardAggregate](1, 30*time.Second),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/dashboard", s.withMiddleware(s.handleDashboard))

	mux.HandleFunc("PATCH /api/finance/invoices/{id}", s.withMiddleware(s.handlePatchInvoice))
	mux.HandleFunc("PATCH /api/finance/payments/{id}", s.withMiddleware(s.handlePatchPayment))
	mux.HandleFunc("PATCH /api/finance/refunds/{id}", s.withMiddleware(s.handlePatchRefund))
	mux.HandleFunc("PATCH /api/finance/budget/{id}", s.withMiddleware(s.handlePatchBudget))

	mux.HandleFunc("GET /api/invoices", s.withMiddleware(s.handleListInvoices))
	mux.HandleFunc("POST /api/invoices", s.withMiddleware(s.handleCreateInvoice))
	mux.HandleFunc("GET /api/invoices/{id}", s.withMiddleware(s.handleGetInvoice))
	mux.HandleFunc("GET /api/payments", s.withMiddleware(s.handleListPayments))
	mux.HandleFunc("POST /api/payments", s.withMiddleware(s.handleCreatePayment))
	mux.HandleFunc("GET /api/payments/{id}", s.withMiddleware(s.handleGetPayment))
	mux.HandleFunc("GET /api/refunds", s.withMiddleware(s.handleListRefunds))
	mux.HandleFunc("POST /api/refunds", s.withMiddleware(s.handleCreateRefund))
	mux.HandleFunc("GET /api/refunds/{id}", s.withMiddleware(s.handleGetRefund))
	mux.HandleFunc("GET /api/budget", s.withMiddleware(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget", s.withMiddleware(s.handleSetBudget))

	mux.HandleFunc("GET /api/events", s.withMiddleware(s.handleListEvents))
	mux.HandleFunc("POST /api/events", s.withMiddleware(s.handleCreateEvent))
	mux.HandleFunc("GET /api/events/{id}", s.withMiddleware(s.handleGetEvent))
	mux.HandleFunc("GET /api/events/{id}/members", s.withMiddleware(s.handleEventRoster))
	mux.HandleFunc("POST /api/events/{id}/members", s.withMiddleware(s.handleAssignMember))
	mux.HandleFunc("GET /api/members", s.withMiddleware(s.handleListMembers))
	mux.HandleFunc("POST /api/members", s.withMiddleware(s.handleCreateMember))
	mux.HandleFunc("GET /api/members/{id}", s.withMiddleware(s.handleGetMember))

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.dashboardCache.CleanExpired(); cleaned > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and then the HTTP server.
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

// withMiddleware adds security headers, rate limiting, and request
// logging to a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutating requests only.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
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
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

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
