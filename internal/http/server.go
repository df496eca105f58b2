// Package http exposes the JSON API the mobile app talks to.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gafi/internal/cache"
	"gafi/internal/core"
	"gafi/internal/insights"
	"gafi/internal/log"
	"gafi/internal/mascot"
	"gafi/internal/middleware/trace"
	"gafi/internal/services"
	ports "gafi/internal/sheets"
	"gafi/internal/storage"
)

type Server struct {
	http.Server
	storage  *storage.SQLiteRepository
	expenses *services.ExpenseService
	insights *insights.Service
	mascot   *mascot.Mascot
	// expenseSource overrides SQLite reads when an external source
	// (Google Sheets, seeded memory) is configured.
	expenseSource ports.ExpenseSource
	logger        *log.Logger
	rateLimiter   *rateLimiter

	// Generated feeds are cached per user and invalidated when the
	// user logs a new expense.
	insightCache        *cache.LRUCache[[]core.InsightRecord]
	recommendationCache *cache.LRUCache[[]core.InsightRecord]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer wires routes and middleware, returning a ready-to-run
// server. source may be nil; expenses are then read from SQLite.
func NewServer(addr string, repo *storage.SQLiteRepository, expenses *services.ExpenseService, insightSvc *insights.Service, source ports.ExpenseSource) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		storage:             repo,
		expenses:            expenses,
		insights:            insightSvc,
		expenseSource:       source,
		logger:              log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP),
		mascot:              mascot.New(),
		rateLimiter:         newRateLimiter(),
		insightCache:        cache.NewLRUCache[[]core.InsightRecord](200, 5*time.Minute),
		recommendationCache: cache.NewLRUCache[[]core.InsightRecord](200, 5*time.Minute),
		stopCacheCleanup:    make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/insights", s.withSecurityHeaders(s.handleInsights))
	mux.HandleFunc("/api/recommendations", s.withSecurityHeaders(s.handleRecommendations))
	mux.HandleFunc("/api/overview", s.withSecurityHeaders(s.handleOverview))
	mux.HandleFunc("/api/expenses", s.withSecurityHeaders(s.handleExpenses))
	mux.HandleFunc("/api/budget", s.withSecurityHeaders(s.handleBudget))
	mux.HandleFunc("/api/mascot/chat", s.withSecurityHeaders(s.handleMascotChat))
	mux.HandleFunc("/api/mascot/tips", s.withSecurityHeaders(s.handleMascotTips))
	mux.HandleFunc("/api/mascot/stats", s.withSecurityHeaders(s.handleMascotStats))

	tracer := trace.NewMiddleware(clientIP)
	s.Handler = tracer.Middleware(mux)

	return s
}

// startCacheCleanup runs periodic cleanup for both feed caches
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			insightsCleaned := s.insightCache.CleanExpired()
			recsCleaned := s.recommendationCache.CleanExpired()
			if insightsCleaned > 0 || recsCleaned > 0 {
				s.logger.Debug("Cache cleanup completed",
					"insight_entries_removed", insightsCleaned,
					"recommendation_entries_removed", recsCleaned)
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

// withSecurityHeaders adds security headers and rate limiting. Request
// logging lives in the trace middleware wrapping the whole mux.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(ip) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, ip, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) invalidateFeeds(userID string) {
	s.insightCache.Delete(userID)
	s.recommendationCache.Delete(userID)
}
