// Package server assembles the HTTP and WebSocket API for the engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/server/handler"
	"github.com/creditmesh/chitengine/internal/server/middleware"
	"github.com/creditmesh/chitengine/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Rate limiting. Limiter may be nil, which disables it.
	Limiter         domain.RateLimiter
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health   *handler.HealthHandler
	Oracle   *handler.OracleHandler
	Pools    *handler.PoolHandler
	Auctions *handler.AuctionHandler
	Admin    *handler.AdminHandler
	Defi     *handler.DefiHandler
}

// Server is the headless HTTP + WebSocket surface over the engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux
// and the middleware chain (rate limit, auth, logging, CORS) applied.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Reputation reads.
	mux.HandleFunc("GET /api/score/{account}", handlers.Oracle.GetScore)
	mux.HandleFunc("GET /api/trust/{account}", handlers.Oracle.GetTrustProfile)
	mux.HandleFunc("GET /api/trust/{from}/{to}", handlers.Oracle.GetTrustEdge)

	// Oracle writes.
	mux.HandleFunc("POST /api/trust", handlers.Oracle.SetTrust)
	mux.HandleFunc("POST /api/outcomes", handlers.Oracle.RecordOutcome)
	mux.HandleFunc("POST /api/payments", handlers.Oracle.RecordPayment)

	// Pools.
	mux.HandleFunc("POST /api/pools", handlers.Pools.CreatePool)
	mux.HandleFunc("GET /api/pools/{id}", handlers.Pools.GetPool)
	mux.HandleFunc("POST /api/pools/{id}/deposits", handlers.Pools.DepositPremium)

	// Auction lifecycle.
	mux.HandleFunc("POST /api/auctions", handlers.Auctions.CreateAuction)
	mux.HandleFunc("GET /api/auctions/{id}", handlers.Auctions.GetAuction)
	mux.HandleFunc("POST /api/auctions/{id}/commits", handlers.Auctions.CommitBid)
	mux.HandleFunc("POST /api/auctions/{id}/reveals", handlers.Auctions.RevealBid)
	mux.HandleFunc("POST /api/auctions/{id}/close", handlers.Auctions.CloseAuction)

	// Admin.
	mux.HandleFunc("POST /api/admin/roles/grant", handlers.Admin.GrantRole)
	mux.HandleFunc("POST /api/admin/roles/revoke", handlers.Admin.RevokeRole)
	mux.HandleFunc("PUT /api/admin/protocols", handlers.Admin.SetProtocol)

	// External token and protocol calls.
	mux.HandleFunc("POST /api/tokens/trade", handlers.Defi.TradeTokens)
	mux.HandleFunc("POST /api/defi/call", handlers.Defi.Call)

	// WebSocket event feed.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	if cfg.Limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(cfg.Limiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
