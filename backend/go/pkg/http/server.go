package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"Synapse/backend/go/internal/config"
	"Synapse/backend/go/pkg/circuitbreaker"
	"Synapse/backend/go/pkg/httpmiddleware"
	"Synapse/backend/go/pkg/logger"
	"Synapse/backend/go/pkg/ratelimiter"
)

// Middleware defines a function to wrap an http.Handler.
type Middleware func(http.Handler) http.Handler

// Server wraps http.Server and applies the configured middleware chain
// (access log, rate limiter, circuit breaker) in front of a mux.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	log        *logger.Logger
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithLogger sets the logger used for access logs and lifecycle messages.
func WithLogger(log *logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithTimeouts sets read and write timeouts. Card creation runs the whole
// ingestion pipeline inside the request, so the write timeout must cover it.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(s *Server) {
		s.httpServer.ReadTimeout = read
		s.httpServer.WriteTimeout = write
	}
}

// NewServer creates a Server from the middleware section of cfg.
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	mux := http.NewServeMux()
	srv := &Server{
		httpServer: &http.Server{},
		mux:        mux,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	var middlewares []Middleware
	middlewares = append(middlewares, httpmiddleware.AccessLog(srv.log))

	if cfg.Middleware.RateLimiter.Enabled && !cfg.Middleware.RateLimiter.PerUser {
		limiter, err := NewRateLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		srv.log.WithField("algorithm", cfg.Middleware.RateLimiter.Algorithm).Info("Enabling Rate Limiter middleware")
		middlewares = append(middlewares, httpmiddleware.RateLimit(limiter))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := NewCircuitBreaker(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		srv.log.Info("Enabling Circuit Breaker middleware")
		middlewares = append(middlewares, httpmiddleware.CircuitBreak(breaker))
	}

	var handler http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	srv.httpServer.Handler = handler

	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8080"
	}
	return srv, nil
}

// Handle registers the handler for the given pattern.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// HandleFunc registers the handler function for the given pattern.
func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log.Info("Starting HTTP server on " + s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// NewRateLimiter builds a limiter for the configured algorithm.
func NewRateLimiter(cfg config.RateLimiterConfig) (ratelimiter.RateLimiter, error) {
	switch cfg.Algorithm {
	case "", "tokenBucket":
		return ratelimiter.NewTokenBucket(cfg.TokenBucket.Rate, cfg.TokenBucket.Capacity), nil
	case "fixedWindow":
		window, err := time.ParseDuration(cfg.FixedWindow.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		return ratelimiter.NewFixedWindowCounter(cfg.FixedWindow.Limit, window), nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}

// NewCircuitBreaker builds a breaker from cfg.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig, opts ...circuitbreaker.Option) (circuitbreaker.CircuitBreaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout, opts...), nil
}
