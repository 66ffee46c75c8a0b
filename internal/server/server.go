// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/whitelabel-ai/askai-service/internal/chat"
	metrics "github.com/whitelabel-ai/askai-service/pkg/observability"
	"github.com/whitelabel-ai/askai-service/pkg/security"
)

// ServiceName is reported by the banner route
const ServiceName = "askai-service"

// DefaultMaxBodyBytes caps JSON request bodies
const DefaultMaxBodyBytes = 2 << 20

// Assistant is the chat pipeline served over HTTP
type Assistant interface {
	Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResponse, error)
	Ask(ctx context.Context, req chat.AskRequest) (string, error)
	Apply(ctx context.Context, req chat.ApplyRequest) (*chat.ApplyResponse, error)
}

// Config holds listener settings
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// Server serves the assistant API
type Server struct {
	httpServer *http.Server
	handler    http.Handler

	assistant Assistant
	issuer    *security.TokenIssuer
	limiter   *security.RateLimiter
	health    *metrics.HealthChecker
	audit     security.AuditLogger
	logger    *zap.Logger
	maxBody   int64
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimiter limits protected routes per licence certificate
func WithRateLimiter(rl *security.RateLimiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

// WithHealthChecker mounts the health and metrics routes
func WithHealthChecker(hc *metrics.HealthChecker) Option {
	return func(s *Server) {
		s.health = hc
	}
}

// WithAuditLogger records token issuance, auth denials and applied
// suggestions
func WithAuditLogger(a security.AuditLogger) Option {
	return func(s *Server) {
		if a != nil {
			s.audit = a
		}
	}
}

// New creates a server. Routes are registered immediately so Handler can be
// used without starting a listener.
func New(cfg Config, issuer *security.TokenIssuer, assistant Assistant, opts ...Option) *Server {
	s := &Server{
		assistant: assistant,
		issuer:    issuer,
		audit:     security.NoOpAuditLogger{},
		logger:    zap.NewNop(),
		maxBody:   cfg.MaxBodyBytes,
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	for _, opt := range opts {
		opt(s)
	}

	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		return security.RequireBearer(s.issuer, s.deny)(s.rateLimit(h))
	}

	for _, prefix := range []string{"", "/v1"} {
		mux.HandleFunc("POST "+prefix+"/auth/token", s.handleToken)
		mux.Handle("POST "+prefix+"/ask-ai", protect(s.handleAsk))
		mux.Handle("POST "+prefix+"/chat", protect(s.handleChat))
		mux.Handle("POST "+prefix+"/chat/apply-suggestion", protect(s.handleApply))
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /{$}", s.handleBanner)
	if s.health != nil {
		metrics.Mount(mux, s.health)
	}
	mux.HandleFunc("/", s.handleNotFound)

	return s.recoverPanics(s.logRequests(cors(mux)))
}
