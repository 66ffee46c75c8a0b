package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whitelabel-ai/askai-service/internal/apperr"
	"github.com/whitelabel-ai/askai-service/internal/observability"
	metrics "github.com/whitelabel-ai/askai-service/pkg/observability"
	"github.com/whitelabel-ai/askai-service/pkg/security"
)

// statusRecorder captures the status written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// logRequests tags each request with a short id, logs it on entry and exit
// and records request metrics by route pattern.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()[:8]

		auth := "absent"
		if r.Header.Get("Authorization") != "" {
			auth = "present"
		}

		logger := s.logger.With(zap.String("request_id", reqID))
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("auth", auth),
		)

		ctx := observability.ContextWithRequestID(r.Context(), reqID)
		ctx = observability.ContextWithLogger(ctx, logger)
		req := r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, req)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		duration := time.Since(start)
		logger.Info("response",
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
		)

		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), duration)
	})
}

// recoverPanics turns a handler panic into a 500 JSON error
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				s.writeError(w, r, fmt.Errorf("handler panic: %v", rv))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// cors allows any origin and answers preflight requests
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit bounds requests per licence certificate. It runs after
// authentication so the verified claims are on the context.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if claims, ok := security.ClaimsFromContext(r.Context()); ok && claims.LicenseCert != "" {
			key = claims.LicenseCert
		}
		if !s.limiter.Allow(key) {
			s.writeError(w, r, apperr.RateLimited("Too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// deny rejects a request that failed authentication
func (s *Server) deny(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context(), s.logger).Info("auth rejected", zap.Error(err))
	s.recordAudit(r, security.NewAuditEvent(security.EventAuthDenied, "", err))
	s.writeJSON(w, http.StatusUnauthorized, errorBody{Code: http.StatusUnauthorized, Message: "Unauthorized"})
}

// clientIP is the peer address without its port
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
