package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/whitelabel-ai/askai-service/internal/apperr"
	"github.com/whitelabel-ai/askai-service/internal/chat"
	"github.com/whitelabel-ai/askai-service/internal/observability"
	"github.com/whitelabel-ai/askai-service/pkg/security"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type tokenRequest struct {
	LicenseCert string `json:"licenseCert"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.issuer.Issue(req.LicenseCert)
	s.recordAudit(r, security.NewAuditEvent(security.EventTokenIssued, req.LicenseCert, err))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	observability.LoggerFromContext(r.Context(), s.logger).Info("issued access token")
	s.writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req chat.AskRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	code, err := s.assistant.Ask(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, chat.AskResponse{Code: code})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.ChatRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.assistant.Chat(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req chat.ApplyRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.assistant.Apply(r.Context(), req)
	var licence string
	if claims, ok := security.ClaimsFromContext(r.Context()); ok {
		licence = claims.LicenseCert
	}
	event := security.NewAuditEvent(security.EventSuggestionApplied, licence, err)
	event.Resource = req.SuggestionID
	s.recordAudit(r, event)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleBanner(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": ServiceName})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, errorBody{
		Code:    http.StatusNotFound,
		Message: "Not found",
		Path:    r.URL.Path,
	})
}

// recordAudit stamps event with the request id and client address
func (s *Server) recordAudit(r *http.Request, event *security.AuditEvent) {
	event.RequestID = observability.RequestIDFromContext(r.Context())
	event.IPAddress = clientIP(r)
	s.audit.Log(event)
}

// decodeJSON reads a size-limited JSON body into dst. An empty body leaves
// dst at its zero value so handlers report the missing fields themselves.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &tooLarge):
			return apperr.Validation("request body too large")
		default:
			return apperr.Validation("invalid JSON body")
		}
	}
	return nil
}

// writeError maps err onto its status and writes {code, message}
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)

	logger := observability.LoggerFromContext(r.Context(), s.logger)
	if ae.Status >= http.StatusInternalServerError {
		logger.Warn("request failed", zap.String("kind", string(ae.Kind)), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.String("kind", string(ae.Kind)), zap.Error(err))
	}

	s.writeJSON(w, ae.Status, errorBody{Code: ae.Status, Message: ae.Message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}
