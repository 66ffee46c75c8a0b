package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/whitelabel-ai/askai-service/internal/chat"
)

// apiClient talks to a running askai server
type apiClient struct {
	baseURL string
	license string
	http    *http.Client
	token   string
}

func newAPIClient(baseURL, license string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		license: license,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is a non-2xx reply from the server
type apiError struct {
	Status  int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// authenticate mints a fresh access token for the client's licence
func (c *apiClient) authenticate(ctx context.Context) error {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.post(ctx, "/v1/auth/token", false, map[string]string{"licenseCert": c.license}, &out); err != nil {
		return err
	}
	c.token = out.AccessToken
	return nil
}

func (c *apiClient) chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResponse, error) {
	var out chat.ChatResponse
	if err := c.postAuthed(ctx, "/v1/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) ask(ctx context.Context, question string) (string, error) {
	var out chat.AskResponse
	if err := c.postAuthed(ctx, "/v1/ask-ai", chat.AskRequest{Question: question}, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}

func (c *apiClient) apply(ctx context.Context, sessionID, suggestionID string) (string, error) {
	var out chat.ApplyResponse
	req := chat.ApplyRequest{SessionID: sessionID, SuggestionID: suggestionID}
	if err := c.postAuthed(ctx, "/v1/chat/apply-suggestion", req, &out); err != nil {
		return "", err
	}
	return out.Parameters.JSCode, nil
}

// postAuthed posts with the current token, re-authenticating once when the
// token is missing or has expired.
func (c *apiClient) postAuthed(ctx context.Context, path string, in, out any) error {
	if c.token == "" {
		if err := c.authenticate(ctx); err != nil {
			return err
		}
	}

	err := c.post(ctx, path, true, in, out)
	if apiErr, ok := err.(*apiError); ok && apiErr.Status == http.StatusUnauthorized {
		if err := c.authenticate(ctx); err != nil {
			return err
		}
		return c.post(ctx, path, true, in, out)
	}
	return err
}

func (c *apiClient) post(ctx context.Context, path string, authed bool, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
