// Package apperr defines the error taxonomy shared by the HTTP surface and the
// chat pipeline. Every error that reaches a client carries an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP layer.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindAuth             Kind = "auth_error"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindUpstream         Kind = "upstream_error"
	KindMisconfiguration Kind = "misconfiguration"
	KindRateLimited      Kind = "rate_limited"
	KindInternal         Kind = "internal_error"
)

// Error is a classified, client-presentable error.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports a malformed or missing request field.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: message}
}

// Auth reports a missing, malformed or expired credential.
func Auth(err error) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: "Unauthorized", Err: err}
}

// NotFound reports an unknown resource.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// Conflict reports a resource that exists but belongs to someone else.
// The wire status is 400, matching what editor clients already handle.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusBadRequest, Message: message}
}

// Misconfiguration reports a missing server-side credential.
func Misconfiguration(message string) *Error {
	return &Error{Kind: KindMisconfiguration, Status: http.StatusInternalServerError, Message: message}
}

// RateLimited reports a client that exceeded its request budget.
func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Message: message}
}

// Upstream wraps a completion-provider failure. upstreamStatus is the status
// the provider reported (0 when the call never got a response). message is
// the provider's own text; statuses with a fixed client message replace it.
func Upstream(upstreamStatus int, message string, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Status:  UpstreamStatus(upstreamStatus),
		Message: UpstreamMessage(upstreamStatus, message),
		Err:     err,
	}
}

// UpstreamMessage picks the client message for a provider status
func UpstreamMessage(status int, providerMessage string) string {
	switch status {
	case http.StatusNotFound:
		return "model not found"
	case http.StatusTooManyRequests:
		return "rate limited"
	case http.StatusRequestEntityTooLarge:
		return "request too large"
	default:
		return providerMessage
	}
}

// UpstreamStatus maps a provider status onto the status returned to clients.
func UpstreamStatus(status int) int {
	switch status {
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case http.StatusRequestEntityTooLarge:
		return http.StatusRequestEntityTooLarge
	case http.StatusBadRequest, http.StatusNotFound:
		return http.StatusBadRequest
	case http.StatusGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// As extracts an *Error from err. Unclassified errors become internal errors.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal error", Err: err}
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
