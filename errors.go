package twitch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrConflictingAuth is returned by New when the options carry both an
	// app-mode flag and a user access token. Exactly one auth shape is valid.
	ErrConflictingAuth = errors.New("twitch: conflicting auth options: app mode and user access token are mutually exclusive")

	// ErrMissingCredentials is returned by New when a required credential is
	// absent: no client id/secret, or user mode without an access token.
	// Credentials must be passed explicitly; there is no process-wide
	// fallback.
	ErrMissingCredentials = errors.New("twitch: client id and client secret are required")

	// ErrUserTokenRequired is returned by user-scoped methods when the client
	// runs in app mode.
	ErrUserTokenRequired = errors.New("twitch: method requires a user access token, client is in app mode")

	// ErrRefreshExhausted is returned once the refresh attempt bound is spent.
	// The session is unrecoverable; the host must construct a new client with
	// fresh credentials.
	ErrRefreshExhausted = errors.New("twitch: token refresh attempts exhausted")

	// ErrInvalidRequest is returned for malformed custom-request options.
	ErrInvalidRequest = errors.New("twitch: invalid request options")
)

func errAtLeastOneOf(params ...string) error {
	return fmt.Errorf("%w: at least one of %s is required", ErrInvalidRequest, strings.Join(params, ", "))
}

// ErrorType categorizes API failures for listeners and metrics.
type ErrorType string

const (
	// TypeAuth indicates an authentication failure (HTTP 401).
	TypeAuth ErrorType = "auth"
	// TypeRateLimit indicates the Helix rate limit was hit (HTTP 429).
	TypeRateLimit ErrorType = "ratelimit"
	// TypeClient indicates a request error (other HTTP 4xx).
	TypeClient ErrorType = "client"
	// TypeServer indicates a Twitch-side error (HTTP 5xx).
	TypeServer ErrorType = "server"
)

// APIError is constructed for any response with status >= 400. It is
// returned to the caller and emitted to registered error listeners.
type APIError struct {
	Type    ErrorType
	Code    int
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("twitch: %s error: %s (status %d): %s", e.Type, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("twitch: %s error: %s (status %d)", e.Type, e.Status, e.Code)
}

// Fatal reports whether the server-side message marks the token itself as
// unusable, in which case the refresh protocol must not run.
func (e *APIError) Fatal() bool {
	return strings.EqualFold(strings.TrimSpace(e.Message), missingAuthTokenMessage)
}

// missingAuthTokenMessage is the Twitch error body message that marks a
// request as unauthenticatable rather than retryable.
const missingAuthTokenMessage = "missing authorization token"

func errorTypeForStatus(code int) ErrorType {
	switch {
	case code == http.StatusUnauthorized:
		return TypeAuth
	case code == http.StatusTooManyRequests:
		return TypeRateLimit
	case code >= 500:
		return TypeServer
	default:
		return TypeClient
	}
}

// newAPIError builds an APIError from a response status and raw body.
// Twitch error bodies look like {"error":"Unauthorized","status":401,
// "message":"..."}; bodies that do not parse keep the HTTP status text.
func newAPIError(code int, body []byte) *APIError {
	apiErr := &APIError{
		Type:   errorTypeForStatus(code),
		Code:   code,
		Status: http.StatusText(code),
	}

	var payload struct {
		Error   string `json:"error"`
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			apiErr.Status = payload.Error
		}
		apiErr.Message = payload.Message
	}

	return apiErr
}
