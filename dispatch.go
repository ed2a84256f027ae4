package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/VioletFlare/twitch-go/internal/correlation"
	"github.com/VioletFlare/twitch-go/internal/metrics"
)

// maxDispatchAttempts bounds the request loop: the original call plus one
// retry after a successful token refresh.
const maxDispatchAttempts = 2

// apiBreaker protects the API host: sustained transport errors or 5xx
// responses open the circuit so a dead upstream fails fast.
type apiBreaker struct {
	cb circuitbreaker.CircuitBreaker[any]
}

// newAPIBreaker creates the breaker with a 60% failure rate over a 10s
// rolling window (min 5 requests), 30s open delay, one success to close.
func newAPIBreaker() *apiBreaker {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("API circuit breaker state changed",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.BreakerStateChanges.WithLabelValues(e.NewState.String()).Inc()
			metrics.BreakerState.Set(breakerStateValue(e.NewState))
		}).
		Build()
	return &apiBreaker{cb: cb}
}

func breakerStateValue(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// get dispatches a GET with the full refresh-and-retry protocol.
func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	return c.dispatch(ctx, http.MethodGet, endpoint, path, nil, out)
}

// post dispatches a POST. Auth failure handling is identical to GET: the
// original wrapper's POST path had a broken retry branch, reimplemented
// here as the same validate-refresh-retry protocol.
func (c *Client) post(ctx context.Context, endpoint, path string, body, out any) error {
	return c.dispatch(ctx, http.MethodPost, endpoint, path, body, out)
}

// dispatch performs an API call with auth headers and runs the bounded
// refresh protocol on failure:
//
//	request -> 4xx/5xx -> validate token -> still valid: surface the error
//	                                     -> invalid: refresh (bounded), retry once
//
// The loop is explicit; exceeding the refresh attempt bound or a fatal
// server message aborts immediately. Every APIError is logged and emitted
// to error listeners, including ones recovered by the retry.
func (c *Client) dispatch(ctx context.Context, method, endpoint, path string, body, out any) error {
	if _, ok := correlation.ID(ctx); !ok {
		ctx = correlation.WithID(ctx, correlation.NewID())
	}

	if err := c.tokens.ensureFresh(ctx); err != nil {
		// The stored token may still work; let the request decide.
		slog.WarnContext(ctx, "Proactive token refresh failed", "error", err)
	}

	for attempt := 1; ; attempt++ {
		apiErr, err := c.roundTrip(ctx, method, endpoint, path, body, out)
		if err != nil {
			return err
		}
		if apiErr == nil {
			return nil
		}

		c.emitError(apiErr)
		if apiErr.Fatal() {
			return fmt.Errorf("unrecoverable auth failure: %w", apiErr)
		}
		if attempt >= maxDispatchAttempts {
			return apiErr
		}

		valid, verr := c.tokens.validate(ctx)
		if verr != nil {
			return fmt.Errorf("token validation failed: %w", verr)
		}
		if valid {
			// The token is fine, the failure is the request's own.
			return apiErr
		}

		if _, rerr := c.tokens.refreshAfterFailure(ctx); rerr != nil {
			return rerr
		}
		metrics.RequestRetriesTotal.Inc()
		slog.InfoContext(ctx, "Retrying request after token refresh",
			"endpoint", endpoint, "method", method)
	}
}

// roundTrip performs one HTTP exchange. A non-nil *APIError means the
// server answered with status >= 400; a non-nil error means the request
// never produced a usable response.
func (c *Client) roundTrip(ctx context.Context, method, endpoint, path string, body, out any) (*APIError, error) {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	if !c.breaker.cb.TryAcquirePermit() {
		return nil, fmt.Errorf("api request failed: %w", circuitbreaker.ErrOpen)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.cb.RecordError(err)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	metrics.RequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.cb.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		c.breaker.cb.RecordError(fmt.Errorf("status %d", resp.StatusCode))
	} else {
		c.breaker.cb.RecordSuccess()
	}

	if resp.StatusCode >= 400 {
		apiErr := newAPIError(resp.StatusCode, raw)
		slog.ErrorContext(ctx, "API request failed",
			"endpoint", endpoint,
			"method", method,
			"status", resp.StatusCode,
			"error_type", string(apiErr.Type),
			"message", apiErr.Message,
		)
		return apiErr, nil
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("Client-Id", c.tokens.clientID)
	req.Header.Set("Authorization", "Bearer "+c.tokens.token())
}

// RequestOptions describes a raw passthrough request for Do.
type RequestOptions struct {
	// Method defaults to GET.
	Method string
	Body   io.Reader
	Header http.Header
}

// Do performs a raw request against the API host. The library injects the
// base URL and auth headers and normalizes the leading slash; it does not
// run the refresh protocol. Failures are logged and returned, not emitted
// to error listeners.
func (c *Client) Do(ctx context.Context, path string, opts RequestOptions, out any) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidRequest)
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead:
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, opts.Method)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if _, ok := correlation.ID(ctx); !ok {
		ctx = correlation.WithID(ctx, correlation.NewID())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, opts.Body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	c.setAuthHeaders(req)

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.RequestsTotal.WithLabelValues("custom", fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		apiErr := newAPIError(resp.StatusCode, raw)
		slog.ErrorContext(ctx, "Custom request failed",
			"path", path, "method", method, "status", resp.StatusCode)
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil
}
