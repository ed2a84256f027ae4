package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/VioletFlare/twitch-go/internal/metrics"
	"github.com/VioletFlare/twitch-go/internal/retry"
)

const (
	defaultAuthBaseURL = "https://id.twitch.tv"
	defaultAPIBaseURL  = "https://api.twitch.tv/helix"

	// maxRefreshAttempts bounds failure-driven refreshes per client lifetime.
	// The third attempt fails with ErrRefreshExhausted.
	maxRefreshAttempts = 2

	// tokenFreshnessWindow is how close to expiry a token may get before a
	// proactive refresh kicks in.
	tokenFreshnessWindow = 60 * time.Second
)

// Token is an OAuth token payload as returned by the Twitch token endpoint.
type Token struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	TokenType    string   `json:"token_type"`
	Scope        []string `json:"scope"`
}

// TokenRequestError is returned when the token endpoint rejects a grant
// request. Revoked marks 400/401 responses, where retrying is pointless.
type TokenRequestError struct {
	Revoked    bool
	StatusCode int
	Err        error
}

func (e *TokenRequestError) Error() string {
	if e.Revoked {
		return fmt.Sprintf("token revoked: %v", e.Err)
	}
	return fmt.Sprintf("token request failed: %v", e.Err)
}

func (e *TokenRequestError) Unwrap() error { return e.Err }

// tokenSource owns the mutable credential state: the current access/refresh
// token pair, its expiry, and the failure-driven refresh attempt counter.
type tokenSource struct {
	clientID     string
	clientSecret string
	appMode      bool
	authBaseURL  string
	httpClient   *http.Client
	clock        clockwork.Clock
	onRefresh    func(Token)

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	attempts     int

	group singleflight.Group
}

// token returns the current access token.
func (ts *tokenSource) token() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.accessToken
}

// setToken overwrites the in-memory token pair. A missing refresh token in
// the payload keeps the previous one (the token endpoint omits it for the
// client credentials grant).
func (ts *tokenSource) setToken(tok Token) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		ts.refreshToken = tok.RefreshToken
	}
	if tok.ExpiresIn > 0 {
		ts.expiresAt = ts.clock.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	} else {
		ts.expiresAt = time.Time{}
	}
}

func (ts *tokenSource) grantType() string {
	if ts.appMode {
		return "client_credentials"
	}
	return "refresh_token"
}

// stale reports whether the token expires within the freshness window.
// Tokens with unknown expiry are never considered stale.
func (ts *tokenSource) stale() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.expiresAt.IsZero() {
		return false
	}
	return !ts.clock.Now().Add(tokenFreshnessWindow).Before(ts.expiresAt)
}

// validate asks the OAuth validate endpoint whether the current token is
// still good. A 200 means valid. A response whose message marks the token
// as unauthenticatable is returned as a fatal error.
func (ts *tokenSource) validate(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.authBaseURL+"/oauth2/validate", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create validate request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+ts.token())

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to execute validate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
		return true, nil
	}

	metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
	body, _ := io.ReadAll(resp.Body)
	if apiErr := newAPIError(resp.StatusCode, body); apiErr.Fatal() {
		return false, apiErr
	}
	return false, nil
}

// ensureFresh refreshes a token that is about to expire. It does not touch
// the failure-driven attempt counter; proactive refreshes are bookkeeping,
// not recovery.
func (ts *tokenSource) ensureFresh(ctx context.Context) error {
	if !ts.stale() {
		return nil
	}
	_, err := ts.refresh(ctx, false)
	return err
}

// refreshAfterFailure runs a refresh on behalf of a failed API request.
// These count against the attempt bound.
func (ts *tokenSource) refreshAfterFailure(ctx context.Context) (Token, error) {
	return ts.refresh(ctx, true)
}

// refresh requests a new token using the mode's grant. Concurrent callers
// collapse into a single upstream request.
func (ts *tokenSource) refresh(ctx context.Context, counted bool) (Token, error) {
	v, err, _ := ts.group.Do("refresh", func() (any, error) {
		if counted {
			ts.mu.Lock()
			if ts.attempts >= maxRefreshAttempts {
				ts.mu.Unlock()
				return Token{}, ErrRefreshExhausted
			}
			ts.attempts++
			ts.mu.Unlock()
		}

		tok, err := ts.fetchToken(ctx)
		if err != nil {
			metrics.TokenRefreshesTotal.WithLabelValues(ts.grantType(), "failure").Inc()
			return Token{}, err
		}

		metrics.TokenRefreshesTotal.WithLabelValues(ts.grantType(), "success").Inc()
		ts.setToken(tok)
		if ts.onRefresh != nil {
			ts.onRefresh(tok)
		}
		return tok, nil
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}

// fetchToken calls the token endpoint under the retry policy. Revoked
// responses abort immediately; transient failures get bounded backoff.
func (ts *tokenSource) fetchToken(ctx context.Context) (Token, error) {
	policy := retry.Policy{
		Attempts:      3,
		BaseDelay:     500 * time.Millisecond,
		CooldownDelay: 5 * time.Second,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			slog.WarnContext(ctx, "Token request failed, retrying",
				"attempt", attempt, "delay", delay, "error", err)
		},
	}
	return retry.Do(ctx, policy, classifyTokenError, func() (Token, error) {
		return ts.requestToken(ctx)
	})
}

func classifyTokenError(err error) retry.Decision {
	var reqErr *TokenRequestError
	if errors.As(err, &reqErr) {
		if reqErr.Revoked {
			return retry.Stop
		}
		if reqErr.StatusCode == http.StatusTooManyRequests {
			return retry.Cooldown
		}
	}
	return retry.Again
}

// requestToken performs a single grant request against the token endpoint.
func (ts *tokenSource) requestToken(ctx context.Context) (Token, error) {
	data := url.Values{}
	data.Set("client_id", ts.clientID)
	data.Set("client_secret", ts.clientSecret)
	data.Set("grant_type", ts.grantType())
	if !ts.appMode {
		ts.mu.Lock()
		data.Set("refresh_token", ts.refreshToken)
		ts.mu.Unlock()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.authBaseURL+"/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return Token{}, &TokenRequestError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return Token{}, &TokenRequestError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, &TokenRequestError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		revoked := resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized
		return Token{}, &TokenRequestError{
			Revoked:    revoked,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return Token{}, &TokenRequestError{Err: err}
	}
	return tok, nil
}
