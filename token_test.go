package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VioletFlare/twitch-go/internal/retry"
)

func newTestTokenSource(authURL string, appMode bool) *tokenSource {
	return &tokenSource{
		clientID:     "test_client",
		clientSecret: "test_secret",
		appMode:      appMode,
		authBaseURL:  authURL,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		clock:        clockwork.NewFakeClock(),
	}
}

func TestTokenRequestError_Revoked(t *testing.T) {
	err := &TokenRequestError{
		Revoked: true,
		Err:     fmt.Errorf("token was revoked by user"),
	}

	assert.Contains(t, err.Error(), "token revoked:")
	assert.Contains(t, err.Error(), "token was revoked by user")
}

func TestTokenRequestError_NotRevoked(t *testing.T) {
	err := &TokenRequestError{
		Revoked: false,
		Err:     fmt.Errorf("network error"),
	}

	assert.Contains(t, err.Error(), "token request failed:")
	assert.Contains(t, err.Error(), "network error")
}

func TestRequestToken_RefreshGrant(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		err := r.ParseForm()
		require.NoError(t, err)
		assert.Equal(t, "test_client", r.FormValue("client_id"))
		assert.Equal(t, "test_secret", r.FormValue("client_secret"))
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "old_refresh", r.FormValue("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new_access",
			"refresh_token": "new_refresh",
			"expires_in":    7200,
		})
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)
	ts.refreshToken = "old_refresh"

	tok, err := ts.requestToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "new_access", tok.AccessToken)
	assert.Equal(t, "new_refresh", tok.RefreshToken)
	assert.Equal(t, 7200, tok.ExpiresIn)
}

func TestRequestToken_ClientCredentialsGrant(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		require.NoError(t, err)
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Empty(t, r.FormValue("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "app_access",
			"expires_in":   3600,
		})
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, true)

	tok, err := ts.requestToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "app_access", tok.AccessToken)
	assert.Empty(t, tok.RefreshToken)
}

func TestRequestToken_BadRequest(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","message":"Invalid refresh token"}`))
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)

	_, err := ts.requestToken(context.Background())

	require.Error(t, err)
	var reqErr *TokenRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.True(t, reqErr.Revoked, "400 status should indicate revoked token")
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
}

func TestRequestToken_ServerError(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)

	_, err := ts.requestToken(context.Background())

	require.Error(t, err)
	var reqErr *TokenRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.False(t, reqErr.Revoked, "500 status should not indicate revoked token")
}

func TestRequestToken_MalformedJSON(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{invalid json`))
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)

	_, err := ts.requestToken(context.Background())

	require.Error(t, err)
	var reqErr *TokenRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, err.Error(), "token request failed")
}

func TestClassifyTokenError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want retry.Decision
	}{
		{"revoked", &TokenRequestError{Revoked: true}, retry.Stop},
		{"rate limited", &TokenRequestError{StatusCode: http.StatusTooManyRequests}, retry.Cooldown},
		{"server error", &TokenRequestError{StatusCode: http.StatusInternalServerError}, retry.Again},
		{"network error", fmt.Errorf("connection refused"), retry.Again},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyTokenError(tt.err))
		})
	}
}

func TestFetchToken_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "recovered_access",
			"expires_in":   3600,
		})
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, true)

	tok, err := ts.fetchToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "recovered_access", tok.AccessToken)
	assert.Equal(t, int64(2), calls.Load(), "a 5xx response gets another attempt")
}

func TestFetchToken_StopsOnRevokedCredentials(t *testing.T) {
	var calls atomic.Int64
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","message":"Invalid refresh token"}`))
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)

	_, err := ts.fetchToken(context.Background())

	var reqErr *TokenRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.True(t, reqErr.Revoked)
	assert.Equal(t, int64(1), calls.Load(), "revoked credentials must not be retried")
}

func TestSetToken_TracksExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ts := newTestTokenSource("http://unused", false)
	ts.clock = clock

	ts.setToken(Token{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600})

	assert.Equal(t, "access", ts.token())
	assert.False(t, ts.stale(), "fresh token must not be stale")

	clock.Advance(3600*time.Second - 30*time.Second)
	assert.True(t, ts.stale(), "token inside the freshness window must be stale")
}

func TestSetToken_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	ts := newTestTokenSource("http://unused", false)
	ts.setToken(Token{AccessToken: "first", RefreshToken: "keep_me"})
	ts.setToken(Token{AccessToken: "second"})

	ts.mu.Lock()
	defer ts.mu.Unlock()
	assert.Equal(t, "keep_me", ts.refreshToken)
	assert.Equal(t, "second", ts.accessToken)
}

func TestStale_UnknownExpiry(t *testing.T) {
	ts := newTestTokenSource("http://unused", false)
	ts.setToken(Token{AccessToken: "access"})
	assert.False(t, ts.stale(), "tokens with unknown expiry are never stale")
}

func TestRefreshAfterFailure_AttemptBound(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh", "refresh_token": "fresh_r"})
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)
	ts.refreshToken = "seed"

	ctx := context.Background()
	for i := 0; i < maxRefreshAttempts; i++ {
		_, err := ts.refreshAfterFailure(ctx)
		require.NoError(t, err)
	}

	_, err := ts.refreshAfterFailure(ctx)
	require.ErrorIs(t, err, ErrRefreshExhausted)
}

func TestEnsureFresh_DoesNotConsumeAttempts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "fresh", "expires_in": 3600})
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)
	ts.clock = clock
	ts.refreshToken = "seed"
	ts.setToken(Token{AccessToken: "old", ExpiresIn: 30})

	require.NoError(t, ts.ensureFresh(context.Background()))
	assert.Equal(t, "fresh", ts.token())
	assert.Zero(t, ts.attempts, "proactive refreshes must not consume recovery attempts")
}

func TestRefresh_NotifiesListener(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "notified_access",
			"refresh_token": "notified_refresh",
			"expires_in":    3600,
		})
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)
	ts.refreshToken = "seed"

	var got Token
	ts.onRefresh = func(tok Token) { got = tok }

	_, err := ts.refreshAfterFailure(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "notified_access", got.AccessToken)
	assert.Equal(t, "notified_refresh", got.RefreshToken)
	assert.Equal(t, 3600, got.ExpiresIn)
}

func TestValidate_Valid(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/validate", r.URL.Path)
		assert.Equal(t, "OAuth current_token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)
	ts.accessToken = "current_token"

	valid, err := ts.validate(context.Background())

	require.NoError(t, err)
	assert.True(t, valid)
}

func TestValidate_Invalid(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":401,"message":"invalid access token"}`))
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)

	valid, err := ts.validate(context.Background())

	require.NoError(t, err)
	assert.False(t, valid)
}

func TestValidate_FatalMessage(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":401,"message":"missing authorization token"}`))
	}))
	defer mockServer.Close()

	ts := newTestTokenSource(mockServer.URL, false)

	valid, err := ts.validate(context.Background())

	assert.False(t, valid)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Fatal())
}
