package twitch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	httpCallTimeout = 10 * time.Second

	// defaultRequestsPerMinute mirrors the Helix app-token rate limit bucket.
	defaultRequestsPerMinute = 800
)

// Options configures a Client. ClientID and ClientSecret are always
// required. Exactly one auth shape is valid: AppMode with no AccessToken,
// or an AccessToken (user mode, RefreshToken recommended).
type Options struct {
	ClientID     string
	ClientSecret string

	// AccessToken and RefreshToken are the user-mode credentials, obtained
	// externally (authorization code flow) and supplied at construction.
	AccessToken  string
	RefreshToken string

	// AppMode requests an app access token via the client credentials grant
	// during New. App tokens reach public data only.
	AppMode bool

	// RedirectURI is used by AuthorizationURL. Optional otherwise.
	RedirectURI string

	// RequestsPerMinute caps outbound API calls. Zero means the Helix
	// default of 800.
	RequestsPerMinute int

	// AuthBaseURL and APIBaseURL override the Twitch hosts, for tests.
	AuthBaseURL string
	APIBaseURL  string

	// HTTPClient overrides the default 10s-timeout client.
	HTTPClient *http.Client

	// Clock drives token expiry bookkeeping, for tests.
	Clock clockwork.Clock
}

// Client is a Twitch Helix API client. It is safe for concurrent use.
type Client struct {
	apiBaseURL  string
	redirectURI string
	httpClient  *http.Client
	tokens      *tokenSource
	limiter     *rate.Limiter
	breaker     *apiBreaker
	listeners   listenerSet

	// currentUser is cached at construction in user mode.
	currentUser *User
}

// New constructs a Client and performs initial setup: app mode fetches an
// app access token, user mode fetches the current user's profile. The ready
// notification fires once setup completes.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if opts.AppMode && opts.AccessToken != "" {
		return nil, ErrConflictingAuth
	}
	if !opts.AppMode && opts.AccessToken == "" {
		return nil, fmt.Errorf("%w: user mode requires an access token", ErrMissingCredentials)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpCallTimeout}
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	authBaseURL := opts.AuthBaseURL
	if authBaseURL == "" {
		authBaseURL = defaultAuthBaseURL
	}
	apiBaseURL := opts.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	perMinute := opts.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMinute
	}

	c := &Client{
		apiBaseURL:  strings.TrimSuffix(apiBaseURL, "/"),
		redirectURI: opts.RedirectURI,
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 10),
		breaker:     newAPIBreaker(),
	}
	c.tokens = &tokenSource{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		appMode:      opts.AppMode,
		authBaseURL:  strings.TrimSuffix(authBaseURL, "/"),
		httpClient:   httpClient,
		clock:        clock,
		onRefresh:    c.emitRefresh,
	}

	if opts.AppMode {
		tok, err := c.tokens.fetchToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get app access token: %w", err)
		}
		c.tokens.setToken(tok)
	} else {
		c.tokens.setToken(Token{AccessToken: opts.AccessToken, RefreshToken: opts.RefreshToken})
		user, err := c.fetchCurrentUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch current user: %w", err)
		}
		c.currentUser = user
		slog.InfoContext(ctx, "Twitch client ready", "user_login", user.Login)
	}

	c.emitReady()
	return c, nil
}

// AppMode reports whether the client holds an app access token.
func (c *Client) AppMode() bool {
	return c.tokens.appMode
}

// AccessToken returns the current access token. It changes whenever a
// refresh succeeds.
func (c *Client) AccessToken() string {
	return c.tokens.token()
}

// ValidateToken asks the OAuth validate endpoint whether the current token
// is still accepted.
func (c *Client) ValidateToken(ctx context.Context) (bool, error) {
	return c.tokens.validate(ctx)
}

// AuthorizationURL builds the authorization-code consent URL for the given
// scopes and returns it together with the random state parameter embedded
// in it. The host application is responsible for checking the state echoed
// back on the redirect.
func (c *Client) AuthorizationURL(scopes ...string) (authURL, state string) {
	state = uuid.NewString()

	v := url.Values{}
	v.Set("client_id", c.tokens.clientID)
	v.Set("redirect_uri", c.redirectURI)
	v.Set("response_type", "code")
	v.Set("scope", strings.Join(scopes, " "))
	v.Set("state", state)

	return c.tokens.authBaseURL + "/oauth2/authorize?" + v.Encode(), state
}
