package twitch

import (
	"context"
	"fmt"
	"time"
)

// User is a Twitch user profile.
type User struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"display_name"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcaster_type"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url"`
	OfflineImageURL string    `json:"offline_image_url"`
	ViewCount       int       `json:"view_count"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
}

// UsersResponse is the envelope returned by the users endpoint.
type UsersResponse struct {
	Data []User `json:"data"`
}

// GetUsers fetches user profiles. Each value is sniffed: purely numeric
// strings query by id, everything else by login. Helix caps a single call
// at 100 users.
func (c *Client) GetUsers(ctx context.Context, users ...string) (*UsersResponse, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: at least one user id or login is required", ErrInvalidRequest)
	}

	q := newQuery().addUsers(users)

	var resp UsersResponse
	if err := c.get(ctx, "users", "/users"+q.encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCurrentUser returns the profile of the user the access token belongs
// to. App-mode clients have no user; the call fails with
// ErrUserTokenRequired.
func (c *Client) GetCurrentUser(ctx context.Context) (*User, error) {
	if c.AppMode() {
		return nil, ErrUserTokenRequired
	}
	if c.currentUser != nil {
		user := *c.currentUser
		return &user, nil
	}
	return c.fetchCurrentUser(ctx)
}

// fetchCurrentUser calls the users endpoint without parameters, which Helix
// resolves from the bearer token.
func (c *Client) fetchCurrentUser(ctx context.Context) (*User, error) {
	var resp UsersResponse
	if err := c.get(ctx, "users", "/users", &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no user data returned")
	}
	return &resp.Data[0], nil
}
