package twitch

import (
	"context"
	"strconv"
	"time"
)

// Pagination is the pass-through cursor Helix returns on list endpoints.
// The library performs no traversal; callers feed the cursor back through
// the After/Before parameters.
type Pagination struct {
	Cursor string `json:"cursor"`
}

// Stream is a live broadcast.
type Stream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	GameID       string    `json:"game_id"`
	GameName     string    `json:"game_name"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	Language     string    `json:"language"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Tags         []string  `json:"tags"`
	IsMature     bool      `json:"is_mature"`
}

// StreamsResponse is the envelope returned by the streams endpoint.
type StreamsResponse struct {
	Data       []Stream   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// StreamsParams filters GetStreams. All fields are optional; an empty
// params value lists the platform's top streams.
type StreamsParams struct {
	// Channels are user references, sniffed into user_id/user_login
	// parameters in the order given.
	Channels []string
	GameIDs  []string
	Language string
	Type     string // "live" or "all"
	First    int
	Before   string
	After    string
}

// GetStreams lists live streams matching the given filters.
func (c *Client) GetStreams(ctx context.Context, params StreamsParams) (*StreamsResponse, error) {
	q := newQuery().
		addUsersKeyed("user_id", "user_login", params.Channels).
		addList("game_id", params.GameIDs).
		add("language", params.Language).
		add("type", params.Type).
		add("before", params.Before).
		add("after", params.After)
	if params.First > 0 {
		q.add("first", strconv.Itoa(params.First))
	}

	var resp StreamsResponse
	if err := c.get(ctx, "streams", "/streams"+q.encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Follow is a follower relationship between two users.
type Follow struct {
	FromID     string    `json:"from_id"`
	FromLogin  string    `json:"from_login"`
	FromName   string    `json:"from_name"`
	ToID       string    `json:"to_id"`
	ToLogin    string    `json:"to_login"`
	ToName     string    `json:"to_name"`
	FollowedAt time.Time `json:"followed_at"`
}

// FollowsResponse is the envelope returned by the follows endpoint.
type FollowsResponse struct {
	Total      int        `json:"total"`
	Data       []Follow   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// FollowsParams filters GetFollows. At least one of FromID or ToID is
// required.
type FollowsParams struct {
	FromID string
	ToID   string
	First  int
	After  string
}

// GetFollows lists follow relationships: who FromID follows, who follows
// ToID, or (with both) whether FromID follows ToID.
func (c *Client) GetFollows(ctx context.Context, params FollowsParams) (*FollowsResponse, error) {
	if params.FromID == "" && params.ToID == "" {
		return nil, errAtLeastOneOf("from_id", "to_id")
	}

	q := newQuery().
		add("from_id", params.FromID).
		add("to_id", params.ToID).
		add("after", params.After)
	if params.First > 0 {
		q.add("first", strconv.Itoa(params.First))
	}

	var resp FollowsResponse
	if err := c.get(ctx, "follows", "/users/follows"+q.encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
