package twitch

import (
	"context"
	"strconv"
	"time"
)

// BitsLeaderboardEntry is one row of the bits leaderboard.
type BitsLeaderboardEntry struct {
	UserID    string `json:"user_id"`
	UserLogin string `json:"user_login"`
	UserName  string `json:"user_name"`
	Rank      int    `json:"rank"`
	Score     int    `json:"score"`
}

// BitsLeaderboardResponse is the envelope returned by the bits leaderboard
// endpoint.
type BitsLeaderboardResponse struct {
	Data      []BitsLeaderboardEntry `json:"data"`
	DateRange struct {
		StartedAt time.Time `json:"started_at"`
		EndedAt   time.Time `json:"ended_at"`
	} `json:"date_range"`
	Total int `json:"total"`
}

// BitsLeaderboardParams filters GetBitsLeaderboard. All fields are
// optional. Requires a user token with the bits:read scope.
type BitsLeaderboardParams struct {
	Count  int
	Period string // "day", "week", "month", "year" or "all"
	// StartedAt anchors the period; ignored when Period is "all".
	StartedAt time.Time
	UserID    string
}

// GetBitsLeaderboard returns the broadcaster's bits leaderboard.
func (c *Client) GetBitsLeaderboard(ctx context.Context, params BitsLeaderboardParams) (*BitsLeaderboardResponse, error) {
	if c.AppMode() {
		return nil, ErrUserTokenRequired
	}

	q := newQuery().
		add("period", params.Period).
		add("user_id", params.UserID)
	if params.Count > 0 {
		q.add("count", strconv.Itoa(params.Count))
	}
	if !params.StartedAt.IsZero() {
		q.add("started_at", params.StartedAt.Format(time.RFC3339))
	}

	var resp BitsLeaderboardResponse
	if err := c.get(ctx, "bits_leaderboard", "/bits/leaderboard"+q.encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
