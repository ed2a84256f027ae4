package twitch

import (
	"context"
	"fmt"
	"strconv"
)

// Subscription is a channel subscription as seen by the broadcaster.
type Subscription struct {
	BroadcasterID    string `json:"broadcaster_id"`
	BroadcasterLogin string `json:"broadcaster_login"`
	BroadcasterName  string `json:"broadcaster_name"`
	GifterID         string `json:"gifter_id"`
	GifterLogin      string `json:"gifter_login"`
	GifterName       string `json:"gifter_name"`
	IsGift           bool   `json:"is_gift"`
	PlanName         string `json:"plan_name"`
	Tier             string `json:"tier"`
	UserID           string `json:"user_id"`
	UserLogin        string `json:"user_login"`
	UserName         string `json:"user_name"`
}

// SubscriptionsResponse is the envelope returned by the subscriptions
// endpoint.
type SubscriptionsResponse struct {
	Data       []Subscription `json:"data"`
	Total      int            `json:"total"`
	Points     int            `json:"points"`
	Pagination Pagination     `json:"pagination"`
}

// SubscriptionsParams filters GetSubscriptions. BroadcasterID is required
// and needs a user token with the channel:read:subscriptions scope.
type SubscriptionsParams struct {
	BroadcasterID string
	// UserIDs narrows the result to specific subscribers.
	UserIDs []string
	First   int
	After   string
}

// GetSubscriptions lists the broadcaster's subscribers.
func (c *Client) GetSubscriptions(ctx context.Context, params SubscriptionsParams) (*SubscriptionsResponse, error) {
	if params.BroadcasterID == "" {
		return nil, fmt.Errorf("%w: broadcaster_id is required", ErrInvalidRequest)
	}

	q := newQuery().
		add("broadcaster_id", params.BroadcasterID).
		addList("user_id", params.UserIDs).
		add("after", params.After)
	if params.First > 0 {
		q.add("first", strconv.Itoa(params.First))
	}

	var resp SubscriptionsResponse
	if err := c.get(ctx, "subscriptions", "/subscriptions"+q.encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
