package twitch

import (
	"context"
	"fmt"
	"strconv"
)

// Clip is the reference returned when a clip is created. The clip is
// processed asynchronously; EditURL is valid for 24 hours.
type Clip struct {
	ID      string `json:"id"`
	EditURL string `json:"edit_url"`
}

// CreateClipResponse is the envelope returned by the clips endpoint.
type CreateClipResponse struct {
	Data []Clip `json:"data"`
}

// CreateClip captures a clip from the broadcaster's live stream. Requires
// a user token with the clips:edit scope. hasDelay shifts the capture
// window back by the stream delay.
func (c *Client) CreateClip(ctx context.Context, broadcasterID string, hasDelay bool) (*CreateClipResponse, error) {
	if c.AppMode() {
		return nil, ErrUserTokenRequired
	}
	if broadcasterID == "" {
		return nil, fmt.Errorf("%w: broadcaster_id is required", ErrInvalidRequest)
	}

	q := newQuery().
		add("broadcaster_id", broadcasterID).
		add("has_delay", strconv.FormatBool(hasDelay))

	var resp CreateClipResponse
	if err := c.post(ctx, "clips", "/clips"+q.encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
