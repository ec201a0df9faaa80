package narration

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"driveguide/pkg/model"
)

// NarratePath is the backend route RemoteClient posts to.
const NarratePath = "/api/narrate"

// Poster is the subset of the request client RemoteClient needs.
type Poster interface {
	Post(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error)
}

// Response is the backend's narration payload.
type Response struct {
	Narration string `json:"narration"`
	Error     string `json:"error,omitempty"`
}

// RemoteClient asks a separate narration backend for text. Unlike Service it
// can fail, leaving the decision to retry with the caller.
type RemoteClient struct {
	poster Poster
	url    string
}

// NewRemoteClient creates a client for the backend at baseURL.
func NewRemoteClient(p Poster, baseURL string) *RemoteClient {
	return &RemoteClient{
		poster: p,
		url:    strings.TrimRight(baseURL, "/") + NarratePath,
	}
}

// Narrate posts req to the backend and returns the narration text.
func (c *RemoteClient) Narrate(ctx context.Context, req *model.NarrationRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode narration request: %w", err)
	}

	data, err := c.poster.Post(ctx, c.url, body, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return "", fmt.Errorf("narration backend: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to decode narration response: %w", err)
	}
	text := strings.TrimSpace(resp.Narration)
	if text == "" {
		return "", ErrEmptyNarration
	}
	return text, nil
}
