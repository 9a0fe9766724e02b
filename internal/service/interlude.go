package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/dltmdgh0611/ownbrief/internal/audio"
)

const interludePath = "/api/briefing/interlude"

// InterludeClient fetches the ambient interlude track. Failures here must
// never abort the main pipeline; callers fall back to the no-op interlude.
type InterludeClient struct {
	*Client
}

// NewInterludeClient wraps the shared client for the interlude endpoint.
func NewInterludeClient(c *Client) *InterludeClient {
	return &InterludeClient{Client: c}
}

type interludeResponse struct {
	Success  bool   `json:"success"`
	AudioURL string `json:"audioUrl"`
	FileName string `json:"fileName"`
	Message  string `json:"message"`
}

// Fetch resolves the interlude track and returns it decoded.
func (c *InterludeClient) Fetch(ctx context.Context) (*audio.Buffer, error) {
	data, status, err := c.postJSON(ctx, interludePath, nil)
	if err != nil {
		return nil, fmt.Errorf("interlude request failed: %w", err)
	}

	var resp interludeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("malformed interlude response: %w", err)
	}
	if !resp.Success || resp.AudioURL == "" {
		return nil, serviceError(status, errorEnvelope{Message: resp.Message})
	}

	payload, contentType, err := c.getRaw(ctx, resp.AudioURL)
	if err != nil {
		return nil, fmt.Errorf("interlude download failed: %w", err)
	}

	mimeType := contentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimeFromName(resp.FileName, resp.AudioURL)
	}

	buf, err := audio.Decode(payload, mimeType)
	if err != nil {
		return nil, fmt.Errorf("interlude decode failed: %w", err)
	}
	c.logger.Debug("interlude ready", "duration", buf.Duration)
	return buf, nil
}

func mimeFromName(names ...string) string {
	for _, n := range names {
		switch strings.ToLower(path.Ext(n)) {
		case ".mp3":
			return "audio/mpeg"
		case ".wav":
			return "audio/wav"
		}
	}
	return "audio/mpeg"
}
