// Package service implements the HTTP client shims for the briefing
// server's script, speech, and interlude endpoints.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// maxResponseSize bounds how much of a service response is read: generous
// enough for several minutes of base64 audio.
const maxResponseSize = 64 << 20

// Client carries the connection settings shared by all service shims.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a client for the briefing server at baseURL. The
// timeout applies to every request as a hard deadline.
func NewClient(baseURL, token string, timeout time.Duration, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// errorEnvelope is the service's standard failure body.
type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Completed bool   `json:"completed"`
}

// postJSON sends body to path and returns the raw response payload along
// with the HTTP status. A nil body produces a bodiless POST. Transport
// errors are returned as-is; status interpretation is left to the caller
// because some failure envelopes (SECTION_COMPLETE) arrive with 200.
func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// getRaw fetches rawURL (absolute, or relative to the base URL) and returns
// the body plus its Content-Type.
func (c *Client) getRaw(ctx context.Context, rawURL string) ([]byte, string, error) {
	target := rawURL
	if u, err := url.Parse(rawURL); err == nil && !u.IsAbs() {
		target = c.baseURL + "/" + strings.TrimLeft(rawURL, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, target)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// serviceError turns a failure envelope into an error, preferring the
// machine-readable code.
func serviceError(status int, env errorEnvelope) error {
	switch {
	case env.Error != "" && env.Message != "":
		return fmt.Errorf("service error %s: %s", env.Error, env.Message)
	case env.Error != "":
		return fmt.Errorf("service error %s", env.Error)
	case env.Message != "":
		return fmt.Errorf("service error: %s", env.Message)
	default:
		return fmt.Errorf("service returned status %d", status)
	}
}
