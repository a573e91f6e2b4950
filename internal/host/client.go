package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the asset host over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a new asset host client.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		log:     log,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Variants fetches the downloadable renditions of a video.
func (c *Client) Variants(ctx context.Context, videoID string) (*VideoInfo, error) {
	var info VideoInfo
	if err := c.doRequest(ctx, "/videos/"+url.PathEscape(videoID)+"/variants", &info); err != nil {
		return nil, fmt.Errorf("variants %s: %w", videoID, err)
	}
	return &info, nil
}

// TextTracks fetches the caption tracks of a video.
func (c *Client) TextTracks(ctx context.Context, videoID string) ([]TextTrack, error) {
	var resp struct {
		Tracks []TextTrack `json:"text_tracks"`
	}
	if err := c.doRequest(ctx, "/videos/"+url.PathEscape(videoID)+"/texttracks", &resp); err != nil {
		return nil, fmt.Errorf("text tracks %s: %w", videoID, err)
	}
	return resp.Tracks, nil
}

// doRequest performs a GET against the host API and decodes the JSON body.
func (c *Client) doRequest(ctx context.Context, path string, result any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrVideoNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrHostUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		c.log.Debug("api unexpected status", "path", path, "status", resp.StatusCode)
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	c.log.Debug("api request complete", "path", path, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
