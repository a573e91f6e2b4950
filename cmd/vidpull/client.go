package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/vidpull/internal/events"
)

// Client wraps HTTP calls to the vidpull server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout; archives and event streams are long-lived.
	streamClient *http.Client
	registry     *events.Registry
}

// NewClient creates a new vidpull API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
		registry:     events.DefaultRegistry(),
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(ctx context.Context, hc *http.Client, path string, body any, result any) error {
	resp, err := c.postRaw(ctx, hc, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// postRaw sends a JSON body and returns the open response on success.
func (c *Client) postRaw(ctx context.Context, hc *http.Client, path string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		defer func() { _ = resp.Body.Close() }()
		return nil, serverError(resp)
	}
	return resp, nil
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return serverError(resp)
	}

	return nil
}

// serverError turns a non-success response into an error, preferring the
// server's JSON error message when there is one.
func serverError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var e struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("server error %d (%s): %s", resp.StatusCode, e.Code, e.Error)
	}
	return fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// API response types (mirror server types)

type StatusResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	ActiveDownloads int    `json:"active_downloads"`
	DefaultQuality  string `json:"default_quality"`
}

type ProgressResponse struct {
	JobID           string  `json:"job_id"`
	VideoID         string  `json:"video_id"`
	DisplayName     string  `json:"display_name,omitempty"`
	Status          string  `json:"status"`
	Percent         float64 `json:"percent_complete"`
	BytesDownloaded int64   `json:"bytes_downloaded"`
	TotalBytes      int64   `json:"total_bytes"`
	BytesPerSecond  float64 `json:"bytes_per_second"`
	Error           string  `json:"error,omitempty"`
}

type ListDownloadsResponse struct {
	Items []ProgressResponse `json:"items"`
	Total int                `json:"total"`
}

type DownloadResult struct {
	JobID    string `json:"job_id,omitempty"`
	VideoID  string `json:"video_id"`
	Status   string `json:"status"`
	Success  bool   `json:"success"`
	Path     string `json:"path,omitempty"`
	Bytes    int64  `json:"bytes"`
	CacheHit bool   `json:"cache_hit"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

type ArchiveRecord struct {
	ID         string    `json:"id"`
	Quality    string    `json:"quality"`
	Total      int       `json:"total"`
	Success    int       `json:"success"`
	Errors     int       `json:"errors"`
	Failed     []string  `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type ListArchivesResponse struct {
	Items []ArchiveRecord `json:"items"`
	Total int             `json:"total"`
	Limit int             `json:"limit"`
}

// ArchiveResult reports a finished archive download. Counts come from the
// response trailers and are -1 when the server did not send them.
type ArchiveResult struct {
	Bytes   int64 `json:"bytes"`
	Total   int   `json:"total"`
	Success int   `json:"success"`
	Errors  int   `json:"errors"`
}

// API methods

func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Downloads() (*ListDownloadsResponse, error) {
	var resp ListDownloadsResponse
	if err := c.get("/api/v1/downloads", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CancelDownload(jobID string) error {
	return c.delete("/api/v1/downloads/" + url.PathEscape(jobID))
}

// Fetch downloads one video on the server and waits for the result.
func (c *Client) Fetch(ctx context.Context, videoID, quality string) (*DownloadResult, error) {
	body := map[string]string{"video_id": videoID}
	if quality != "" {
		body["quality"] = quality
	}
	var resp DownloadResult
	if err := c.post(ctx, c.streamClient, "/api/v1/downloads", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Archives(limit int) (*ListArchivesResponse, error) {
	var resp ListArchivesResponse
	if err := c.get("/api/v1/archives?limit="+strconv.Itoa(limit), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Archive streams a zip of videoIDs into w.
func (c *Client) Archive(ctx context.Context, videoIDs []string, quality string, w io.Writer) (*ArchiveResult, error) {
	body := map[string]any{"video_ids": videoIDs}
	if quality != "" {
		body["quality"] = quality
	}
	resp, err := c.postRaw(ctx, c.streamClient, "/api/v1/archives", body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("archive incomplete after %d bytes, server aborted the stream: %w", n, err)
		}
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	// Trailers are only available after the body is fully read.
	return &ArchiveResult{
		Bytes:   n,
		Total:   trailerInt(resp.Trailer, "X-Archive-Total"),
		Success: trailerInt(resp.Trailer, "X-Archive-Success"),
		Errors:  trailerInt(resp.Trailer, "X-Archive-Errors"),
	}, nil
}

func trailerInt(h http.Header, key string) int {
	n, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return -1
	}
	return n
}

// Watch reads the server-sent event stream and calls fn for each decoded
// event until ctx ends or the server closes the stream. filter is an
// optional "job=<id>" or "archive=<id>" query.
func (c *Client) Watch(ctx context.Context, filter string, fn func(events.Event)) error {
	path := "/api/v1/events"
	if filter != "" {
		path += "?" + filter
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}

	err = c.readEvents(resp.Body, fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents parses a text/event-stream body. Events of unknown type are
// skipped so older clients keep working against newer servers.
func (c *Client) readEvents(r io.Reader, fn func(events.Event)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if eventType != "" && len(data) > 0 {
				if e, err := c.registry.Unmarshal(eventType, []byte(strings.Join(data, "\n"))); err == nil {
					fn(e)
				}
			}
			eventType, data = "", nil
		case strings.HasPrefix(line, ":"):
			// comment / keepalive
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading event stream: %w", err)
	}
	return nil
}
