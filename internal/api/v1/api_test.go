// internal/api/v1/api_test.go
package v1

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	_ "modernc.org/sqlite"

	"github.com/vmunix/vidpull/internal/api/v1/mocks"
	"github.com/vmunix/vidpull/internal/archive"
	"github.com/vmunix/vidpull/internal/download"
	"github.com/vmunix/vidpull/internal/events"
	"github.com/vmunix/vidpull/internal/migrations"
	"github.com/vmunix/vidpull/internal/resolve"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "open db")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, m := range migrations.All {
		_, err = db.Exec(m)
		require.NoError(t, err, "apply schema")
	}
	return db
}

type testServer struct {
	srv       *Server
	mux       *http.ServeMux
	archiver  *mocks.MockArchiver
	downloads *mocks.MockDownloader
}

func newTestServer(t *testing.T, deps ServerDeps, cfg Config) *testServer {
	t.Helper()
	ctrl := gomock.NewController(t)
	ts := &testServer{
		archiver:  mocks.NewMockArchiver(ctrl),
		downloads: mocks.NewMockDownloader(ctrl),
	}
	deps.Archiver = ts.archiver
	deps.Downloads = ts.downloads

	srv, err := New(deps, cfg, testLogger())
	require.NoError(t, err)
	ts.srv = srv
	ts.mux = http.NewServeMux()
	srv.RegisterRoutes(ts.mux)
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	return w
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(ServerDeps{}, Config{}, nil)
	require.ErrorIs(t, err, ErrMissingDependency)
	assert.Contains(t, err.Error(), "archiver")

	ctrl := gomock.NewController(t)
	_, err = New(ServerDeps{Archiver: mocks.NewMockArchiver(ctrl)}, Config{}, nil)
	require.ErrorIs(t, err, ErrMissingDependency)
	assert.Contains(t, err.Error(), "downloads")
}

func TestGetStatus(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{Version: "1.2.3", DefaultQuality: resolve.QualityHD})
	ts.downloads.EXPECT().Active().Return([]download.Progress{{JobID: "a"}, {JobID: "b"}})

	w := ts.do(http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, 2, resp.ActiveDownloads)
	assert.Equal(t, "hd", resp.DefaultQuality)
}

func TestCreateArchive_StreamsZipWithTrailers(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})
	ts.archiver.EXPECT().
		Build(gomock.Any(), archive.Request{VideoIDs: []string{"a", "b"}, Quality: resolve.QualitySD}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ archive.Request, w io.Writer) (*archive.Summary, error) {
			_, err := w.Write([]byte("zip-bytes"))
			require.NoError(t, err)
			return &archive.Summary{Total: 2, Success: 1, Errors: 1}, nil
		})

	server := httptest.NewServer(ts.mux)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/archives", "application/json",
		strings.NewReader(`{"video_ids":["a","b"],"quality":"SD"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(body))

	// Trailers are only populated once the body has been read.
	assert.Equal(t, "2", resp.Trailer.Get(TrailerTotal))
	assert.Equal(t, "1", resp.Trailer.Get(TrailerSuccess))
	assert.Equal(t, "1", resp.Trailer.Get(TrailerErrors))
}

func TestCreateArchive_UsesDefaultQuality(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{DefaultQuality: resolve.QualityHD})
	ts.archiver.EXPECT().
		Build(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req archive.Request, _ io.Writer) (*archive.Summary, error) {
			assert.Equal(t, resolve.QualityHD, req.Quality)
			return &archive.Summary{}, nil
		})

	w := ts.do(http.MethodPost, "/api/v1/archives", `{"video_ids":["a"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateArchive_WriterFailureAbortsStream(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})
	ts.archiver.EXPECT().
		Build(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ archive.Request, w io.Writer) (*archive.Summary, error) {
			// Enough bytes that the status line and a few chunks are on the wire.
			_, err := w.Write(bytes.Repeat([]byte("z"), 64*1024))
			require.NoError(t, err)
			return &archive.Summary{Total: 1, Errors: 1}, fmt.Errorf("%w: source read failed", archive.ErrArchive)
		})

	server := httptest.NewServer(ts.mux)
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/archives", "application/json", strings.NewReader(`{"video_ids":["a"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = io.ReadAll(resp.Body)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF, "a failed archive must not look complete")
	assert.Empty(t, resp.Trailer.Get(TrailerTotal))
	assert.Empty(t, resp.Trailer.Get(TrailerErrors))
}

func TestCreateArchive_BadRequests(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"video_ids":`, "INVALID_REQUEST"},
		{"unknown quality", `{"video_ids":["a"],"quality":"ultra"}`, "INVALID_QUALITY"},
		{"blank id", `{"video_ids":["a","  "]}`, "INVALID_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/api/v1/archives", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestCreateDownload(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})
	ts.downloads.EXPECT().
		Fetch(gomock.Any(), "v1", resolve.QualitySource).
		Return(download.Result{
			JobID:    "job-1",
			VideoID:  "v1",
			Status:   download.StatusCompleted,
			Success:  true,
			Path:     "/cache/v1_source.mp4",
			Bytes:    1024,
			Attempts: 1,
		})

	w := ts.do(http.MethodPost, "/api/v1/downloads", `{"video_id":"v1","quality":"source"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp downloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "/cache/v1_source.mp4", resp.Path)
	assert.Equal(t, int64(1024), resp.Bytes)
	assert.Empty(t, resp.Error)
}

func TestCreateDownload_FailureIsReported(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})
	ts.downloads.EXPECT().
		Fetch(gomock.Any(), "v1", resolve.QualityAuto).
		Return(download.Result{
			VideoID: "v1",
			Status:  download.StatusError,
			Err:     fmt.Errorf("resolve v1: %w", resolve.ErrLinkUnavailable),
		})

	w := ts.do(http.MethodPost, "/api/v1/downloads", `{"video_id":"v1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp downloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "resolve v1")
}

func TestCreateDownload_MissingID(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})

	w := ts.do(http.MethodPost, "/api/v1/downloads", `{"quality":"hd"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListDownloads(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})
	ts.downloads.EXPECT().Active().Return([]download.Progress{
		{JobID: "j1", VideoID: "v1", Status: download.StatusDownloading, Percent: 42.5, BytesDownloaded: 425, TotalBytes: 1000},
	})

	w := ts.do(http.MethodGet, "/api/v1/downloads", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp listDownloadsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "v1", resp.Items[0].VideoID)
	assert.InDelta(t, 42.5, resp.Items[0].Percent, 0.001)
}

func TestListDownloads_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})
	ts.downloads.EXPECT().Active().Return(nil)

	w := ts.do(http.MethodGet, "/api/v1/downloads", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestCancelDownload(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})
	ts.downloads.EXPECT().Cancel(gomock.Any(), "job-1").Return(nil)
	ts.downloads.EXPECT().Cancel(gomock.Any(), "job-2").Return(fmt.Errorf("cancel job-2: %w", download.ErrJobNotFound))

	w := ts.do(http.MethodDelete, "/api/v1/downloads/job-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodDelete, "/api/v1/downloads/job-2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListArchives(t *testing.T) {
	db := setupTestDB(t)
	history := archive.NewHistoryStore(db)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, history.Record(context.Background(), &archive.Summary{
		ID:         "arch-1",
		Quality:    "auto",
		Total:      2,
		Success:    1,
		Errors:     1,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Outcomes: []archive.Outcome{
			{VideoID: "a", Success: true, Entry: "a.mp4"},
			{VideoID: "b", Error: "not found", Entry: "ERROR_b.txt"},
		},
	}, nil))

	ts := newTestServer(t, ServerDeps{History: history}, Config{})

	w := ts.do(http.MethodGet, "/api/v1/archives?limit=10", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp listArchivesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "arch-1", resp.Items[0].ID)
	assert.Equal(t, []string{"b"}, resp.Items[0].Failed)
	assert.Equal(t, 10, resp.Limit)
}

func TestListArchives_InvalidLimit(t *testing.T) {
	ts := newTestServer(t, ServerDeps{History: archive.NewHistoryStore(setupTestDB(t))}, Config{})

	w := ts.do(http.MethodGet, "/api/v1/archives?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListArchives_NotConfigured(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})

	w := ts.do(http.MethodGet, "/api/v1/archives", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStreamEvents_NotConfigured(t *testing.T) {
	ts := newTestServer(t, ServerDeps{}, Config{})

	w := ts.do(http.MethodGet, "/api/v1/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStreamEvents_FiltersByJob(t *testing.T) {
	bus := events.NewBus(testLogger())
	defer bus.Close()
	ts := newTestServer(t, ServerDeps{Bus: bus}, Config{})

	server := httptest.NewServer(ts.mux)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/events?job=j1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Headers arrive after the handler subscribed, so nothing below is lost.
	publish := func(jobID string, pct float64) {
		require.NoError(t, bus.Publish(context.Background(), &events.DownloadProgressed{
			BaseEvent: events.NewBaseEvent(events.EventDownloadProgressed, events.EntityJob, jobID),
			JobID:     jobID,
			VideoID:   "v-" + jobID,
			Status:    "downloading",
			Percent:   pct,
		}))
	}
	publish("j2", 10)
	publish("j1", 55)

	eventType, data := readSSE(t, bufio.NewReader(resp.Body))
	assert.Equal(t, events.EventDownloadProgressed, eventType)

	e, err := events.DefaultRegistry().Unmarshal(eventType, data)
	require.NoError(t, err)
	progress, ok := e.(*events.DownloadProgressed)
	require.True(t, ok)
	assert.Equal(t, "j1", progress.JobID)
	assert.InDelta(t, 55.0, progress.Percent, 0.001)
}

// readSSE returns the next event's type and data, skipping comments.
func readSSE(t *testing.T, r *bufio.Reader) (string, []byte) {
	t.Helper()
	var eventType string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			return eventType, []byte(strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestLogRequests(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := LogRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), log)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/api/v1/status")
}

func TestLogRequests_Aborted(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := LogRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		panic(http.ErrAbortHandler)
	}), log)

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/archives", nil))
	})
	assert.Contains(t, buf.String(), "http request aborted")
	assert.Contains(t, buf.String(), "path=/api/v1/archives")
	assert.NotContains(t, buf.String(), `msg="http request"`)
}
