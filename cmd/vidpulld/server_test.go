package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/vidpull/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(config.ServerConfig{LogJSON: true, LogLevel: "info"}, &buf)
	log.Debug("hidden")
	log.Info("shown", "video_id", "v1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v1", line["video_id"])
}

func TestOpenDB_RunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vidpull.db")
	db, err := openDB(path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"metadata_cache", "archives"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	// Migrations are idempotent across restarts.
	require.NoError(t, db.Close())
	db, err = openDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func testAppConfig(dir string) *config.Config {
	return &config.Config{
		Host: config.HostConfig{URL: "http://127.0.0.1:1", Timeout: time.Second},
		Download: config.DownloadConfig{
			CacheDir:         filepath.Join(dir, "cache"),
			MaxRetries:       0,
			BaseDelay:        time.Millisecond,
			MaxDelay:         time.Millisecond,
			AttemptTimeout:   time.Second,
			ProgressInterval: 500 * time.Millisecond,
			DefaultQuality:   "sd",
		},
		Pool: config.PoolConfig{ResolveConcurrency: 2, TransferConcurrency: 2},
	}
}

func TestBuildApp_ServesStatus(t *testing.T) {
	dir := t.TempDir()
	db, err := openDB(filepath.Join(dir, "vidpull.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := testAppConfig(dir)
	a, err := buildApp(cfg, db, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	defer a.bus.Close()

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "sd", status["default_quality"])

	// A single fetch against an unreachable host fails cleanly.
	sub := a.bus.SubscribeAll(16)
	w = httptest.NewRecorder()
	body := bytes.NewBufferString(`{"video_id":"v1"}`)
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/downloads", body))
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, false, res["success"])
	assert.Contains(t, res["error"], "resolve v1")

	// Resolution fails before a job exists, so nothing is published.
	assert.Empty(t, sub)
}

func TestBuildApp_OneComponentPerLogLine(t *testing.T) {
	dir := t.TempDir()
	db, err := openDB(filepath.Join(dir, "vidpull.db"))
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	a, err := buildApp(testAppConfig(dir), db, newLogger(config.ServerConfig{LogJSON: true}, &buf))
	require.NoError(t, err)
	defer a.bus.Close()

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"video_id":"v1"}`)
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/downloads", body))
	require.Equal(t, http.StatusOK, w.Code)

	var components []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		require.LessOrEqual(t, strings.Count(line, `"component":`), 1, line)
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if c, ok := rec["component"].(string); ok {
			components = append(components, c)
		}
	}
	assert.Contains(t, components, "download")
	assert.Contains(t, components, "http")
}
