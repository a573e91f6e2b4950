// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vmunix/vidpull/internal/resolve"
)

// Config holds API server configuration.
type Config struct {
	Version        string
	DefaultQuality resolve.Quality
}

// Server is the v1 API server.
type Server struct {
	deps ServerDeps
	cfg  Config
	log  *slog.Logger
}

// New creates a v1 API server from explicit dependencies.
func New(deps ServerDeps, cfg Config, log *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if cfg.DefaultQuality == "" {
		cfg.DefaultQuality = resolve.QualityAuto
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{deps: deps, cfg: cfg, log: log}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Archives
	mux.HandleFunc("POST /api/v1/archives", s.createArchive)
	mux.HandleFunc("GET /api/v1/archives", s.requireHistory(s.listArchives))

	// Downloads
	mux.HandleFunc("POST /api/v1/downloads", s.createDownload)
	mux.HandleFunc("GET /api/v1/downloads", s.listDownloads)
	mux.HandleFunc("DELETE /api/v1/downloads/{id}", s.cancelDownload)

	// Progress stream
	mux.HandleFunc("GET /api/v1/events", s.requireBus(s.streamEvents))

	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// quality parses an optional quality name, falling back to the configured default.
func (s *Server) quality(name string) (resolve.Quality, error) {
	if name == "" {
		return s.cfg.DefaultQuality, nil
	}
	return resolve.ParseQuality(name)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:          "ok",
		Version:         s.cfg.Version,
		ActiveDownloads: len(s.deps.Downloads.Active()),
		DefaultQuality:  s.cfg.DefaultQuality.String(),
	})
}
