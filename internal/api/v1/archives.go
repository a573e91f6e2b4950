package v1

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/vmunix/vidpull/internal/archive"
)

// Trailers sent after the zip body so callers can see failures without
// opening the archive.
const (
	TrailerTotal   = "X-Archive-Total"
	TrailerSuccess = "X-Archive-Success"
	TrailerErrors  = "X-Archive-Errors"
)

const maxHistoryLimit = 500

func (s *Server) createArchive(w http.ResponseWriter, r *http.Request) {
	var req createArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}
	for _, id := range req.VideoIDs {
		if strings.TrimSpace(id) == "" {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "video_ids must not contain empty ids")
			return
		}
	}
	q, err := s.quality(req.Quality)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUALITY", err.Error())
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", `attachment; filename="videos.zip"`)
	h.Set("Trailer", strings.Join([]string{TrailerTotal, TrailerSuccess, TrailerErrors}, ", "))
	w.WriteHeader(http.StatusOK)

	sum, err := s.deps.Archiver.Build(r.Context(), archive.Request{VideoIDs: req.VideoIDs, Quality: q}, w)
	if err != nil {
		// The status line is already sent. Cutting the connection before the
		// final chunk makes the client see a truncated body, not a valid zip.
		s.log.Error("archive stream failed", "error", err)
		panic(http.ErrAbortHandler)
	}
	if sum != nil {
		h.Set(TrailerTotal, strconv.Itoa(sum.Total))
		h.Set(TrailerSuccess, strconv.Itoa(sum.Success))
		h.Set(TrailerErrors, strconv.Itoa(sum.Errors))
	}
}

func (s *Server) listArchives(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit must be positive")
		return
	}
	limit = min(limit, maxHistoryLimit)

	records, err := s.deps.History.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	if records == nil {
		records = []*archive.Record{}
	}
	writeJSON(w, http.StatusOK, listArchivesResponse{Items: records, Total: len(records), Limit: limit})
}
