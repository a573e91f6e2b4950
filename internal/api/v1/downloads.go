package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vmunix/vidpull/internal/download"
)

func (s *Server) createDownload(w http.ResponseWriter, r *http.Request) {
	var req createDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.VideoID) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "video_id is required")
		return
	}
	q, err := s.quality(req.Quality)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUALITY", err.Error())
		return
	}

	// A failed transfer is still a well-formed result; callers read success.
	res := s.deps.Downloads.Fetch(r.Context(), req.VideoID, q)
	writeJSON(w, http.StatusOK, resultToResponse(res))
}

func (s *Server) listDownloads(w http.ResponseWriter, r *http.Request) {
	items := s.deps.Downloads.Active()
	if items == nil {
		items = []download.Progress{}
	}
	writeJSON(w, http.StatusOK, listDownloadsResponse{Items: items, Total: len(items)})
}

func (s *Server) cancelDownload(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Downloads.Cancel(r.Context(), id); err != nil {
		if errors.Is(err, download.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Download not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "CANCEL_FAILED", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
