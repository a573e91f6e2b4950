// internal/api/v1/types.go
package v1

import (
	"github.com/vmunix/vidpull/internal/archive"
	"github.com/vmunix/vidpull/internal/download"
)

// createArchiveRequest is the body for POST /archives.
type createArchiveRequest struct {
	VideoIDs []string `json:"video_ids"`
	Quality  string   `json:"quality,omitempty"`
}

// createDownloadRequest is the body for POST /downloads.
type createDownloadRequest struct {
	VideoID string `json:"video_id"`
	Quality string `json:"quality,omitempty"`
}

// downloadResponse is the API representation of a finished single transfer.
type downloadResponse struct {
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

func resultToResponse(res download.Result) downloadResponse {
	resp := downloadResponse{
		JobID:    res.JobID,
		VideoID:  res.VideoID,
		Status:   string(res.Status),
		Success:  res.Success,
		Path:     res.Path,
		Bytes:    res.Bytes,
		CacheHit: res.CacheHit,
		Attempts: res.Attempts,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

// listDownloadsResponse is the response for GET /downloads.
type listDownloadsResponse struct {
	Items []download.Progress `json:"items"`
	Total int                 `json:"total"`
}

// listArchivesResponse is the response for GET /archives.
type listArchivesResponse struct {
	Items []*archive.Record `json:"items"`
	Total int               `json:"total"`
	Limit int               `json:"limit"`
}

// statusResponse is the response for GET /status.
type statusResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	ActiveDownloads int    `json:"active_downloads"`
	DefaultQuality  string `json:"default_quality"`
}
