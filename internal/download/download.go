// Package download transfers resolved links to local disk with resume,
// retry and live progress, and schedules jobs through a bounded pool.
package download

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/vmunix/vidpull/internal/resolve"
)

// Status tracks job state.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// Job is a unit of work: transfer one variant to one destination.
// Fields are read-only once the job is scheduled, except RetryCount
// which only the Pool writes.
type Job struct {
	ID              string
	VideoID         string
	DisplayName     string
	SourceURL       string
	DestinationPath string
	QualityLabel    string
	ExpectedSize    int64
	Priority        int
	RetryCount      int
}

// NewJob builds a job for a resolved link.
// The destination is unique per video id and quality under cacheDir.
func NewJob(link *resolve.Link, cacheDir string) *Job {
	return &Job{
		ID:              uuid.NewString(),
		VideoID:         link.VideoID,
		DisplayName:     link.Name,
		SourceURL:       link.URL,
		DestinationPath: DestinationPath(cacheDir, link.VideoID, link.Quality),
		QualityLabel:    link.Quality,
		ExpectedSize:    link.Size,
	}
}

// DestinationPath returns <cacheDir>/<sanitized id>_<quality>.mp4.
func DestinationPath(cacheDir, videoID, quality string) string {
	name := fmt.Sprintf("%s_%s.mp4", SanitizeFilename(videoID), SanitizeFilename(strings.ToLower(quality)))
	return filepath.Join(cacheDir, name)
}

// Progress is the live view of one active job.
type Progress struct {
	JobID           string  `json:"job_id"`
	VideoID         string  `json:"video_id"`
	DisplayName     string  `json:"display_name,omitempty"`
	Status          Status  `json:"status"`
	Percent         float64 `json:"percent_complete"`
	BytesDownloaded int64   `json:"bytes_downloaded"`
	TotalBytes      int64   `json:"total_bytes"`
	BytesPerSecond  float64 `json:"bytes_per_second"`
	Error           string  `json:"error,omitempty"`
}

// Result is the terminal outcome of a job.
type Result struct {
	JobID    string
	VideoID  string
	Status   Status
	Success  bool
	Path     string
	Bytes    int64
	CacheHit bool
	Attempts int
	Err      error
}
