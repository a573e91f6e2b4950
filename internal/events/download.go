// internal/events/download.go
package events

// Entity types
const (
	EntityJob     = "job"
	EntityArchive = "archive"
)

// Event type constants
const (
	EventDownloadProgressed = "download.progressed"
	EventArchiveStarted     = "archive.started"
	EventArchiveCompleted   = "archive.completed"
)

// DownloadProgressed is emitted on every state or byte-count change of a job.
// Status is one of pending, downloading, completed, error, cancelled.
type DownloadProgressed struct {
	BaseEvent
	JobID           string  `json:"job_id"`
	VideoID         string  `json:"video_id"`
	DisplayName     string  `json:"display_name,omitempty"`
	Status          string  `json:"status"`
	Percent         float64 `json:"percent_complete"` // 0.0 - 100.0
	BytesDownloaded int64   `json:"bytes_downloaded"`
	TotalBytes      int64   `json:"total_bytes"`
	BytesPerSecond  float64 `json:"bytes_per_second"`
	Error           string  `json:"error,omitempty"`
}

// ArchiveStarted is emitted when a bulk archive run begins.
type ArchiveStarted struct {
	BaseEvent
	ArchiveID string `json:"archive_id"`
	Total     int    `json:"total"`
	Quality   string `json:"quality"`
}

// ArchiveCompleted is emitted once the archive summary has been written.
type ArchiveCompleted struct {
	BaseEvent
	ArchiveID string `json:"archive_id"`
	Total     int    `json:"total"`
	Success   int    `json:"success"`
	Errors    int    `json:"errors"`
}
