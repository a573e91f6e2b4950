package archive

import (
	"fmt"
	"strings"
	"time"
)

// SummaryName is the name of the manifest entry every archive ends with.
const SummaryName = "download_summary.txt"

// Outcome is the terminal result of one requested video.
type Outcome struct {
	VideoID string `json:"video_id"`
	Entry   string `json:"entry"` // archive entry holding content or the error text
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Summary tallies a bulk archive run.
type Summary struct {
	ID         string    `json:"id"`
	Quality    string    `json:"quality"`
	Total      int       `json:"total"`
	Success    int       `json:"success"`
	Errors     int       `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"outcomes"`
}

// FailedIDs returns the ids of every failed video in request order.
func (s *Summary) FailedIDs() []string {
	var ids []string
	for _, o := range s.Outcomes {
		if !o.Success {
			ids = append(ids, o.VideoID)
		}
	}
	return ids
}

// Text renders the manifest written to download_summary.txt.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Archive: %s\n", s.ID)
	fmt.Fprintf(&b, "Generated: %s\n", s.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Quality: %s\n", s.Quality)
	fmt.Fprintf(&b, "Total: %d\n", s.Total)
	fmt.Fprintf(&b, "Success: %d\n", s.Success)
	fmt.Fprintf(&b, "Errors: %d\n", s.Errors)
	if len(s.Outcomes) > 0 {
		b.WriteString("\n")
	}
	for _, o := range s.Outcomes {
		if o.Success {
			fmt.Fprintf(&b, "OK     %s -> %s\n", o.VideoID, o.Entry)
		} else {
			fmt.Fprintf(&b, "ERROR  %s: %s\n", o.VideoID, o.Error)
		}
	}
	return b.String()
}
