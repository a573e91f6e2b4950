package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vmunix/vidpull/internal/events"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatBytes(n int64) string {
	if n < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(n))
}

func formatRate(bps float64) string {
	if bps <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bps)) + "/s"
}

// progressBar renders pct (0-100) as a fixed-width bar.
func progressBar(pct float64, width int) string {
	pct = max(0, min(100, pct))
	filled := int(pct / 100 * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func printDownloads(w io.Writer, d *ListDownloadsResponse) {
	if len(d.Items) == 0 {
		fmt.Fprintln(w, "No active downloads")
		return
	}

	fmt.Fprintf(w, "Active downloads (%d):\n\n", d.Total)
	fmt.Fprintf(w, "  %-36s  %-20s  %-11s  %-22s  %s\n", "JOB", "VIDEO", "STATUS", "PROGRESS", "RATE")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 108))
	for _, p := range d.Items {
		fmt.Fprintf(w, "  %-36s  %-20s  %-11s  %s %5.1f%%  %s\n",
			p.JobID, truncate(p.VideoID, 20), p.Status, progressBar(p.Percent, 14), p.Percent, formatRate(p.BytesPerSecond))
	}
}

func printArchives(w io.Writer, a *ListArchivesResponse) {
	if len(a.Items) == 0 {
		fmt.Fprintln(w, "No archives yet")
		return
	}

	fmt.Fprintf(w, "Recent archives (%d):\n\n", a.Total)
	fmt.Fprintf(w, "  %-36s  %-14s  %-7s  %5s  %5s  %5s\n", "ID", "WHEN", "QUALITY", "TOTAL", "OK", "ERR")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 84))
	for _, r := range a.Items {
		fmt.Fprintf(w, "  %-36s  %-14s  %-7s  %5d  %5d  %5d\n",
			r.ID, humanize.Time(r.FinishedAt), r.Quality, r.Total, r.Success, r.Errors)
		if r.Error != "" {
			fmt.Fprintf(w, "      archive failed: %s\n", r.Error)
		}
		if len(r.Failed) > 0 {
			fmt.Fprintf(w, "      failed: %s\n", strings.Join(r.Failed, ", "))
		}
	}
}

// formatEvent renders one bus event as a single line.
func formatEvent(e events.Event) string {
	ts := e.OccurredAt().Format("15:04:05")
	switch ev := e.(type) {
	case *events.DownloadProgressed:
		name := ev.VideoID
		if ev.DisplayName != "" {
			name = ev.DisplayName
		}
		line := fmt.Sprintf("%s  %-11s %-30s %s %5.1f%%  %s / %s  %s",
			ts, ev.Status, truncate(name, 30), progressBar(ev.Percent, 20), ev.Percent,
			formatBytes(ev.BytesDownloaded), formatBytes(ev.TotalBytes), formatRate(ev.BytesPerSecond))
		if ev.Error != "" {
			line += "  error: " + ev.Error
		}
		return line
	case *events.ArchiveStarted:
		return fmt.Sprintf("%s  archive %s started: %d videos at %s", ts, ev.ArchiveID, ev.Total, ev.Quality)
	case *events.ArchiveCompleted:
		return fmt.Sprintf("%s  archive %s done: %d ok, %d errors of %d", ts, ev.ArchiveID, ev.Success, ev.Errors, ev.Total)
	default:
		return fmt.Sprintf("%s  %s %s/%s", ts, e.EventType(), e.EntityType(), e.EntityID())
	}
}
