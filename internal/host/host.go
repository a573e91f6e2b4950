// Package host is a client for the asset host REST API.
package host

import (
	"context"
	"errors"
)

// Sentinel errors for the host package.
var (
	// ErrHostUnavailable is returned when the asset host cannot be reached.
	ErrHostUnavailable = errors.New("asset host unavailable")

	// ErrUnauthorized is returned when the host rejects the API key.
	ErrUnauthorized = errors.New("asset host rejected credentials")

	// ErrVideoNotFound is returned when the host does not know the video.
	ErrVideoNotFound = errors.New("video not found on asset host")
)

// Variant is one encoded rendition of a video.
type Variant struct {
	Quality string `json:"quality"` // "source", "hd", "sd", ...
	Size    int64  `json:"size"`    // bytes, 0 when the host omits it
	URL     string `json:"url"`
}

// VideoInfo is the host's answer to a variants lookup.
// Variants may be empty or absent.
type VideoInfo struct {
	Name     string    `json:"name"`
	Variants []Variant `json:"variants"`
}

// TextTrack describes a caption or subtitle track.
type TextTrack struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Language string `json:"srclang"`
	Label    string `json:"label"`
	URL      string `json:"src"`
}

// API is the subset of the asset host used by vidpull.
//
//go:generate mockgen -destination=mocks/mock_api.go -package=mocks . API
type API interface {
	// Variants lists the downloadable renditions of a video.
	Variants(ctx context.Context, videoID string) (*VideoInfo, error)
	// TextTracks lists caption tracks; consumed by caption export, not by downloads.
	TextTracks(ctx context.Context, videoID string) ([]TextTrack, error)
}
