package resolve

import "errors"

// Sentinel errors for the resolve package.
var (
	// ErrLinkUnavailable is returned when the host reports no variants for a video.
	// It is a per-job failure and must not be retried.
	ErrLinkUnavailable = errors.New("no download link available")

	// ErrUnknownQuality is returned by ParseQuality for unrecognised names.
	ErrUnknownQuality = errors.New("unknown quality")
)
