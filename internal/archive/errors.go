package archive

import "errors"

// Sentinel errors for the archive package.
var (
	// ErrArchive is a failure of the archive writer itself. The container
	// cannot be trusted and the whole run is aborted.
	ErrArchive = errors.New("archive write failed")

	// ErrNotFound is returned when an archive record does not exist.
	ErrNotFound = errors.New("archive not found")
)
