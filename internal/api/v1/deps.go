package v1

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vmunix/vidpull/internal/archive"
	"github.com/vmunix/vidpull/internal/download"
	"github.com/vmunix/vidpull/internal/events"
	"github.com/vmunix/vidpull/internal/resolve"
)

//go:generate mockgen -destination=mocks/mock_deps.go -package=mocks . Archiver,Downloader

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// Archiver builds a zip of many videos into w.
type Archiver interface {
	Build(ctx context.Context, req archive.Request, w io.Writer) (*archive.Summary, error)
}

// Downloader runs and tracks single transfers.
type Downloader interface {
	Fetch(ctx context.Context, videoID string, q resolve.Quality) download.Result
	Active() []download.Progress
	Cancel(ctx context.Context, jobID string) error
}

// HistoryLister lists finished archive runs.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]*archive.Record, error)
}

// EventSource is the subscription side of the progress bus.
type EventSource interface {
	SubscribeAll(bufferSize int) <-chan events.Event
	SubscribeEntity(entityType, entityID string, bufferSize int) <-chan events.Event
	Unsubscribe(ch <-chan events.Event)
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Archiver  Archiver
	Downloads Downloader

	// Optional dependencies (nil if not configured)
	History HistoryLister
	Bus     EventSource
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Archiver == nil {
		return fmt.Errorf("%w: archiver", ErrMissingDependency)
	}
	if d.Downloads == nil {
		return fmt.Errorf("%w: downloads", ErrMissingDependency)
	}
	return nil
}
