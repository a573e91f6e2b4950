// Package resolve turns video ids into concrete download links.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/vidpull/internal/host"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of parallel lookups used by ResolveAll.
const DefaultConcurrency = 5

// Link is a resolved, downloadable rendition of a video.
type Link struct {
	VideoID string
	Name    string // display name reported by the host
	Quality string // label of the selected variant
	Size    int64  // expected bytes, 0 if unknown
	URL     string
}

// Resolution is the outcome of resolving one id.
type Resolution struct {
	VideoID string
	Link    *Link
	Err     error
}

// Resolver looks up variants on the asset host and picks one.
type Resolver struct {
	host host.API
	log  *slog.Logger
}

// NewResolver creates a resolver backed by the given host API.
func NewResolver(api host.API, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		host: api,
		log:  log,
	}
}

// Resolve returns the link for videoID at the requested quality.
func (r *Resolver) Resolve(ctx context.Context, videoID string, q Quality) (*Link, error) {
	start := time.Now()

	info, err := r.host.Variants(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", videoID, err)
	}

	v, ok := Select(info.Variants, q)
	if !ok {
		r.log.Warn("no variants", "video_id", videoID)
		return nil, fmt.Errorf("resolve %s: %w", videoID, ErrLinkUnavailable)
	}

	r.log.Debug("link resolved",
		"video_id", videoID,
		"quality", v.Quality,
		"size", v.Size,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Link{
		VideoID: videoID,
		Name:    info.Name,
		Quality: v.Quality,
		Size:    v.Size,
		URL:     v.URL,
	}, nil
}

// ResolveAll resolves ids with at most concurrency lookups in flight.
// The result has one entry per id in input order; failures are recorded
// per entry and never stop the others.
func (r *Resolver) ResolveAll(ctx context.Context, ids []string, q Quality, concurrency int) []Resolution {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Resolution, len(ids))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, id := range ids {
		results[i].VideoID = id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			link, err := r.Resolve(ctx, id, q)
			results[i].Link = link
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	return results
}
