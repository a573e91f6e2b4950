package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/vidpull/internal/host"
)

// DefaultTTL is used when CachedHost is created with a zero TTL.
const DefaultTTL = 15 * time.Minute

// Cache key prefixes
const (
	keyPrefixVariants   = "host:variants:"
	keyPrefixTextTracks = "host:texttracks:"
)

// CachedHost wraps a host.API with a read-through cache.
type CachedHost struct {
	api   host.API
	cache *Cache
	ttl   time.Duration
	log   *slog.Logger
}

var _ host.API = (*CachedHost)(nil)

// NewCachedHost creates a caching host client.
func NewCachedHost(api host.API, cache *Cache, ttl time.Duration, log *slog.Logger) *CachedHost {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedHost{
		api:   api,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// Variants returns cached variants or asks the host.
// Empty variant lists are not cached; the host may still be encoding.
func (h *CachedHost) Variants(ctx context.Context, videoID string) (*host.VideoInfo, error) {
	key := keyPrefixVariants + videoID

	var info host.VideoInfo
	if h.lookup(ctx, key, &info) {
		h.log.Debug("cache hit for variants", "video_id", videoID, "variants", len(info.Variants))
		return &info, nil
	}

	fresh, err := h.api.Variants(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(fresh.Variants) > 0 {
		h.store(ctx, key, fresh)
	}
	return fresh, nil
}

// TextTracks returns cached text tracks or asks the host.
func (h *CachedHost) TextTracks(ctx context.Context, videoID string) ([]host.TextTrack, error) {
	key := keyPrefixTextTracks + videoID

	var tracks []host.TextTrack
	if h.lookup(ctx, key, &tracks) {
		return tracks, nil
	}

	fresh, err := h.api.TextTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}
	h.store(ctx, key, fresh)
	return fresh, nil
}

// Invalidate drops every cached entry for videoID.
func (h *CachedHost) Invalidate(ctx context.Context, videoID string) error {
	if err := h.cache.Delete(ctx, keyPrefixVariants+videoID); err != nil {
		return fmt.Errorf("invalidate %s: %w", videoID, err)
	}
	if err := h.cache.Delete(ctx, keyPrefixTextTracks+videoID); err != nil {
		return fmt.Errorf("invalidate %s: %w", videoID, err)
	}
	return nil
}

func (h *CachedHost) lookup(ctx context.Context, key string, v any) bool {
	data, ok := h.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		// Treat undecodable entries as a miss
		h.log.Warn("failed to unmarshal cached entry", "key", key, "error", err)
		return false
	}
	return true
}

func (h *CachedHost) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("failed to marshal entry for cache", "key", key, "error", err)
		return
	}
	if err := h.cache.Set(ctx, key, data, h.ttl); err != nil {
		h.log.Warn("failed to cache entry", "key", key, "error", err)
	}
}
