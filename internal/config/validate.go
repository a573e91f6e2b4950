// internal/config/validate.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/vmunix/vidpull/internal/download"
	"github.com/vmunix/vidpull/internal/resolve"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

// minProgressInterval is the shortest allowed gap between progress reports.
const minProgressInterval = 500 * time.Millisecond

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	// Server validation
	if c.Server.Port != 0 && (c.Server.Port < 1 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	// Asset host validation
	if c.Host.URL == "" {
		errs = append(errs, "host.url: required")
	} else if u, err := url.Parse(c.Host.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("host.url: must be an http(s) URL, got %q", c.Host.URL))
	}
	if c.Host.Timeout < 0 {
		errs = append(errs, "host.timeout: must not be negative")
	}

	// Download validation
	d := c.Download
	if d.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("download.max_retries: must not be negative, got %d", d.MaxRetries))
	}
	if d.BaseDelay < 0 {
		errs = append(errs, "download.base_delay: must not be negative")
	}
	if d.MaxDelay < d.BaseDelay {
		errs = append(errs, fmt.Sprintf("download.max_delay: must be at least base_delay (%s), got %s", d.BaseDelay, d.MaxDelay))
	}
	if d.AttemptTimeout < 0 {
		errs = append(errs, "download.attempt_timeout: must not be negative")
	}
	if d.ProgressInterval != 0 && d.ProgressInterval < minProgressInterval {
		errs = append(errs, fmt.Sprintf("download.progress_interval: must be at least %s, got %s", minProgressInterval, d.ProgressInterval))
	}
	if _, err := resolve.ParseQuality(d.DefaultQuality); err != nil {
		errs = append(errs, fmt.Sprintf("download.default_quality: %v", err))
	}

	// Pool validation
	if c.Pool.ResolveConcurrency < 0 {
		errs = append(errs, fmt.Sprintf("pool.resolve_concurrency: must not be negative, got %d", c.Pool.ResolveConcurrency))
	}
	if c.Pool.TransferConcurrency < 0 || c.Pool.TransferConcurrency > download.MaxConcurrency {
		errs = append(errs, fmt.Sprintf("pool.transfer_concurrency: must be between 1 and %d, got %d", download.MaxConcurrency, c.Pool.TransferConcurrency))
	}
	if c.Pool.BatchDelay < 0 {
		errs = append(errs, "pool.batch_delay: must not be negative")
	}

	// Cache validation
	if c.Cache.VariantsTTL < 0 {
		errs = append(errs, "cache.variants_ttl: must not be negative")
	}
	if c.Cache.PruneInterval < 0 {
		errs = append(errs, "cache.prune_interval: must not be negative")
	}

	return errs
}
