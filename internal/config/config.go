// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Host     HostConfig     `toml:"host"`
	Download DownloadConfig `toml:"download"`
	Pool     PoolConfig     `toml:"pool"`
	Cache    CacheConfig    `toml:"cache"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	LogJSON  bool   `toml:"log_json"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// HostConfig points at the asset host REST API.
type HostConfig struct {
	URL     string        `toml:"url"`
	APIKey  string        `toml:"api_key"`
	Timeout time.Duration `toml:"timeout"`
}

// DownloadConfig tunes transfers and the on-disk cache.
type DownloadConfig struct {
	CacheDir         string        `toml:"cache_dir"`
	Resume           bool          `toml:"resume"`
	KeepFiles        bool          `toml:"keep_files"`
	MaxRetries       int           `toml:"max_retries"`
	BaseDelay        time.Duration `toml:"base_delay"`
	MaxDelay         time.Duration `toml:"max_delay"`
	AttemptTimeout   time.Duration `toml:"attempt_timeout"`
	ProgressInterval time.Duration `toml:"progress_interval"`
	DefaultQuality   string        `toml:"default_quality"`
}

// PoolConfig sets the two concurrency limits and the batch pacing.
type PoolConfig struct {
	ResolveConcurrency  int           `toml:"resolve_concurrency"`
	TransferConcurrency int           `toml:"transfer_concurrency"`
	BatchDelay          time.Duration `toml:"batch_delay"`
}

// CacheConfig controls the variant lookup cache.
type CacheConfig struct {
	VariantsTTL   time.Duration `toml:"variants_ttl"`
	PruneInterval time.Duration `toml:"prune_interval"`
}

// Load reads, substitutes, applies defaults and validates the configuration.
// Any problem is reported as a *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}

	cerr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cerr.HasErrors() {
		return nil, cerr
	}
	return cfg, nil
}

// LoadWithoutValidation reads the configuration and applies defaults but
// skips Validate. Unresolved environment variables are still an error.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}
	return cfg, nil
}

func load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults(md)

	return &cfg, missing, nil
}

// applyDefaults fills unset values. Settings where zero is meaningful are
// only defaulted when absent from the file.
func (c *Config) applyDefaults(md toml.MetaData) {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8585
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/vidpull.db"
	}
	if c.Host.Timeout == 0 {
		c.Host.Timeout = 30 * time.Second
	}

	d := &c.Download
	if d.CacheDir == "" {
		d.CacheDir = "./data/cache"
	}
	if !md.IsDefined("download", "resume") {
		d.Resume = true
	}
	if !md.IsDefined("download", "max_retries") {
		d.MaxRetries = 3
	}
	if d.BaseDelay == 0 {
		d.BaseDelay = time.Second
	}
	if d.MaxDelay == 0 {
		d.MaxDelay = 10 * time.Second
	}
	if d.AttemptTimeout == 0 {
		d.AttemptTimeout = 60 * time.Second
	}
	if d.ProgressInterval == 0 {
		d.ProgressInterval = 500 * time.Millisecond
	}
	if d.DefaultQuality == "" {
		d.DefaultQuality = "auto"
	}

	if c.Pool.ResolveConcurrency == 0 {
		c.Pool.ResolveConcurrency = 5
	}
	if c.Pool.TransferConcurrency == 0 {
		c.Pool.TransferConcurrency = 3
	}
	if !md.IsDefined("pool", "batch_delay") {
		c.Pool.BatchDelay = time.Second
	}

	if c.Cache.VariantsTTL == 0 {
		c.Cache.VariantsTTL = 15 * time.Minute
	}
	if !md.IsDefined("cache", "prune_interval") {
		c.Cache.PruneInterval = time.Hour
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces environment references and returns the names
// (or "NAME: message" for :? forms) of those that could not be resolved.
// Unresolved references are left unchanged.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if !ok || value == "" {
				return arg
			}
			return value
		case ":?":
			if !ok || value == "" {
				missing = append(missing, name+": "+strings.TrimSpace(arg))
				return match
			}
			return value
		}

		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	return out, missing
}
