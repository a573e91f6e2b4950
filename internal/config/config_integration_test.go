package config

import (
	"path/filepath"
	"testing"
)

func TestFullWorkflow(t *testing.T) {
	tmp := t.TempDir()

	// 1. Write default config
	cfgPath := filepath.Join(tmp, "vidpull", "config.toml")
	if err := WriteDefault(cfgPath, false); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	// 2. Set required env vars (t.Setenv auto-restores on cleanup)
	t.Setenv("VIDPULL_HOST_API_KEY", "test-host-key")
	t.Setenv("VIDPULL_HOST_URL", "")

	// 3. Load with validation; the default file must be valid as shipped
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// 4. Verify env substitution worked for the host section
	if cfg.Host.APIKey != "test-host-key" {
		t.Errorf("expected host api key substituted, got %q", cfg.Host.APIKey)
	}
	if cfg.Host.URL != "https://api.example.com/v1" {
		t.Errorf("expected default host url, got %q", cfg.Host.URL)
	}

	// 5. Verify defaults applied
	if cfg.Server.Port != 8585 {
		t.Errorf("expected default port 8585, got %d", cfg.Server.Port)
	}
	if cfg.Pool.TransferConcurrency != 3 {
		t.Errorf("expected transfer concurrency 3, got %d", cfg.Pool.TransferConcurrency)
	}
}

func TestFullWorkflow_RequiredKeyMissing(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteDefault(cfgPath, false); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	t.Setenv("VIDPULL_HOST_API_KEY", "")

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("expected error when api key is unset")
	}
	cerr, ok := err.(*ConfigError)
	if !ok {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if len(cerr.Missing) != 1 || cerr.Missing[0] != "VIDPULL_HOST_API_KEY: asset host API key is required" {
		t.Errorf("unexpected missing list %v", cerr.Missing)
	}
}
