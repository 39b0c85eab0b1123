package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IPFS.APIAddress != "127.0.0.1:5001" || cfg.Protocol.Version != 2 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadDecodesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[ipfs]\napi_address = \"10.0.0.5:5001\"\ntimeout_seconds = 5\n\n[protocol]\nversion = 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IPFS.APIAddress != "10.0.0.5:5001" || cfg.IPFS.TimeoutSeconds != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[ipfs]\napi_address = \"10.0.0.5:5001\"\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	t.Setenv("NIP_IPFS_API", "192.168.1.1:5001")
	t.Setenv("NIP_PROTOCOL_VERSION", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IPFS.APIAddress != "192.168.1.1:5001" {
		t.Fatalf("expected env override to win, got %q", cfg.IPFS.APIAddress)
	}
	if cfg.Protocol.Version != 3 {
		t.Fatalf("expected protocol version override, got %d", cfg.Protocol.Version)
	}
}
