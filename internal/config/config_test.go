package config

import (
	"os"
	"path/filepath"
	"testing"
)

func boolPtr(v bool) *bool {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestMergeOverridesSetFieldsOnly(t *testing.T) {
	dst := Default()
	var src FileConfig
	src.RPC.Addr = "0.0.0.0:9000"
	src.RPC.RateLimitEnabled = boolPtr(false)
	src.Storage.DataDir = "/var/lib/prism"
	src.Log.Level = "debug"

	Merge(&dst, src)

	if dst.RPC.Addr != "0.0.0.0:9000" {
		t.Fatalf("expected addr override, got %s", dst.RPC.Addr)
	}
	if dst.RPC.RateLimitEnabled {
		t.Fatal("expected rate limiting disabled after merge")
	}
	if dst.RPC.RateLimitRPS != Default().RPC.RateLimitRPS {
		t.Fatalf("expected default rps preserved, got %v", dst.RPC.RateLimitRPS)
	}
	if dst.Storage.DataDir != "/var/lib/prism" {
		t.Fatalf("expected data dir override, got %s", dst.Storage.DataDir)
	}
	if dst.Log.Level != "debug" {
		t.Fatalf("expected log level debug, got %s", dst.Log.Level)
	}
	if dst.Log.Format != "json" {
		t.Fatalf("expected default log format preserved, got %s", dst.Log.Format)
	}
}

func TestMergeIgnoresNonPositiveLimits(t *testing.T) {
	dst := Default()
	var src FileConfig
	src.RPC.RateLimitRPS = floatPtr(-1)

	Merge(&dst, src)

	if dst.RPC.RateLimitRPS != Default().RPC.RateLimitRPS {
		t.Fatalf("expected default rps, got %v", dst.RPC.RateLimitRPS)
	}
}

func TestLoadFromPathReadsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routerd.yaml")
	body := []byte("rpc:\n  addr: 127.0.0.1:9100\nstorage:\n  dataDir: " + dir + "\nlog:\n  format: text\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PRISM_RPC_ADDR", "127.0.0.1:9200")
	t.Setenv("PRISM_LOG_LEVEL", "warn")

	cfg := LoadFromPath(path)

	if cfg.RPC.Addr != "127.0.0.1:9200" {
		t.Fatalf("env must win over file: got %s", cfg.RPC.Addr)
	}
	if cfg.Storage.DataDir != dir {
		t.Fatalf("expected data dir from file, got %s", cfg.Storage.DataDir)
	}
	if cfg.Log.Format != "text" {
		t.Fatalf("expected text format from file, got %s", cfg.Log.Format)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("expected warn level from env, got %s", cfg.Log.Level)
	}
}

func TestLoadFromPathMissingFileFallsBack(t *testing.T) {
	t.Setenv("PRISM_RPC_ADDR", "")
	t.Setenv("PRISM_DATA_DIR", "")

	cfg := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))

	if cfg.RPC.Addr != Default().RPC.Addr {
		t.Fatalf("expected default addr, got %s", cfg.RPC.Addr)
	}
	if !cfg.RPC.RateLimitEnabled {
		t.Fatal("expected rate limiting enabled by default")
	}
}

func TestEnvOverridesParseBools(t *testing.T) {
	cfg := Default()
	t.Setenv("PRISM_RPC_RATE_LIMIT_ENABLED", "false")
	t.Setenv("PRISM_RPC_RATE_LIMIT_RPS", "12.5")
	t.Setenv("PRISM_RPC_RATE_LIMIT_BURST", "25")

	ApplyEnvOverrides(&cfg)

	if cfg.RPC.RateLimitEnabled {
		t.Fatal("expected rate limiting disabled")
	}
	if cfg.RPC.RateLimitRPS != 12.5 {
		t.Fatalf("expected rps 12.5, got %v", cfg.RPC.RateLimitRPS)
	}
	if cfg.RPC.RateLimitBurst != 25 {
		t.Fatalf("expected burst 25, got %v", cfg.RPC.RateLimitBurst)
	}
}
