package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTargetsProductionHosts(t *testing.T) {
	cfg := Default()
	if cfg.RESTHost != DefaultRESTHost {
		t.Fatalf("unexpected rest host %q", cfg.RESTHost)
	}
	if cfg.WSHost != DefaultWSHost {
		t.Fatalf("unexpected ws host %q", cfg.WSHost)
	}
	if cfg.Chain != 137 {
		t.Fatalf("expected Polygon default chain, got %d", cfg.Chain)
	}
	if cfg.Heartbeat.Interval != 0 {
		t.Fatalf("heartbeats should be off by default, got %s", cfg.Heartbeat.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default settings should validate: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("POLYCLOB_CHAIN", "80002")
	t.Setenv("POLYCLOB_REST_HOST", "http://localhost:8080")
	t.Setenv("POLYCLOB_USE_SERVER_TIME", "true")
	t.Setenv("POLYCLOB_HTTP_TIMEOUT", "3s")
	t.Setenv("POLYCLOB_HEARTBEAT_INTERVAL", "10s")

	cfg := FromEnv()
	if cfg.Chain != 80002 {
		t.Fatalf("expected chain override, got %d", cfg.Chain)
	}
	if cfg.RESTHost != "http://localhost:8080" {
		t.Fatalf("expected rest host override, got %q", cfg.RESTHost)
	}
	if !cfg.UseServerTime {
		t.Fatal("expected server time override")
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("expected 3s http timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.Heartbeat.Interval != 10*time.Second {
		t.Fatalf("expected 10s heartbeat interval, got %s", cfg.Heartbeat.Interval)
	}
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("POLYCLOB_CHAIN", "polygon")
	t.Setenv("POLYCLOB_HTTP_TIMEOUT", "soon")

	cfg := FromEnv()
	if cfg.Chain != 137 {
		t.Fatalf("malformed chain should keep default, got %d", cfg.Chain)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("malformed timeout should keep default, got %s", cfg.HTTPTimeout)
	}
}

func TestLoadFileLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "polyclob.yaml")
	body := []byte("chain: 80002\nuseServerTime: true\nws:\n  pingInterval: 2s\n  pongTimeout: 6s\n  initialBackoff: 500ms\n  maxBackoff: 30s\n  backoffMultiplier: 2\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if cfg.Chain != 80002 {
		t.Fatalf("expected chain from file, got %d", cfg.Chain)
	}
	if cfg.WS.PingInterval != 2*time.Second {
		t.Fatalf("expected ping interval from file, got %s", cfg.WS.PingInterval)
	}
	if cfg.RESTHost != DefaultRESTHost {
		t.Fatalf("unset fields should keep defaults, got %q", cfg.RESTHost)
	}
}

func TestLoadFileRejectsInvalidSchedule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "polyclob.yaml")
	body := []byte("ws:\n  initialBackoff: 10s\n  maxBackoff: 1s\n  backoffMultiplier: 2\n  pingInterval: 5s\n  pongTimeout: 15s\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write settings file: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error for max backoff below initial backoff")
	}
}

func TestLoadDotEnvMissingFileIsSilent(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("missing default .env should be silent: %v", err)
	}
	if err := LoadDotEnv("definitely-missing.env"); err == nil {
		t.Fatal("explicit missing path should error")
	}
}
