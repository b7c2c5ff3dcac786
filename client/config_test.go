package client

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONConfigSuccess(t *testing.T) {
	path := writeTempConfig(t, `{"bind":"0.0.0.0","tunnel":"127.0.0.1:18000","connection":["8080","18081:8081"],"retry":true,"retry_interval":5,"keep_connections":true}`)

	var cfg Config
	if err := parseJSONConfig(&cfg, path); err != nil {
		t.Fatalf("parseJSONConfig returned error: %v", err)
	}

	if cfg.Bind != "0.0.0.0" || cfg.Tunnel != "127.0.0.1:18000" {
		t.Fatalf("unexpected addresses: %+v", cfg)
	}
	if len(cfg.Connections) != 2 || cfg.Connections[0] != "8080" || cfg.Connections[1] != "18081:8081" {
		t.Fatalf("unexpected connections: %+v", cfg.Connections)
	}
	if !cfg.Retry || cfg.RetryInterval != 5 || !cfg.KeepConnections {
		t.Fatalf("unexpected retry fields: %+v", cfg)
	}
}

func TestParseJSONConfigMissingFile(t *testing.T) {
	var cfg Config
	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := parseJSONConfig(&cfg, missing); err == nil {
		t.Fatalf("parseJSONConfig expected error for missing file")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
