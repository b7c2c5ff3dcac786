package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONConfigSuccess(t *testing.T) {
	path := writeTempConfig(t, `{"listen":"0.0.0.0:18000","connect":"127.0.0.1","port":[8081,8082],"snmpperiod":5}`)

	var cfg Config
	if err := parseJSONConfig(&cfg, path); err != nil {
		t.Fatalf("parseJSONConfig returned error: %v", err)
	}

	if cfg.Listen != "0.0.0.0:18000" || cfg.Connect != "127.0.0.1" {
		t.Fatalf("unexpected addresses: %+v", cfg)
	}
	if len(cfg.Ports) != 2 || cfg.Ports[0] != 8081 || cfg.Ports[1] != 8082 {
		t.Fatalf("unexpected ports: %+v", cfg.Ports)
	}
	if cfg.SnmpPeriod != 5 {
		t.Fatalf("unexpected snmp period: %+v", cfg)
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
