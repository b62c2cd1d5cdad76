package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oarkflow/script"
)

func TestLoadFromStringYAML(t *testing.T) {
	cfg, err := LoadFromString(`
runtime:
  max_loops: 50
  continue_on_errors: true
server:
  address: ":9090"
  request_timeout: 5s
storage:
  path: /tmp/scripts.db
imports:
  - demo.*
`, "yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Runtime.MaxLoops != 50 || !cfg.Runtime.ContinueOnErrors {
		t.Fatalf("unexpected runtime config %+v", cfg.Runtime)
	}
	if cfg.Server.Address != ":9090" || cfg.Server.Timeout() != 5*time.Second {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Storage.Path != "/tmp/scripts.db" || len(cfg.Imports) != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadFromStringJSONKeepsDefaults(t *testing.T) {
	cfg, err := LoadFromString(`{"runtime": {"max_call_depth": 64}}`, "json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != DefaultAddress {
		t.Fatalf("expected default address, got %q", cfg.Server.Address)
	}
	if cfg.Storage.Path != DefaultStoragePath {
		t.Fatalf("expected default storage path, got %q", cfg.Storage.Path)
	}
	rc := cfg.RuntimeSettings()
	if rc.MaxCallDepth != 64 || rc.MaxLoops != script.DefaultRuntimeConfig().MaxLoops {
		t.Fatalf("unexpected runtime settings %+v", rc)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	if _, err := LoadFromString("x", "toml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if _, err := LoadFromString(`{"server": {"request_timeout": "soon"}}`, "json"); err == nil {
		t.Fatalf("expected invalid duration to fail")
	}
	if _, err := LoadFromString(`{"runtime": {"max_loops": -1}}`, "json"); err == nil {
		t.Fatalf("expected negative loop cap to fail")
	}
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yml")
	if err := os.WriteFile(path, []byte("history:\n  transcript: runs.json\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.History.Transcript != "runs.json" {
		t.Fatalf("unexpected transcript %q", cfg.History.Transcript)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}

func TestApplyInstallsRuntimeConfig(t *testing.T) {
	prev := script.GetRuntimeConfig()
	t.Cleanup(func() { script.SetRuntimeConfig(prev) })

	cfg := Default()
	cfg.Runtime.MaxLoops = 7
	cfg.Runtime.LogExecution = true
	cfg.Apply()
	got := script.GetRuntimeConfig()
	if got.MaxLoops != 7 || !got.LogExecution {
		t.Fatalf("runtime config not applied: %+v", got)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", "config.yaml"))
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if cfg.Runtime.MaxLoops != 4096 || cfg.Server.Timeout() != 15*time.Second || cfg.History.Transcript == "" {
		t.Fatalf("unexpected example config %+v", cfg)
	}
	if len(cfg.ContextOptions()) != 1 {
		t.Fatalf("expected imports option")
	}
}
