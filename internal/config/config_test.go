package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `prefix: "@"
context_lines: 50
include_env: false
streaming:
  max_response_length: 4096
  memory_limit_mb: 128
  interrupt_timeout_ms: 200
  scroll_buffer_lines: 5000
  typing_indicator_enabled: false
models:
  - name: local-7b
    type: local
    path: /models/7b.gguf
    context_window: 8192
    vram_required_mb: 4096
    warm_pool_size: 1
    max_concurrent: 2
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Prefix != "@" {
		t.Errorf("prefix = %q, want @", cfg.Prefix)
	}
	if cfg.ContextLines != 50 {
		t.Errorf("context_lines = %d, want 50", cfg.ContextLines)
	}
	if cfg.IncludeEnv {
		t.Error("expected include_env = false")
	}
	if cfg.Streaming.MaxResponseLength != 4096 {
		t.Errorf("max_response_length = %d, want 4096", cfg.Streaming.MaxResponseLength)
	}
	if cfg.Streaming.TypingIndicatorEnabled {
		t.Error("expected typing_indicator_enabled = false")
	}
	if len(cfg.Models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(cfg.Models))
	}
	m := cfg.Models[0]
	if m.Name != "local-7b" || m.Type != "local" || m.VramRequiredMB != 4096 {
		t.Errorf("model = %+v", m)
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Prefix != "p" {
		t.Errorf("expected default prefix %q, got %q", "p", cfg.Prefix)
	}
	if cfg.ContextLines != 100 {
		t.Errorf("expected default context_lines 100, got %d", cfg.ContextLines)
	}
	if cfg.Streaming.RenderIntervalMS != 16 {
		t.Errorf("expected default render_interval_ms 16, got %d", cfg.Streaming.RenderIntervalMS)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadFrom_EmptyPrefixRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("prefix: \"\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for empty prefix")
	}
}

func TestLoadFrom_InvalidModelName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `models:
  - name: "bad name!"
    type: local
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for invalid model name")
	}
}

func TestLoadFrom_DuplicateModelName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `models:
  - name: a
    type: local
  - name: a
    type: remote
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for duplicate model name")
	}
}

func TestLoadFrom_UnknownFallbackModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `models:
  - name: a
    type: local
    fallback_models: ["ghost"]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("expected error for unknown fallback model")
	}
}

func TestLoadFrom_ValidFallbackChain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `models:
  - name: a
    type: local
    fallback_models: ["b"]
  - name: b
    type: local
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if len(cfg.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(cfg.Models))
	}
}

func TestConfigDir_RespectsXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg")
	dir := ConfigDir()
	want := filepath.Join("/custom/xdg", "ferroterm")
	if dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}
