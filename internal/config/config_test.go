package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{
		"PRREVIEW_PROVIDER", "PRREVIEW_MODEL", "PRREVIEW_TEMPERATURE",
		"PRREVIEW_MAX_FINDINGS", "PRREVIEW_LOG_LEVEL", "PRREVIEW_OUTPUT_DIR", "DEBUG",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, "prreview", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Provider != "anthropic" {
		t.Errorf("Default provider = %q, want %q", cfg.Provider, "anthropic")
	}
	if cfg.OutputDir != "dry" {
		t.Errorf("Default outputDir = %q, want %q", cfg.OutputDir, "dry")
	}
	if cfg.MaxFindings != 50 {
		t.Errorf("Default maxFindings = %d, want 50", cfg.MaxFindings)
	}
	if !cfg.Privacy.Redact() {
		t.Error("Default redaction should be enabled")
	}
	if cfg.Debug {
		t.Error("Default debug should be false")
	}
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Provider != "anthropic" || cfg.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_FileLayer(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, "provider: openai\nmaxFindings: 7\nprivacy:\n  redactSecrets: false\n")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Provider)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want provider default gpt-4o-mini", cfg.Model)
	}
	if cfg.MaxFindings != 7 {
		t.Errorf("MaxFindings = %d, want 7", cfg.MaxFindings)
	}
	if cfg.Privacy.Redact() {
		t.Error("redaction should be disabled by file")
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, "provider: [unterminated\n")
	if _, err := Load(nil); err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, "provider: openai\nmodel: gpt-4o\n")
	t.Setenv("PRREVIEW_MODEL", "gpt-4.1")
	t.Setenv("PRREVIEW_LOG_LEVEL", "debug")
	t.Setenv("DEBUG", "1")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model != "gpt-4.1" {
		t.Errorf("Model = %q, want gpt-4.1", cfg.Model)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.Debug {
		t.Error("DEBUG=1 should enable debug")
	}
}

func TestLoad_EnvProviderSwitchesDefaultModel(t *testing.T) {
	isolate(t)
	t.Setenv("PRREVIEW_PROVIDER", "gemini")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q, want gemini-2.0-flash", cfg.Model)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PRREVIEW_MAX_FINDINGS", "lots")
	if _, err := Load(nil); err == nil {
		t.Fatal("expected error for non-integer PRREVIEW_MAX_FINDINGS")
	}
}

func TestLoad_OverridesWin(t *testing.T) {
	isolate(t)
	t.Setenv("PRREVIEW_PROVIDER", "openai")

	cfg, err := Load(map[string]string{
		"provider":    "ollama",
		"logLevel":    "warn",
		"debug":       "true",
		"maxFindings": "3",
	})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Provider != "ollama" || cfg.Model != "llama3.1" {
		t.Errorf("Provider/Model = %q/%q, want ollama/llama3.1", cfg.Provider, cfg.Model)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if !cfg.Debug {
		t.Error("debug override should enable debug")
	}
	if cfg.MaxFindings != 3 {
		t.Errorf("MaxFindings = %d, want 3", cfg.MaxFindings)
	}
}

func TestTruthy(t *testing.T) {
	tests := map[string]bool{
		"": false, "0": false, "false": false, "No": false, "off": false,
		"1": true, "true": true, "yes": true, "*": true,
	}
	for in, want := range tests {
		if got := truthy(in); got != want {
			t.Errorf("truthy(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Provider = "ollama"
	cfg.Model = "qwen2.5-coder"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Provider != "ollama" || got.Model != "qwen2.5-coder" {
		t.Errorf("got %+v", got)
	}
}

func TestLoad_FileTemperature(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"explicit zero", "temperature: 0\n", 0},
		{"absent", "provider: openai\n", 0},
		{"set", "temperature: 0.4\n", 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeConfigFile(t, dir, tt.content)
			cfg, err := Load(nil)
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if cfg.Temperature != tt.want {
				t.Errorf("Temperature = %v, want %v", cfg.Temperature, tt.want)
			}
		})
	}
}
