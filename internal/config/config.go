package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FallbackRepo is used when neither flags, GITHUB_REPOSITORY nor the git
// remote name a repository.
const FallbackRepo = "dshills/prreview"

// Config represents the prreview configuration.
type Config struct {
	Provider    string        `yaml:"provider" env:"PRREVIEW_PROVIDER"`
	Model       string        `yaml:"model" env:"PRREVIEW_MODEL"`
	Temperature float64       `yaml:"temperature" env:"PRREVIEW_TEMPERATURE"`
	MaxFindings int           `yaml:"maxFindings" env:"PRREVIEW_MAX_FINDINGS"`
	LogLevel    string        `yaml:"logLevel" env:"PRREVIEW_LOG_LEVEL"`
	OutputDir   string        `yaml:"outputDir" env:"PRREVIEW_OUTPUT_DIR"`
	Debug       bool          `yaml:"debug"`
	Privacy     PrivacyConfig `yaml:"privacy"`
}

// PrivacyConfig controls redaction of diffs before they reach a model.
type PrivacyConfig struct {
	RedactSecrets *bool `yaml:"redactSecrets,omitempty"`
}

// Redact reports whether secret redaction is enabled. Unset means enabled.
func (p PrivacyConfig) Redact() bool {
	return p.RedactSecrets == nil || *p.RedactSecrets
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:    "anthropic",
		Model:       "claude-sonnet-4-20250514",
		MaxFindings: 50,
		LogLevel:    "info",
		OutputDir:   "dry",
	}
}

// DefaultModel returns the model used for a provider family when none is
// configured explicitly.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "gemini", "google":
		return "gemini-2.0-flash"
	case "ollama":
		return "llama3.1"
	default:
		return "claude-sonnet-4-20250514"
	}
}

// ConfigDir returns the platform-appropriate config directory for prreview.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prreview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "prreview"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "prreview"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "prreview"), nil
	default:
		return filepath.Join(home, ".config", "prreview"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	mergeOverrides(&cfg, overrides)

	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.Provider != "" {
		dst.Provider = src.Provider
		// A file that switches provider without naming a model gets that
		// provider's default rather than the anthropic one.
		if src.Model == "" {
			dst.Model = DefaultModel(src.Provider)
		}
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	// The default is 0, so an explicit 0 in the file and an absent key agree.
	dst.Temperature = src.Temperature
	if src.MaxFindings > 0 {
		dst.MaxFindings = src.MaxFindings
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
	if src.Debug {
		dst.Debug = true
	}
	if src.Privacy.RedactSecrets != nil {
		dst.Privacy.RedactSecrets = src.Privacy.RedactSecrets
	}
}

func mergeEnv(cfg *Config) error {
	provider := cfg.Provider
	model := cfg.Model
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.Provider != provider && cfg.Model == model {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if v, ok := os.LookupEnv("DEBUG"); ok && truthy(v) {
		cfg.Debug = true
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["provider"]; ok && v != "" {
		cfg.Provider = v
		if overrides["model"] == "" {
			cfg.Model = DefaultModel(v)
		}
	}
	if v, ok := overrides["model"]; ok && v != "" {
		cfg.Model = v
	}
	if v, ok := overrides["logLevel"]; ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := overrides["debug"]; ok && truthy(v) {
		cfg.Debug = true
	}
	if v, ok := overrides["maxFindings"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFindings = n
		}
	}
}

// truthy treats any non-empty value other than an explicit false as enabled,
// so DEBUG=1, DEBUG=yes and DEBUG=* all turn debugging on.
func truthy(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// Save writes cfg to the config file, creating the directory if needed.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
