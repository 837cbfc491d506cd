// Package config loads the terminal's YAML configuration: the agent
// command prefix, scrollback/context settings, streaming UI behaviour,
// and the registry of models available to the Model Host.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Prefix       string        `yaml:"prefix"`
	ContextLines int           `yaml:"context_lines"`
	IncludeEnv   bool          `yaml:"include_env"`
	Streaming    StreamingConfig `yaml:"streaming"`
	Models       []ModelConfig `yaml:"models"`
}

// StreamingConfig controls the Streaming UI's response handling and
// render pacing.
type StreamingConfig struct {
	MaxResponseLength         int  `yaml:"max_response_length"`
	MemoryLimitMB             int  `yaml:"memory_limit_mb"`
	InterruptTimeoutMS        int  `yaml:"interrupt_timeout_ms"`
	ScrollBufferLines         int  `yaml:"scroll_buffer_lines"`
	TypingIndicatorEnabled    bool `yaml:"typing_indicator_enabled"`
	SyntaxHighlightingEnabled bool `yaml:"syntax_highlighting_enabled"`
	ProgressiveRendering      bool `yaml:"progressive_rendering"`
	BatchSize                 int  `yaml:"batch_size"`
	RenderIntervalMS          int  `yaml:"render_interval_ms"`
}

// ModelConfig describes one entry in the model registry.
type ModelConfig struct {
	Name             string            `yaml:"name"`
	Type             string            `yaml:"type"`
	Path             string            `yaml:"path,omitempty"`
	APIEndpoint      string            `yaml:"api_endpoint,omitempty"`
	APIKeyEnv        string            `yaml:"api_key_env,omitempty"`
	ContextWindow    int               `yaml:"context_window"`
	VramRequiredMB   int64             `yaml:"vram_required_mb"`
	DefaultParameters map[string]string `yaml:"default_parameters,omitempty"`
	FallbackModels   []string          `yaml:"fallback_models,omitempty"`
	WarmPoolSize     int               `yaml:"warm_pool_size"`
	MaxConcurrent    int               `yaml:"max_concurrent"`
}

// defaults mirror spec.md's stated defaults for fields a config file
// may omit.
func defaults() Config {
	return Config{
		Prefix:       "p",
		ContextLines: 100,
		IncludeEnv:   true,
		Streaming: StreamingConfig{
			MaxResponseLength:         1 << 20,
			MemoryLimitMB:             256,
			InterruptTimeoutMS:        100,
			ScrollBufferLines:         10000,
			TypingIndicatorEnabled:    true,
			SyntaxHighlightingEnabled: true,
			ProgressiveRendering:      true,
			BatchSize:                 1,
			RenderIntervalMS:          16,
		},
	}
}

// ConfigDir returns the ferroterm configuration directory (~/.config/ferroterm).
func ConfigDir() string {
	if dir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && dir != "" {
		return filepath.Join(dir, "ferroterm")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "ferroterm")
	}
	return filepath.Join(home, ".config", "ferroterm")
}

// Load reads the config from ~/.config/ferroterm/config.yaml. If the
// file does not exist, it returns the built-in defaults with no error.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadFrom reads the config from the given path, layering it over the
// built-in defaults. If the file does not exist, it returns the
// defaults unchanged with no error.
func LoadFrom(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var modelNameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

func (c *Config) validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("config: prefix must not be empty")
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if !modelNameRe.MatchString(m.Name) {
			return fmt.Errorf("config: models: invalid model name %q (must match [a-zA-Z0-9_.-]+)", m.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("config: models: duplicate model name %q", m.Name)
		}
		seen[m.Name] = true
		if m.VramRequiredMB < 0 {
			return fmt.Errorf("config: models: %s: vram_required_mb must be non-negative", m.Name)
		}
	}
	for _, m := range c.Models {
		for _, fb := range m.FallbackModels {
			if !seen[fb] {
				return fmt.Errorf("config: models: %s: fallback model %q is not registered", m.Name, fb)
			}
		}
	}
	return nil
}
