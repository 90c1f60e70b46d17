/*
PURPOSE:
  Defines the configuration structure and loading logic for llamabench.
  Adheres to "Config IS Code" philosophy: every tunable lives in one struct,
  file values override defaults, CLI flags override the file.

REQUIREMENTS:
  User-specified:
  - Engines, concurrency levels, duration, and prompts are configurable.
  - Named presets (chatbot, batch-processing, edge-device).

  Implementation-discovered:
  - A preset named in the file is applied before the file's own keys, so an
    explicit `duration:` in the same file still wins over the preset.
  - yaml.v3 decodes time.Duration from strings such as "90s".
  - Models outside the supported list are allowed (engines have their own
    naming); UnsupportedModels lets the caller warn about them.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli
  - Produces: []engine.Target for internal/engine.Run
  - Dependencies: gopkg.in/yaml.v3

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - A missing default file is not an error (falls back to defaults).
  - Validate() names the offending key.

USAGE:
  cfg, err := config.Load("llamabench.yaml")
  if err := cfg.Validate(); err != nil { ... }

RELATED FILES:
  - internal/config/presets.go
  - internal/cli/run.go
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/llamabench/internal/engine"
	"github.com/daryltucker/llamabench/internal/output"
)

// DefaultFiles are searched, in order, when no config path is given.
var DefaultFiles = []string{"llamabench.yaml", "llamabench.yml"}

const (
	DefaultModel       = "llama-3.1-8b"
	DefaultDuration    = 60 * time.Second
	DefaultFormat      = "json"
	DefaultPromptStyle = "mixed"
)

// DefaultEngineKinds are benchmarked when neither the file nor --engines names any.
var DefaultEngineKinds = []engine.Kind{engine.KindLlamaCpp, engine.KindOllama}

// EngineConfig is one benchmark target.
type EngineConfig struct {
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Config represents the full configuration for a benchmark run.
type Config struct {
	Engines           []EngineConfig `yaml:"engines"`
	ConcurrencyLevels []int          `yaml:"concurrency_levels"`
	Duration          time.Duration  `yaml:"duration"`
	RequestTimeout    time.Duration  `yaml:"request_timeout"`
	HealthTimeout     time.Duration  `yaml:"health_timeout"`
	// PromptStyle selects a built-in prompt set; empty means DefaultPrompt.
	PromptStyle string `yaml:"prompt_style"`
	// Prompts, when set, replaces the prompt style entirely.
	Prompts []string `yaml:"prompts"`
	Preset  string   `yaml:"preset"`
	Format  string   `yaml:"format"`
}

// DefaultBaseURL returns the conventional local endpoint of an engine kind.
func DefaultBaseURL(kind engine.Kind) string {
	switch kind {
	case engine.KindLlamaCpp:
		return "http://localhost:8080"
	case engine.KindOllama:
		return "http://localhost:11434"
	case engine.KindVLLM:
		return "http://localhost:8000"
	}
	return ""
}

// DefaultEngines returns DefaultEngineKinds at their default ports.
func DefaultEngines() []EngineConfig {
	engines := make([]EngineConfig, 0, len(DefaultEngineKinds))
	for _, k := range DefaultEngineKinds {
		engines = append(engines, EngineConfig{Kind: string(k), BaseURL: DefaultBaseURL(k), Model: DefaultModel})
	}
	return engines
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engines:           DefaultEngines(),
		ConcurrencyLevels: []int{1, 5, 10},
		Duration:          DefaultDuration,
		RequestTimeout:    engine.DefaultRequestTimeout,
		HealthTimeout:     engine.DefaultHealthTimeout,
		PromptStyle:       DefaultPromptStyle,
		Format:            DefaultFormat,
	}
}

// Load reads configuration from a file.
// If path is empty, DefaultFiles are searched; if none exists the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		found := false
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// decode applies YAML data on top of cfg, honouring a preset key first.
func (c *Config) decode(data []byte) error {
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Preset != "" {
		if err := c.ApplyPreset(head.Preset); err != nil {
			return err
		}
	}
	return yaml.Unmarshal(data, c)
}

// ApplyPreset overrides levels, duration and prompt style with a named preset.
func (c *Config) ApplyPreset(name string) error {
	p, ok := LookupPreset(name)
	if !ok {
		return fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	c.Preset = p.Name
	c.ConcurrencyLevels = append([]int(nil), p.ConcurrencyLevels...)
	c.Duration = p.Duration
	c.PromptStyle = p.PromptStyle
	c.Prompts = nil
	return nil
}

// ResolvedPrompts returns the prompt list a run will cycle through.
func (c *Config) ResolvedPrompts() ([]string, error) {
	if len(c.Prompts) > 0 {
		return c.Prompts, nil
	}
	if c.PromptStyle == "" {
		return []string{DefaultPrompt}, nil
	}
	set, ok := PromptSets[c.PromptStyle]
	if !ok {
		return nil, fmt.Errorf("prompt_style: unknown style %q", c.PromptStyle)
	}
	return set, nil
}

// Validate checks the configuration for values a run cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Engines) == 0 {
		errs = append(errs, errors.New("engines: at least one engine is required"))
	}
	for i, e := range c.Engines {
		if _, err := engine.ParseKind(e.Kind); err != nil {
			errs = append(errs, fmt.Errorf("engines[%d].kind: %w", i, err))
		}
		if strings.TrimSpace(e.BaseURL) == "" {
			errs = append(errs, fmt.Errorf("engines[%d].base_url must not be empty", i))
		}
	}

	if len(c.ConcurrencyLevels) == 0 {
		errs = append(errs, errors.New("concurrency_levels: at least one level is required"))
	}
	for i, n := range c.ConcurrencyLevels {
		if n < 1 {
			errs = append(errs, fmt.Errorf("concurrency_levels[%d] must be >= 1, got %d", i, n))
		}
	}

	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %s", c.Duration))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}

	if prompts, err := c.ResolvedPrompts(); err != nil {
		errs = append(errs, err)
	} else if len(prompts) == 0 {
		errs = append(errs, errors.New("prompts: at least one prompt is required"))
	}

	if !slices.Contains(output.Formats, c.Format) {
		errs = append(errs, fmt.Errorf("format must be one of %s, got %q", strings.Join(output.Formats, ", "), c.Format))
	}

	return errors.Join(errs...)
}

// UnsupportedModels returns the configured model names that are not
// supported model ids, in engine order without duplicates.
func (c *Config) UnsupportedModels() []string {
	var names []string
	for _, e := range c.Engines {
		if e.Model == "" || slices.Contains(names, e.Model) {
			continue
		}
		if _, ok := LookupModel(e.Model); !ok {
			names = append(names, e.Model)
		}
	}
	return names
}

// Targets converts the engine list into runner targets. Call Validate first.
// A model id from the registry is translated to the name each engine serves it under.
func (c *Config) Targets() ([]engine.Target, error) {
	targets := make([]engine.Target, 0, len(c.Engines))
	for i, e := range c.Engines {
		kind, err := engine.ParseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("engines[%d].kind: %w", i, err)
		}
		model := e.Model
		if model == "" {
			model = DefaultModel
		}
		if info, ok := LookupModel(model); ok {
			model = info.EngineModel(kind)
		}
		targets = append(targets, engine.Target{Kind: kind, BaseURL: e.BaseURL, Model: model})
	}
	return targets, nil
}

// SelectEngines restricts the engine list to the given kinds, keeping any
// configured URL and filling the registry default otherwise.
func (c *Config) SelectEngines(names []string) error {
	selected := make([]EngineConfig, 0, len(names))
	for _, name := range names {
		kind, err := engine.ParseKind(name)
		if err != nil {
			return err
		}
		ec := EngineConfig{Kind: string(kind), BaseURL: DefaultBaseURL(kind), Model: DefaultModel}
		for _, existing := range c.Engines {
			if k, err := engine.ParseKind(existing.Kind); err == nil && k == kind {
				ec = existing
				ec.Kind = string(kind)
				break
			}
		}
		selected = append(selected, ec)
	}
	c.Engines = selected
	return nil
}
