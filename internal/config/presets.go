package config

import (
	"sort"
	"time"
)

// DefaultPrompt is used when neither prompts nor a prompt style is configured.
const DefaultPrompt = "Explain the concept of neural networks and how they work in modern AI systems. Include examples of applications."

// PromptSets are the built-in prompt styles.
var PromptSets = map[string][]string{
	"conversational": {
		"Explain quantum computing to a 10-year-old.",
		"What are the pros and cons of remote work?",
		"Write a creative story about a time-traveling cat.",
		"Explain the difference between supervised and unsupervised learning.",
		"What would happen if humans could photosynthesize?",
	},
	"short": {
		"List 5 programming languages.",
		"What is the capital of France?",
		"Define machine learning.",
		"Name 3 types of clouds.",
		"What is 15 * 23?",
	},
	"mixed": {
		"Explain quantum computing to a 10-year-old.",
		"What is the capital of France?",
		"Write a creative story about a time-traveling cat.",
		"Define machine learning.",
		"What are the pros and cons of remote work?",
	},
}

// Preset is a named workload shape.
type Preset struct {
	Name              string        `yaml:"name" json:"name"`
	Description       string        `yaml:"description" json:"description"`
	ConcurrencyLevels []int         `yaml:"concurrency_levels" json:"concurrency_levels"`
	Duration          time.Duration `yaml:"duration" json:"duration"`
	PromptStyle       string        `yaml:"prompt_style" json:"prompt_style"`
}

var presets = []Preset{
	{
		Name:              "chatbot",
		Description:       "Low concurrency, conversational workload",
		ConcurrencyLevels: []int{1, 2, 5},
		Duration:          60 * time.Second,
		PromptStyle:       "conversational",
	},
	{
		Name:              "batch-processing",
		Description:       "High throughput, batch processing",
		ConcurrencyLevels: []int{10, 25, 50},
		Duration:          120 * time.Second,
		PromptStyle:       "short",
	},
	{
		Name:              "edge-device",
		Description:       "Memory-constrained, single-user",
		ConcurrencyLevels: []int{1},
		Duration:          60 * time.Second,
		PromptStyle:       "mixed",
	},
}

// Presets returns the built-in presets in declaration order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetNames lists preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// PromptStyles lists prompt style names, sorted.
func PromptStyles() []string {
	names := make([]string, 0, len(PromptSets))
	for name := range PromptSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
