package fuzz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LLM error codes the generator can draw.
var llmErrors = []string{"rate_limit", "timeout", "server_error", "auth_error", "context_length"}

// Stream degradations the generator can draw.
var streamVariants = []string{"cut", "hang", "slow_ttft", "slow_chunks"}

// Tool degradation modes the generator can draw.
var toolModes = []string{"error", "empty", "timeout"}

// Context degradation modes the generator can draw.
var contextModes = []string{"drop_system", "truncate", "drop_oldest"}

// LLMConfig bounds LLM-call faults in the space.
type LLMConfig struct {
	Enabled bool `yaml:"enabled"`

	// Weight is the family's relative share of the fault draw. Zero means 1.
	Weight float64 `yaml:"weight,omitempty"`

	// Errors restricts the error codes drawn. Empty allows all of
	// rate_limit, timeout, server_error, auth_error, context_length.
	Errors []string `yaml:"errors,omitempty"`

	// MaxOnCall, when positive, pins each drawn fault to a random exact
	// call index in [1, MaxOnCall] instead of a probability gate.
	MaxOnCall int `yaml:"max_on_call,omitempty"`

	// MinProbability and MaxProbability bound a randomized probability gate
	// applied to each drawn fault. A zero MaxProbability leaves the trigger
	// ungated.
	MinProbability float64 `yaml:"min_probability,omitempty"`
	MaxProbability float64 `yaml:"max_probability,omitempty"`
}

// StreamConfig bounds stream faults in the space.
type StreamConfig struct {
	Enabled bool `yaml:"enabled"`

	// Weight is the family's relative share of the fault draw. Zero means 1.
	Weight float64 `yaml:"weight,omitempty"`

	// Variants restricts the degradations drawn. Empty allows all of
	// cut, hang, slow_ttft, slow_chunks.
	Variants []string `yaml:"variants,omitempty"`

	// MinProbability and MaxProbability bound a randomized probability gate
	// applied to each drawn fault. A zero MaxProbability leaves the trigger
	// ungated.
	MinProbability float64 `yaml:"min_probability,omitempty"`
	MaxProbability float64 `yaml:"max_probability,omitempty"`

	// MaxAfterChunks caps the cut/hang chunk threshold. Zero means 10.
	MaxAfterChunks int `yaml:"max_after_chunks,omitempty"`

	// MaxDelayMS caps latency-shaping delays. Zero means 1000.
	MaxDelayMS int `yaml:"max_delay_ms,omitempty"`
}

// ToolConfig bounds tool-result faults in the space.
type ToolConfig struct {
	Enabled bool `yaml:"enabled"`

	// Weight is the family's relative share of the fault draw. Zero means 1.
	Weight float64 `yaml:"weight,omitempty"`

	// Tools restricts targets to the named tools. Empty targets any tool.
	Tools []string `yaml:"tools,omitempty"`

	// Modes restricts the degradations drawn. Empty allows all of
	// error, empty, timeout.
	Modes []string `yaml:"modes,omitempty"`

	// MinProbability and MaxProbability bound a randomized probability gate
	// applied to each drawn fault. A zero MaxProbability leaves the trigger
	// ungated.
	MinProbability float64 `yaml:"min_probability,omitempty"`
	MaxProbability float64 `yaml:"max_probability,omitempty"`
}

// ContextConfig bounds context-corruption faults in the space.
type ContextConfig struct {
	Enabled bool `yaml:"enabled"`

	// Weight is the family's relative share of the fault draw. Zero means 1.
	Weight float64 `yaml:"weight,omitempty"`

	// Modes restricts the degradations drawn. Empty allows all of
	// drop_system, truncate, drop_oldest.
	Modes []string `yaml:"modes,omitempty"`

	// MaxKeep caps how much history a truncation keeps. Zero means 4.
	MaxKeep int `yaml:"max_keep,omitempty"`

	// MinProbability and MaxProbability bound a randomized probability gate
	// applied to each drawn fault. A zero MaxProbability leaves the trigger
	// ungated.
	MinProbability float64 `yaml:"min_probability,omitempty"`
	MaxProbability float64 `yaml:"max_probability,omitempty"`
}

// Space is the sampling space fuzz variants are drawn from.
type Space struct {
	LLM     LLMConfig     `yaml:"llm"`
	Stream  StreamConfig  `yaml:"stream"`
	Tool    ToolConfig    `yaml:"tool"`
	Context ContextConfig `yaml:"context"`

	// MinFaults and MaxFaults bound how many faults one variant carries.
	MinFaults int `yaml:"min_faults"`
	MaxFaults int `yaml:"max_faults"`
}

// DefaultSpace enables every dimension with one to three faults per variant.
func DefaultSpace() Space {
	return Space{
		LLM:       LLMConfig{Enabled: true},
		Stream:    StreamConfig{Enabled: true},
		Tool:      ToolConfig{Enabled: false},
		MinFaults: 1,
		MaxFaults: 3,
	}
}

// Validate rejects an empty or inconsistent space.
func (s Space) Validate() error {
	if !s.LLM.Enabled && !s.Stream.Enabled && !s.Tool.Enabled && !s.Context.Enabled {
		return fmt.Errorf("fuzz space has no enabled dimensions")
	}
	if s.MinFaults < 1 {
		return fmt.Errorf("min_faults must be >= 1, got %d", s.MinFaults)
	}
	if s.MaxFaults < s.MinFaults {
		return fmt.Errorf("max_faults %d must be >= min_faults %d", s.MaxFaults, s.MinFaults)
	}
	for _, e := range s.LLM.Errors {
		if !contains(llmErrors, e) {
			return fmt.Errorf("unknown llm error %q", e)
		}
	}
	for _, v := range s.Stream.Variants {
		if !contains(streamVariants, v) {
			return fmt.Errorf("unknown stream variant %q", v)
		}
	}
	for _, m := range s.Tool.Modes {
		if !contains(toolModes, m) {
			return fmt.Errorf("unknown tool mode %q", m)
		}
	}
	for _, m := range s.Context.Modes {
		if !contains(contextModes, m) {
			return fmt.Errorf("unknown context mode %q", m)
		}
	}
	for _, f := range []struct {
		name     string
		weight   float64
		min, max float64
	}{
		{"llm", s.LLM.Weight, s.LLM.MinProbability, s.LLM.MaxProbability},
		{"stream", s.Stream.Weight, s.Stream.MinProbability, s.Stream.MaxProbability},
		{"tool", s.Tool.Weight, s.Tool.MinProbability, s.Tool.MaxProbability},
		{"context", s.Context.Weight, s.Context.MinProbability, s.Context.MaxProbability},
	} {
		if f.weight < 0 {
			return fmt.Errorf("%s weight must be >= 0, got %v", f.name, f.weight)
		}
		if f.min < 0 || f.max > 1.0 {
			return fmt.Errorf("%s probability range [%v, %v] outside [0.0, 1.0]", f.name, f.min, f.max)
		}
		if f.max > 0 && f.min > f.max {
			return fmt.Errorf("%s min_probability %v exceeds max_probability %v", f.name, f.min, f.max)
		}
	}
	if s.LLM.MaxOnCall < 0 {
		return fmt.Errorf("llm max_on_call must be >= 0, got %d", s.LLM.MaxOnCall)
	}
	return nil
}

// LoadSpace reads a space definition from a YAML file.
func LoadSpace(path string) (Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Space{}, fmt.Errorf("failed to read fuzz space: %w", err)
	}
	var space Space
	if err := yaml.Unmarshal(data, &space); err != nil {
		return Space{}, fmt.Errorf("failed to parse fuzz space: %w", err)
	}
	if err := space.Validate(); err != nil {
		return Space{}, err
	}
	return space, nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func orDefault(values, defaults []string) []string {
	if len(values) > 0 {
		return values
	}
	return defaults
}
