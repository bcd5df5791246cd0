package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/chaos/fault"
)

// FaultSpec is the declarative form of a fault for YAML variant files. Only
// faults with fixed payloads can be declared this way; mutator faults need
// code.
type FaultSpec struct {
	// Fault names the constructor: rate_limit, timeout, server_error,
	// auth_error, context_length, stream_cut, stream_hang, slow_ttft,
	// slow_chunks, tool_error, tool_empty, tool_timeout, drop_system,
	// truncate_history, drop_oldest.
	Fault string `yaml:"fault"`

	// Turn pins the fault to one turn (1-based). Zero applies it run-wide.
	Turn int `yaml:"turn,omitempty"`

	OnCall      int      `yaml:"on_call,omitempty"`
	AfterCalls  int      `yaml:"after_calls,omitempty"`
	OnTurn      int      `yaml:"on_turn,omitempty"`
	AfterTurns  int      `yaml:"after_turns,omitempty"`
	Probability *float64 `yaml:"probability,omitempty"`
	Provider    string   `yaml:"provider,omitempty"`
	Always      bool     `yaml:"always,omitempty"`

	// Payload knobs, meaningful per constructor.
	Message     string `yaml:"message,omitempty"`
	Tool        string `yaml:"tool,omitempty"`
	AfterChunks int    `yaml:"after_chunks,omitempty"`
	DelayMS     int    `yaml:"delay_ms,omitempty"`
	HangMS      int    `yaml:"hang_ms,omitempty"`
	Messages    int    `yaml:"messages,omitempty"`
}

// VariantSpec declares one variant of a baseline.
type VariantSpec struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Tags        []string    `yaml:"tags,omitempty"`
	Faults      []FaultSpec `yaml:"faults"`
}

// VariantFile is the top-level YAML document.
type VariantFile struct {
	Variants []VariantSpec `yaml:"variants"`
}

// LoadVariants reads a YAML variant file and derives its variants from the
// given baseline.
func LoadVariants(path string, baseline *Scenario) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variant file: %w", err)
	}

	var file VariantFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse variant file: %w", err)
	}
	if len(file.Variants) == 0 {
		return nil, fmt.Errorf("variant file %s declares no variants", path)
	}

	seen := make(map[string]bool)
	out := make([]*Scenario, 0, len(file.Variants))
	for i, spec := range file.Variants {
		if spec.Name == "" {
			return nil, fmt.Errorf("variant at index %d is missing required field 'name'", i)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate variant name: %s", spec.Name)
		}
		seen[spec.Name] = true

		opts := []VariantOption{WithDescription(spec.Description)}
		if len(spec.Tags) > 0 {
			opts = append(opts, WithTags(spec.Tags...))
		}
		for j, fs := range spec.Faults {
			b, err := fs.builder()
			if err != nil {
				return nil, fmt.Errorf("variant %s fault %d: %w", spec.Name, j, err)
			}
			if fs.Turn > 0 {
				opts = append(opts, At(fs.Turn, b))
			} else {
				opts = append(opts, WithFaults(b))
			}
		}

		v, err := baseline.Variant(spec.Name, opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// builder resolves the entry into a fault builder with its trigger applied.
func (fs FaultSpec) builder() (*fault.Builder, error) {
	var b *fault.Builder
	switch fs.Fault {
	case "rate_limit":
		b = fault.LLMRateLimit()
	case "timeout":
		b = fault.LLMTimeout()
	case "server_error":
		b = fault.LLMServerError()
	case "auth_error":
		b = fault.LLMAuthError()
	case "context_length":
		b = fault.LLMContextLength()
	case "stream_cut":
		b = fault.StreamCut(fs.AfterChunks)
	case "stream_hang":
		b = fault.StreamHang(fs.AfterChunks, time.Duration(fs.HangMS)*time.Millisecond)
	case "slow_ttft":
		b = fault.SlowTTFT(time.Duration(fs.DelayMS) * time.Millisecond)
	case "slow_chunks":
		b = fault.SlowChunks(time.Duration(fs.DelayMS) * time.Millisecond)
	case "tool_error":
		msg := fs.Message
		if msg == "" {
			msg = "tool execution failed"
		}
		b = fault.ToolError(msg)
		if fs.Tool != "" {
			b = b.ForTool(fs.Tool)
		}
	case "tool_empty":
		b = fault.ToolEmpty()
		if fs.Tool != "" {
			b = b.ForTool(fs.Tool)
		}
	case "tool_timeout":
		b = fault.ToolTimeout(time.Duration(fs.DelayMS) * time.Millisecond)
		if fs.Tool != "" {
			b = b.ForTool(fs.Tool)
		}
	case "drop_system":
		b = fault.ContextDropSystem()
	case "truncate_history":
		b = fault.ContextTruncate(fs.Messages)
	case "drop_oldest":
		b = fault.ContextDropOldest(fs.Messages)
	default:
		return nil, fmt.Errorf("unknown fault %q", fs.Fault)
	}

	if fs.OnCall > 0 {
		b = b.OnCall(fs.OnCall)
	}
	if fs.AfterCalls > 0 {
		b = b.AfterCalls(fs.AfterCalls)
	}
	if fs.OnTurn > 0 {
		b = b.OnTurn(fs.OnTurn)
	}
	if fs.AfterTurns > 0 {
		b = b.AfterTurns(fs.AfterTurns)
	}
	if fs.Probability != nil {
		b = b.WithProbability(*fs.Probability)
	}
	if fs.Provider != "" {
		b = b.ForProvider(fs.Provider)
	}
	if fs.Always {
		b = b.Always()
	}
	return b, nil
}
