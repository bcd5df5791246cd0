package llm

import (
	"encoding/json"
	"fmt"
)

// ToolDef defines a tool that an LLM can invoke.
type ToolDef struct {
	// Name is the unique identifier for this tool.
	Name string

	// Description explains what the tool does and when to use it.
	Description string

	// Parameters is a JSON Schema describing the tool's input parameters.
	Parameters map[string]any
}

// ToolCall represents an LLM's request to invoke a tool.
type ToolCall struct {
	// ID is a unique identifier for this tool call.
	// Used to match tool results back to the original call.
	ID string

	// Name is the name of the tool to invoke.
	Name string

	// Arguments contains the tool parameters as a JSON string.
	Arguments string
}

// ToolResult represents the result of executing a tool. Tool faults rewrite
// the Content field when the agent re-sends prior tool outputs as
// conversation state.
type ToolResult struct {
	// ToolCallID matches the ID from the corresponding ToolCall.
	ToolCallID string

	// Content contains the result data as a string.
	// For structured data, this should be JSON-encoded.
	Content string

	// IsError indicates whether the tool execution failed.
	IsError bool
}

// Validate checks if the tool definition is valid.
func (t *ToolDef) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if t.Parameters == nil {
		return fmt.Errorf("tool parameters cannot be nil")
	}
	return nil
}

// ParseArguments parses the tool call arguments into the provided value.
func (c *ToolCall) ParseArguments(v any) error {
	if c.Arguments == "" {
		return fmt.Errorf("no arguments to parse")
	}
	return json.Unmarshal([]byte(c.Arguments), v)
}

// Validate checks if the tool call is valid.
func (c *ToolCall) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("tool call ID cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("tool call name cannot be empty")
	}
	return nil
}
