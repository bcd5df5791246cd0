package fault

import (
	"fmt"
	"time"
)

func toolFault(label string, payload *ToolPayload) *Builder {
	return newBuilder(Fault{
		Kind:    KindToolResult,
		Trigger: Trigger{Probability: ptr(1.0)},
		Label:   label,
		Tool:    payload,
	})
}

// ToolError replaces the tool result with a JSON error payload.
func ToolError(message string) *Builder {
	replacement := fmt.Sprintf(`{"error": %q}`, message)
	return toolFault("tool_error", &ToolPayload{Replace: &replacement})
}

// ToolEmpty replaces the tool result with an empty string.
func ToolEmpty() *Builder {
	empty := ""
	return toolFault("tool_empty", &ToolPayload{Replace: &empty})
}

// ToolTimeout replaces the tool result with a timeout message, emulating a
// tool that gave up after the given duration.
func ToolTimeout(after time.Duration) *Builder {
	replacement := fmt.Sprintf("Tool execution timed out after %s", after)
	return toolFault("tool_timeout", &ToolPayload{Replace: &replacement})
}

// ToolMutate corrupts tool results with a caller-supplied transform of
// (tool name, original result). Scope to a single tool with ForTool.
//
//	corrupt := func(ctx context.Context, tool, result string) string {
//	    if tool == "lookup_order" {
//	        return `{"status": "cancelled"}`
//	    }
//	    return result
//	}
//	fault.ToolMutate(corrupt).OnCall(2)
func ToolMutate(fn ToolMutator) *Builder {
	b := toolFault("tool_mutate", &ToolPayload{Mutator: fn})
	if fn == nil {
		return b.fail("tool_mutate: mutator must not be nil")
	}
	return b
}
