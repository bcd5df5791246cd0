package llm

// Role identifies the sender of a conversation message.
type Role string

const (
	// RoleSystem carries system-level instructions or context.
	RoleSystem Role = "system"

	// RoleUser carries messages from the user.
	RoleUser Role = "user"

	// RoleAssistant carries messages from the model.
	RoleAssistant Role = "assistant"

	// RoleTool carries tool execution results.
	RoleTool Role = "tool"
)

// Message is a single message in a conversation. The message history of a
// request is one of the chaos injection boundaries: context faults mutate the
// slice before it reaches the provider, and tool faults rewrite the
// ToolResults embedded in RoleTool messages.
type Message struct {
	// Role indicates who sent the message.
	Role Role

	// Content is the text content of the message.
	Content string

	// ToolCalls contains tool invocations requested by the assistant.
	// Only valid when Role is RoleAssistant.
	ToolCalls []ToolCall

	// ToolResults contains the results of tool executions.
	// Only valid when Role is RoleTool.
	ToolResults []ToolResult

	// Name identifies the tool that produced this message.
	// Only valid when Role is RoleTool.
	Name string
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool result message.
func ToolMessage(name string, results ...ToolResult) Message {
	return Message{Role: RoleTool, Name: name, ToolResults: results}
}

// IsValid validates that the message has appropriate fields set for its role.
func (m Message) IsValid() bool {
	switch m.Role {
	case RoleSystem, RoleUser:
		return m.Content != "" && len(m.ToolCalls) == 0 && len(m.ToolResults) == 0 && m.Name == ""
	case RoleAssistant:
		// Assistant can have content, tool calls, or both
		return m.Content != "" || len(m.ToolCalls) > 0
	case RoleTool:
		return m.Name != "" && len(m.ToolResults) > 0
	default:
		return false
	}
}

// Clone returns a deep copy of the message. Mutating faults operate on copies
// so the agent's own history is never aliased by the harness.
func (m Message) Clone() Message {
	out := m
	out.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	out.ToolResults = append([]ToolResult(nil), m.ToolResults...)
	return out
}

// CloneMessages deep-copies a message slice.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}

// String returns a string representation of the role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}
