package llm

import "testing"

func TestMessage_IsValid(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"valid user", UserMessage("hello"), true},
		{"valid system", SystemMessage("be helpful"), true},
		{"empty user", Message{Role: RoleUser}, false},
		{"assistant with content", AssistantMessage("hi"), true},
		{"assistant with tool calls", Message{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "t"}}}, true},
		{"empty assistant", Message{Role: RoleAssistant}, false},
		{"valid tool", ToolMessage("weather", ToolResult{ToolCallID: "1", Content: "{}"}), true},
		{"tool without results", Message{Role: RoleTool, Name: "weather"}, false},
		{"unknown role", Message{Role: "robot", Content: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloneMessages_NoAliasing(t *testing.T) {
	original := []Message{
		ToolMessage("weather", ToolResult{ToolCallID: "1", Content: `{"temp": 20}`}),
		UserMessage("and tomorrow?"),
	}

	cloned := CloneMessages(original)
	cloned[0].ToolResults[0].Content = "corrupted"
	cloned[1].Content = "changed"

	if original[0].ToolResults[0].Content != `{"temp": 20}` {
		t.Error("mutating clone's tool results leaked into the original")
	}
	if original[1].Content != "and tomorrow?" {
		t.Error("mutating clone's content leaked into the original")
	}
}

func TestCloneMessages_Nil(t *testing.T) {
	if CloneMessages(nil) != nil {
		t.Error("cloning nil should return nil")
	}
}
