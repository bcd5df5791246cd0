package fault

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zero-day-ai/chaos/llm"
)

func TestBuilder_LLMFaults(t *testing.T) {
	f, err := LLMRateLimit().OnCall(2).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if f.Kind != KindLLMCall {
		t.Errorf("Kind = %q, want %q", f.Kind, KindLLMCall)
	}
	if f.Trigger.OnCall != 2 {
		t.Errorf("Trigger.OnCall = %d, want 2", f.Trigger.OnCall)
	}
	if f.Raise == nil || f.Raise.Code != llm.ErrCodeRateLimited {
		t.Errorf("Raise = %+v, want code %s", f.Raise, llm.ErrCodeRateLimited)
	}
	if f.Raise.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", f.Raise.StatusCode)
	}
}

func TestBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"zero call index", LLMTimeout().OnCall(0)},
		{"negative turn", LLMTimeout().OnTurn(-1)},
		{"probability out of range", LLMTimeout().WithProbability(2.0)},
		{"inverted turn window", LLMTimeout().BetweenTurns(3, 2)},
		{"tool filter on llm fault", LLMTimeout().ForTool("search")},
		{"chunk probability on llm fault", LLMTimeout().WithChunkProbability(0.5)},
		{"nil tool mutator", ToolMutate(nil)},
		{"nil context mutator", ContextMutate(nil)},
		{"nil user input mutator", UserInputMutate(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); err == nil {
				t.Error("Build() expected error, got nil")
			}
		})
	}
}

func TestBuilder_FirstErrorWins(t *testing.T) {
	_, err := LLMTimeout().OnCall(0).WithProbability(5).Build()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "on_call") {
		t.Errorf("error = %v, want the first builder error (on_call)", err)
	}
}

func TestBuildAll(t *testing.T) {
	faults, err := BuildAll(
		LLMRateLimit().OnCall(1),
		StreamCut(5).OnTurn(2),
		ToolError("boom").ForTool("search"),
	)
	if err != nil {
		t.Fatalf("BuildAll() error = %v", err)
	}
	if len(faults) != 3 {
		t.Fatalf("len(faults) = %d, want 3", len(faults))
	}

	if _, err := BuildAll(LLMRateLimit(), LLMTimeout().OnCall(-1)); err == nil {
		t.Error("BuildAll() should surface a failing builder")
	}
}

func TestBuilder_DefaultTrigger(t *testing.T) {
	f := LLMServerError().MustBuild()
	if f.Trigger.Probability == nil || *f.Trigger.Probability != 1.0 {
		t.Errorf("default trigger = %+v, want probability 1.0", f.Trigger)
	}

	u := UserInputMutate(func(ctx context.Context, in string) string { return in }).MustBuild()
	if u.Trigger.Probability == nil || *u.Trigger.Probability != 1.0 {
		t.Errorf("user input default trigger = %+v, want probability 1.0", u.Trigger)
	}
}

func TestStreamBuilders(t *testing.T) {
	cut := StreamCut(5).MustBuild()
	if cut.Kind != KindStream || cut.Stream == nil {
		t.Fatalf("StreamCut payload missing: %+v", cut)
	}
	if cut.Stream.Variant != StreamCutVariant || cut.Stream.AfterChunks != 5 {
		t.Errorf("Stream = %+v, want cut after 5 chunks", cut.Stream)
	}

	hang := StreamHang(3, 2*time.Second).MustBuild()
	if hang.Stream.Variant != StreamHangVariant || hang.Stream.HangFor != 2*time.Second {
		t.Errorf("Stream = %+v, want hang for 2s", hang.Stream)
	}

	ttft := SlowTTFT(time.Second).MustBuild()
	if ttft.Stream.Variant != StreamTTFTVariant || ttft.Stream.Delay != time.Second {
		t.Errorf("Stream = %+v, want slow ttft 1s", ttft.Stream)
	}
}

func TestFault_ApplyLLM(t *testing.T) {
	f := LLMRateLimit().MustBuild()
	out := f.ApplyLLM("anthropic")
	if out.Action != ActionRaise {
		t.Fatalf("Action = %q, want %q", out.Action, ActionRaise)
	}

	perr, ok := out.Err.(*llm.ProviderError)
	if !ok {
		t.Fatalf("Err type = %T, want *llm.ProviderError", out.Err)
	}
	if perr.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", perr.Provider)
	}
	if perr == f.Raise {
		t.Error("ApplyLLM must copy the template error, not return it")
	}
}

func TestFault_ApplyTool(t *testing.T) {
	f := ToolError("upstream unavailable").MustBuild()
	out := f.ApplyTool(context.Background(), "search", `{"results": []}`)
	if out.Action != ActionMutate {
		t.Fatalf("Action = %q, want %q", out.Action, ActionMutate)
	}
	if !strings.Contains(out.Text, "upstream unavailable") {
		t.Errorf("Text = %q, want error payload", out.Text)
	}

	mut := ToolMutate(func(ctx context.Context, name, result string) string {
		return result + " [truncated]"
	}).MustBuild()
	out = mut.ApplyTool(context.Background(), "search", "partial")
	if out.Text != "partial [truncated]" {
		t.Errorf("Text = %q, want mutated result", out.Text)
	}
}

func TestFault_ApplyContextClonesMessages(t *testing.T) {
	f := ContextMutate(func(ctx context.Context, msgs []llm.Message) []llm.Message {
		msgs[0].Content = "mutated"
		return msgs
	}).MustBuild()

	orig := []llm.Message{llm.UserMessage("original")}
	out := f.ApplyContext(context.Background(), orig)

	if out.Action != ActionMutate {
		t.Fatalf("Action = %q, want %q", out.Action, ActionMutate)
	}
	if out.Messages[0].Content != "mutated" {
		t.Errorf("mutated content = %q, want %q", out.Messages[0].Content, "mutated")
	}
	if orig[0].Content != "original" {
		t.Error("ApplyContext mutated the caller's slice")
	}
}

func TestFault_Validate(t *testing.T) {
	tests := []struct {
		name    string
		fault   Fault
		wantErr bool
	}{
		{"llm without raise", Fault{Kind: KindLLMCall}, true},
		{"stream without payload", Fault{Kind: KindStream}, true},
		{"tool without payload", Fault{Kind: KindToolResult}, true},
		{"unknown kind", Fault{Kind: "bogus"}, true},
		{"valid llm", Fault{Kind: KindLLMCall, Raise: &llm.ProviderError{Code: llm.ErrCodeTimeout}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fault.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContextDegradations(t *testing.T) {
	history := []llm.Message{
		llm.SystemMessage("you are a travel agent"),
		llm.UserMessage("find flights"),
		llm.AssistantMessage("found 3 options"),
		llm.UserMessage("book the first"),
	}

	t.Run("drop system", func(t *testing.T) {
		f := ContextDropSystem().MustBuild()
		out := f.ApplyContext(context.Background(), history)
		if len(out.Messages) != 3 {
			t.Fatalf("len = %d, want 3", len(out.Messages))
		}
		for _, m := range out.Messages {
			if m.Role == llm.RoleSystem {
				t.Errorf("system message survived: %q", m.Content)
			}
		}
	})

	t.Run("truncate keeps system", func(t *testing.T) {
		f := ContextTruncate(1).MustBuild()
		out := f.ApplyContext(context.Background(), history)
		if len(out.Messages) != 2 {
			t.Fatalf("len = %d, want 2", len(out.Messages))
		}
		if out.Messages[0].Role != llm.RoleSystem {
			t.Errorf("first message role = %q, want %q", out.Messages[0].Role, llm.RoleSystem)
		}
		if out.Messages[1].Content != "book the first" {
			t.Errorf("kept message = %q, want most recent", out.Messages[1].Content)
		}
	})

	t.Run("drop oldest", func(t *testing.T) {
		f := ContextDropOldest(2).MustBuild()
		out := f.ApplyContext(context.Background(), history)
		if len(out.Messages) != 2 {
			t.Fatalf("len = %d, want 2", len(out.Messages))
		}
		if out.Messages[0].Role != llm.RoleSystem {
			t.Errorf("system message dropped")
		}
		if out.Messages[1].Content != "book the first" {
			t.Errorf("kept message = %q, want most recent", out.Messages[1].Content)
		}
	})

	t.Run("caller history untouched", func(t *testing.T) {
		f := ContextDropSystem().MustBuild()
		f.ApplyContext(context.Background(), history)
		if len(history) != 4 || history[0].Role != llm.RoleSystem {
			t.Error("degradation aliased the caller's history")
		}
	})

	t.Run("invalid bounds", func(t *testing.T) {
		if _, err := ContextTruncate(0).Build(); err == nil {
			t.Error("ContextTruncate(0) built")
		}
		if _, err := ContextDropOldest(0).Build(); err == nil {
			t.Error("ContextDropOldest(0) built")
		}
	})
}
