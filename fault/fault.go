package fault

import (
	"context"
	"fmt"
	"time"

	"github.com/zero-day-ai/chaos/llm"
)

// Kind identifies the injection point a fault targets. The set is closed;
// the router and interception layer dispatch over it with a single switch.
type Kind string

const (
	// KindLLMCall raises a synthesized provider error instead of delegating
	// the outbound call.
	KindLLMCall Kind = "llm_call"

	// KindStream degrades a streaming response chunk-by-chunk.
	KindStream Kind = "stream"

	// KindToolResult mutates tool results embedded in the outbound payload.
	KindToolResult Kind = "tool_result"

	// KindContext mutates the outbound message history.
	KindContext Kind = "context"

	// KindUserInput mutates the user query before the agent processes it.
	KindUserInput Kind = "user_input"
)

// Action describes what the interception layer should do with a fired fault.
type Action string

const (
	ActionProceed Action = "proceed"
	ActionRaise   Action = "raise"
	ActionMutate  Action = "mutate"
)

// Outcome is the side-effect-free result of applying a fault. The
// interception layer decides what to do with it. Latency shaping (delays,
// hangs) never surfaces as an outcome; it is carried by StreamPayload and
// scheduled by the stream plan.
type Outcome struct {
	Action   Action
	Err      error
	Text     string
	Messages []llm.Message
}

// Proceed returns the no-op outcome.
func Proceed() Outcome {
	return Outcome{Action: ActionProceed}
}

// Raise returns an outcome that raises err instead of delegating.
func Raise(err error) Outcome {
	return Outcome{Action: ActionRaise, Err: err}
}

// MutateText returns an outcome replacing a string value.
func MutateText(s string) Outcome {
	return Outcome{Action: ActionMutate, Text: s}
}

// MutateMessages returns an outcome replacing a message history.
func MutateMessages(messages []llm.Message) Outcome {
	return Outcome{Action: ActionMutate, Messages: messages}
}

// ToolMutator transforms a tool result. Implementations receive the run
// context on ctx (see scenario.FromContext) when they need turn history.
type ToolMutator func(ctx context.Context, toolName, result string) string

// ContextMutator transforms the outbound message history.
type ContextMutator func(ctx context.Context, messages []llm.Message) []llm.Message

// UserInputMutator transforms the user query before the agent sees it.
type UserInputMutator func(ctx context.Context, input string) string

// StreamVariant selects the degradation a stream fault applies.
type StreamVariant string

const (
	// StreamCutVariant terminates the stream with a connection error.
	StreamCutVariant StreamVariant = "cut"

	// StreamHangVariant stalls the stream mid-flight.
	StreamHangVariant StreamVariant = "hang"

	// StreamTTFTVariant delays the first chunk.
	StreamTTFTVariant StreamVariant = "slow_ttft"

	// StreamChunksVariant delays every subsequent chunk.
	StreamChunksVariant StreamVariant = "slow_chunks"
)

// StreamPayload configures a stream fault.
type StreamPayload struct {
	Variant StreamVariant

	// AfterChunks is the 0-based chunk index at which cut/hang engage.
	AfterChunks int

	// ChunkProbability gates cut/hang per chunk once the threshold is
	// reached. Defaults to 1.0 (fire at the threshold).
	ChunkProbability float64

	// HangFor is how long a hang stalls. Zero blocks until the stream
	// context is cancelled.
	HangFor time.Duration

	// Delay is the sleep applied by ttft and slow-chunk variants.
	Delay time.Duration
}

// ToolPayload configures a tool-result fault.
type ToolPayload struct {
	// Tool scopes the fault to one tool name. Empty matches any tool.
	Tool string

	// Replace, when non-nil, substitutes the tool result with a fixed value.
	Replace *string

	// Mutator, when set, computes the replacement from the original result.
	Mutator ToolMutator
}

// Fault is a configured (trigger, payload) pair targeting one injection
// point. Exactly one payload field is populated, matching Kind. Faults are
// immutable once built.
type Fault struct {
	Kind    Kind
	Trigger Trigger

	// Label names the fault in event logs, e.g. "llm_rate_limit".
	Label string

	// Raise is the synthesized provider error for KindLLMCall.
	Raise *llm.ProviderError

	// Stream is the payload for KindStream.
	Stream *StreamPayload

	// Tool is the payload for KindToolResult.
	Tool *ToolPayload

	// Context is the mutator for KindContext.
	Context ContextMutator

	// UserInput is the mutator for KindUserInput.
	UserInput UserInputMutator
}

// Validate checks kind/payload consistency and the trigger configuration.
func (f Fault) Validate() error {
	if err := f.Trigger.Validate(); err != nil {
		return fmt.Errorf("%s: %w", f.Label, err)
	}
	switch f.Kind {
	case KindLLMCall:
		if f.Raise == nil {
			return fmt.Errorf("%s: llm_call fault requires an error payload", f.Label)
		}
	case KindStream:
		if f.Stream == nil {
			return fmt.Errorf("%s: stream fault requires a stream payload", f.Label)
		}
		if f.Stream.AfterChunks < 0 {
			return fmt.Errorf("%s: after_chunks must be >= 0", f.Label)
		}
		if f.Stream.ChunkProbability < 0.0 || f.Stream.ChunkProbability > 1.0 {
			return fmt.Errorf("%s: chunk probability out of range [0.0, 1.0]", f.Label)
		}
	case KindToolResult:
		if f.Tool == nil || (f.Tool.Replace == nil && f.Tool.Mutator == nil) {
			return fmt.Errorf("%s: tool fault requires a replacement or mutator", f.Label)
		}
	case KindContext:
		if f.Context == nil {
			return fmt.Errorf("%s: context fault requires a mutator", f.Label)
		}
	case KindUserInput:
		if f.UserInput == nil {
			return fmt.Errorf("%s: user_input fault requires a mutator", f.Label)
		}
	default:
		return fmt.Errorf("%s: unknown fault kind %q", f.Label, f.Kind)
	}
	return nil
}

// ApplyLLM produces the raise outcome for an LLM-call fault, stamping the
// provider onto a copy of the synthesized error.
func (f Fault) ApplyLLM(provider string) Outcome {
	if f.Raise == nil {
		return Proceed()
	}
	pe := *f.Raise
	pe.Provider = provider
	return Raise(&pe)
}

// ApplyTool produces the mutate outcome for a tool-result fault.
func (f Fault) ApplyTool(ctx context.Context, toolName, result string) Outcome {
	switch {
	case f.Tool == nil:
		return Proceed()
	case f.Tool.Replace != nil:
		return MutateText(*f.Tool.Replace)
	case f.Tool.Mutator != nil:
		return MutateText(f.Tool.Mutator(ctx, toolName, result))
	default:
		return Proceed()
	}
}

// ApplyContext produces the mutate outcome for a context fault.
func (f Fault) ApplyContext(ctx context.Context, messages []llm.Message) Outcome {
	if f.Context == nil {
		return Proceed()
	}
	return MutateMessages(f.Context(ctx, llm.CloneMessages(messages)))
}

// ApplyUserInput produces the mutate outcome for a user-input fault.
func (f Fault) ApplyUserInput(ctx context.Context, input string) Outcome {
	if f.UserInput == nil {
		return Proceed()
	}
	return MutateText(f.UserInput(ctx, input))
}

// String renders the fault for event logs: "label (trigger)".
func (f Fault) String() string {
	return fmt.Sprintf("%s (%s)", f.Label, f.Trigger.String())
}
