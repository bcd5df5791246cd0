package events

import "time"

// Type discriminates event records. The set is closed; consumers replaying a
// log can switch over it exhaustively.
type Type string

const (
	// TypeTraceStart opens a run trace.
	TypeTraceStart Type = "trace_start"

	// TypeTraceEnd closes a run trace with its final status.
	TypeTraceEnd Type = "trace_end"

	// TypeCallStart marks an outbound provider call leaving the harness.
	TypeCallStart Type = "call_start"

	// TypeCallEnd marks a provider call returning, with latency and status.
	TypeCallEnd Type = "call_end"

	// TypeFaultInjected records a fault firing at an injection point.
	TypeFaultInjected Type = "fault_injected"

	// TypeTTFT records time to first token for a streaming call.
	TypeTTFT Type = "ttft"

	// TypeStreamCut records a mid-stream termination.
	TypeStreamCut Type = "stream_cut"

	// TypeStreamStats summarizes a completed stream.
	TypeStreamStats Type = "stream_stats"

	// TypeTokenUsage records token counts for a completed call.
	TypeTokenUsage Type = "token_usage"

	// TypeToolUse records the model requesting a tool invocation.
	TypeToolUse Type = "tool_use"

	// TypeTurnStart marks a scenario turn beginning.
	TypeTurnStart Type = "turn_start"

	// TypeTurnEnd marks a scenario turn finishing.
	TypeTurnEnd Type = "turn_end"
)

// Event is one record in the run log. Type selects which fields are
// populated; everything else is omitted from the serialized form. A flat
// shape keeps the JSONL format greppable and lets replay tooling decode every
// line into the same struct.
type Event struct {
	Type Type      `json:"type"`
	Time time.Time `json:"time"`

	TraceID string `json:"trace_id,omitempty"`
	CallID  string `json:"call_id,omitempty"`

	Scenario string `json:"scenario,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Seed     *int64 `json:"seed,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Turn is the 1-based scenario turn, zero outside any turn.
	Turn int `json:"turn,omitempty"`

	// Call is the global 1-based call index.
	Call int `json:"call,omitempty"`

	Fault     string `json:"fault,omitempty"`
	FaultKind string `json:"fault_kind,omitempty"`

	Tool string `json:"tool,omitempty"`

	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`

	DurationMS float64 `json:"duration_ms,omitempty"`

	// Chunk is the 0-based chunk index a stream event refers to.
	Chunk  int `json:"chunk,omitempty"`
	Chunks int `json:"chunks,omitempty"`

	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}

// Bool returns a pointer for the Success field.
func Bool(v bool) *bool { return &v }

// Int64 returns a pointer for the Seed field.
func Int64(v int64) *int64 { return &v }

// Sink receives events in emission order.
type Sink interface {
	Emit(Event) error
	Close() error
}
