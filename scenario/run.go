package scenario

import (
	"context"
	"sync"
	"time"

	"github.com/zero-day-ai/chaos/inject"
	"github.com/zero-day-ai/chaos/llm"
	"github.com/zero-day-ai/chaos/metrics"
)

type ctxKey struct{}

// NewContext attaches the run to a context so fault mutators and agents can
// recover it.
func NewContext(ctx context.Context, run *Run) context.Context {
	return context.WithValue(ctx, ctxKey{}, run)
}

// FromContext recovers the run attached with NewContext.
func FromContext(ctx context.Context) (*Run, bool) {
	run, ok := ctx.Value(ctxKey{}).(*Run)
	return run, ok
}

// Run is the live state of one scenario execution: the intercepted provider,
// the turns completed so far, and a scratch map for agent state. It is
// created by the runner and handed to the agent each turn.
type Run struct {
	scenario *Scenario
	router   *inject.Router
	rec      *metrics.Recorder
	provider llm.Provider

	mu       sync.Mutex
	results  []TurnResult
	messages []llm.Message
	state    map[string]any

	// per-turn deltas
	turnStart      time.Time
	turnCallsBase  int
	turnUsageBase  llm.TokenUsage
	turnFaultsBase int
}

// Provider returns the intercepted provider the agent should call through.
func (r *Run) Provider() llm.Provider {
	return r.provider
}

// Scenario returns the name of the running scenario.
func (r *Run) Scenario() string {
	return r.scenario.Name
}

// History returns the turns completed so far, including failed ones.
func (r *Run) History() []TurnResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TurnResult, len(r.results))
	copy(out, r.results)
	return out
}

// MessageHistory returns the conversation so far as messages. Failed turns
// contribute their input but no response. Boundary context faults may have
// rewritten this history between turns, so agents that rebuild requests from
// it observe the rot.
func (r *Run) MessageHistory() []llm.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return llm.CloneMessages(r.messages)
}

// setMessages replaces the conversation history after a boundary mutation.
func (r *Run) setMessages(messages []llm.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = messages
}

// Set stores a value in the run's scratch state.
func (r *Run) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		r.state = make(map[string]any)
	}
	r.state[key] = value
}

// Get reads a value from the run's scratch state.
func (r *Run) Get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.state[key]
	return v, ok
}

// startTurn snapshots the counters the turn's deltas are computed against.
func (r *Run) startTurn(ctx context.Context, turn int) {
	r.mu.Lock()
	r.turnStart = time.Now()
	r.turnCallsBase = r.router.CallCount()
	r.turnUsageBase = r.rec.Store().TotalUsage()
	r.turnFaultsBase = r.rec.Store().FaultsInjected()
	r.mu.Unlock()

	r.router.SetCurrentTurn(turn)
	r.rec.RecordTurnStart(ctx, turn)
}

// endTurn closes the turn, appends its result, and returns it.
func (r *Run) endTurn(ctx context.Context, turn int, input, response string, dynamic bool, err error) TurnResult {
	r.router.CompleteTurn()

	r.mu.Lock()
	usage := r.rec.Store().TotalUsage()
	tr := TurnResult{
		Turn:     turn,
		Input:    input,
		Response: response,
		Err:      err,
		Success:  err == nil,
		Duration: time.Since(r.turnStart),
		Dynamic:  dynamic,
		LLMCalls: r.router.CallCount() - r.turnCallsBase,
		Usage: llm.TokenUsage{
			InputTokens:  usage.InputTokens - r.turnUsageBase.InputTokens,
			OutputTokens: usage.OutputTokens - r.turnUsageBase.OutputTokens,
			TotalTokens:  usage.TotalTokens - r.turnUsageBase.TotalTokens,
		},
		FaultsInjected: r.rec.Store().FaultsInjected() - r.turnFaultsBase,
	}
	r.results = append(r.results, tr)
	r.messages = append(r.messages, llm.UserMessage(input))
	if err == nil && response != "" {
		r.messages = append(r.messages, llm.AssistantMessage(response))
	}
	r.mu.Unlock()

	r.rec.RecordTurnEnd(ctx, turn, err == nil, tr.Duration)
	return tr
}
