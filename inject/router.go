package inject

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/zero-day-ai/chaos/fault"
	"github.com/zero-day-ai/chaos/llm"
)

// Option configures a Router.
type Option func(*Router)

// WithSeed makes every probability draw deterministic. Two routers built
// with the same faults and the same seed fire identically.
func WithSeed(seed int64) Option {
	return func(r *Router) {
		r.rng = rand.New(rand.NewSource(seed))
	}
}

// WithLogger sets the logger used for fault firing diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// Router dispatches configured faults to injection points and tracks run
// state. Each configured fault fires at most once per router; build a fresh
// router for each run.
type Router struct {
	mu sync.Mutex

	llmFaults     []*fault.Fault
	streamFaults  []*fault.Fault
	toolFaults    []*fault.Fault
	contextFaults []*fault.Fault
	inputFaults   []*fault.Fault

	fired map[*fault.Fault]bool

	callCount      int
	currentTurn    int
	completedTurns int

	rng    *rand.Rand
	logger *slog.Logger
}

// NewRouter validates the configured faults and classifies them by kind.
// Evaluation order within a kind follows configuration order.
func NewRouter(faults []fault.Fault, opts ...Option) (*Router, error) {
	r := &Router{
		fired:  make(map[*fault.Fault]bool),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for i := range faults {
		f := faults[i]
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("fault %d: %w", i, err)
		}
		switch f.Kind {
		case fault.KindLLMCall:
			r.llmFaults = append(r.llmFaults, &f)
		case fault.KindStream:
			r.streamFaults = append(r.streamFaults, &f)
		case fault.KindToolResult:
			r.toolFaults = append(r.toolFaults, &f)
		case fault.KindContext:
			r.contextFaults = append(r.contextFaults, &f)
		case fault.KindUserInput:
			r.inputFaults = append(r.inputFaults, &f)
		}
	}
	return r, nil
}

// IncrementCall advances the global call counter and returns the new
// 1-indexed value. The interception layer calls this once per outbound call,
// before any trigger evaluation for that call.
func (r *Router) IncrementCall() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callCount++
	return r.callCount
}

// CallCount returns the number of outbound calls observed so far.
func (r *Router) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callCount
}

// SetCurrentTurn marks a turn as in progress. Turn indices are 1-based;
// zero means between turns.
func (r *Router) SetCurrentTurn(turn int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentTurn = turn
}

// CurrentTurn returns the turn in progress, or 0 between turns.
func (r *Router) CurrentTurn() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentTurn
}

// CompleteTurn records the end of the current turn and returns to the
// between-turns state.
func (r *Router) CompleteTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentTurn > 0 {
		r.completedTurns++
		r.currentTurn = 0
	}
}

// CompletedTurns returns the number of turns that have finished.
func (r *Router) CompletedTurns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completedTurns
}

// Fired returns the faults that have fired so far, in no particular order.
func (r *Router) Fired() []*fault.Fault {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*fault.Fault, 0, len(r.fired))
	for f := range r.fired {
		out = append(out, f)
	}
	return out
}

// FiredCount returns how many configured faults have fired.
func (r *Router) FiredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

// HasToolFaults reports whether any tool-result faults are configured,
// letting the interception layer skip message rewriting entirely.
func (r *Router) HasToolFaults() bool {
	return len(r.toolFaults) > 0
}

// HasContextFaults reports whether any context faults are configured.
func (r *Router) HasContextFaults() bool {
	return len(r.contextFaults) > 0
}

func (r *Router) evalLocked(provider string) fault.Eval {
	return fault.Eval{
		CallIndex:      r.callCount,
		CurrentTurn:    r.currentTurn,
		CompletedTurns: r.completedTurns,
		Provider:       provider,
	}
}

// nextLocked returns the first unfired fault in fs whose trigger matches,
// marking it fired. Callers hold r.mu.
func (r *Router) nextLocked(fs []*fault.Fault, ev fault.Eval) *fault.Fault {
	for _, f := range fs {
		if r.fired[f] {
			continue
		}
		if f.Trigger.ShouldFire(ev, r.rng) {
			r.fired[f] = true
			r.logger.Debug("fault fired",
				"fault", f.String(),
				"call", ev.CallIndex,
				"turn", ev.CurrentTurn)
			return f
		}
	}
	return nil
}

// NextLLM evaluates LLM-call faults against the current counters. When one
// fires it is consumed and the raise outcome is returned along with the
// fault; otherwise the outcome proceeds and the fault is nil.
func (r *Router) NextLLM(provider string) (fault.Outcome, *fault.Fault) {
	r.mu.Lock()
	f := r.nextLocked(r.llmFaults, r.evalLocked(provider))
	r.mu.Unlock()
	if f == nil {
		return fault.Proceed(), nil
	}
	return f.ApplyLLM(provider), f
}

// NextTool evaluates tool-result faults for one embedded tool result. Tool
// name filters on the payload narrow candidates before trigger evaluation.
func (r *Router) NextTool(ctx context.Context, provider, toolName, result string) (fault.Outcome, *fault.Fault) {
	r.mu.Lock()
	ev := r.evalLocked(provider)
	var f *fault.Fault
	for _, c := range r.toolFaults {
		if r.fired[c] {
			continue
		}
		if c.Tool != nil && c.Tool.Tool != "" && c.Tool.Tool != toolName {
			continue
		}
		if c.Trigger.ShouldFire(ev, r.rng) {
			r.fired[c] = true
			r.logger.Debug("fault fired", "fault", c.String(), "tool", toolName, "call", ev.CallIndex)
			f = c
			break
		}
	}
	r.mu.Unlock()
	if f == nil {
		return fault.Proceed(), nil
	}
	return f.ApplyTool(ctx, toolName, result), f
}

// NextContext evaluates context faults against the outbound message history.
func (r *Router) NextContext(ctx context.Context, provider string, messages []llm.Message) (fault.Outcome, *fault.Fault) {
	r.mu.Lock()
	f := r.nextLocked(r.contextFaults, r.evalLocked(provider))
	r.mu.Unlock()
	if f == nil {
		return fault.Proceed(), nil
	}
	return f.ApplyContext(ctx, messages), f
}

// NextBoundary evaluates boundary-scoped context faults between turns. Only
// faults with a between-turns trigger participate; call-time context faults
// are left for the interception layer. No provider call is in flight at a
// boundary, so provider-filtered faults are skipped. The caller must be
// between turns (current turn zero) for anything to fire.
func (r *Router) NextBoundary(ctx context.Context, messages []llm.Message) (fault.Outcome, *fault.Fault) {
	r.mu.Lock()
	ev := r.evalLocked("")
	var f *fault.Fault
	for _, c := range r.contextFaults {
		if c.Trigger.BetweenTurns == nil || c.Trigger.Provider != "" || r.fired[c] {
			continue
		}
		if c.Trigger.ShouldFire(ev, r.rng) {
			r.fired[c] = true
			r.logger.Debug("fault fired", "fault", c.String(), "completed_turns", ev.CompletedTurns)
			f = c
			break
		}
	}
	r.mu.Unlock()
	if f == nil {
		return fault.Proceed(), nil
	}
	return f.ApplyContext(ctx, messages), f
}

// NextUserInput evaluates user-input faults against a resolved turn input.
// User input is mutated before any provider call, so no provider name is in
// scope.
func (r *Router) NextUserInput(ctx context.Context, input string) (fault.Outcome, *fault.Fault) {
	r.mu.Lock()
	f := r.nextLocked(r.inputFaults, r.evalLocked(""))
	r.mu.Unlock()
	if f == nil {
		return fault.Proceed(), nil
	}
	return f.ApplyUserInput(ctx, input), f
}
