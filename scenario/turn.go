package scenario

import (
	"time"

	"github.com/zero-day-ai/chaos/fault"
	"github.com/zero-day-ai/chaos/llm"
)

// Turn is one user message in a scenario conversation. Input is fixed text;
// InputFunc computes the input from the turns so far, letting later turns
// react to earlier responses. Exactly one of the two must be set.
type Turn struct {
	Input     string
	InputFunc func(history []TurnResult) (string, error)

	// Faults are layered onto this turn by variants. A fault whose trigger
	// has no turn dimension is pinned to this turn when the run is built.
	Faults []*fault.Builder

	// Checks run against this turn's result after the run completes.
	Checks []TurnCheck
}

// Say builds a fixed-input turn.
func Say(input string) Turn {
	return Turn{Input: input}
}

// Dynamic builds a turn whose input is computed from the run history.
func Dynamic(fn func(history []TurnResult) (string, error)) Turn {
	return Turn{InputFunc: fn}
}

// TurnResult records what one turn did.
type TurnResult struct {
	// Turn is the 1-based turn index.
	Turn int

	// Input is the resolved input after any user-input fault mutated it.
	Input string

	Response string
	Err      error
	Success  bool
	Duration time.Duration

	// Dynamic marks turns whose input came from an InputFunc.
	Dynamic bool

	// LLMCalls and Usage are this turn's deltas, not running totals.
	LLMCalls int
	Usage    llm.TokenUsage

	// FaultsInjected counts faults that fired during this turn.
	FaultsInjected int
}

// TurnCheck is a per-turn assertion.
type TurnCheck struct {
	Name  string
	Check func(tr TurnResult) error
}
