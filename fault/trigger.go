package fault

import (
	"fmt"
	"math/rand"
)

// TurnRange is a half-open window over completed turns, used by
// between-turns triggers. After is the number of turns that must have
// completed; Before is the exclusive ceiling.
type TurnRange struct {
	After  int
	Before int
}

// Trigger decides when a configured fault fires. All dimensions are optional;
// the zero value never fires. Call-dimension and turn-dimension conditions,
// when both present, combine with logical AND. The provider filter is applied
// before everything else.
type Trigger struct {
	// OnCall fires on an exact global call index (1-indexed). Zero = unset.
	OnCall int

	// AfterCalls fires once the call index exceeds this threshold. Zero = unset.
	AfterCalls int

	// OnTurn fires on an exact turn index (1-indexed). Zero = unset.
	OnTurn int

	// AfterTurns fires once this many turns have completed. Zero = unset.
	AfterTurns int

	// BetweenTurns fires only at a turn boundary (current turn == 0) within
	// the given completed-turn window.
	BetweenTurns *TurnRange

	// Probability gates firing with a Bernoulli draw in [0,1]. Nil = unset.
	// On its own it is the only condition; combined with turn conditions it
	// gates their resolution.
	Probability *float64

	// Provider restricts firing to one provider name. Empty = any.
	Provider string

	// Always fires on every opportunity (still subject to Provider).
	Always bool
}

// Eval carries the run counters a trigger is evaluated against.
type Eval struct {
	// CallIndex is the global 1-indexed outbound call number.
	CallIndex int

	// CurrentTurn is the 1-indexed turn in progress, or 0 when the caller
	// is between turns.
	CurrentTurn int

	// CompletedTurns is the number of turns that have finished.
	CompletedTurns int

	// Provider is the name of the provider being called.
	Provider string
}

// Validate rejects malformed trigger configuration. Errors surface at
// configuration time, never at fire time.
func (t Trigger) Validate() error {
	if t.Probability != nil && (*t.Probability < 0.0 || *t.Probability > 1.0) {
		return fmt.Errorf("probability %v out of range [0.0, 1.0]", *t.Probability)
	}
	for _, c := range []struct {
		name  string
		value int
	}{
		{"on_call", t.OnCall},
		{"after_calls", t.AfterCalls},
		{"on_turn", t.OnTurn},
		{"after_turns", t.AfterTurns},
	} {
		if c.value < 0 {
			return fmt.Errorf("%s must be >= 1, got %d", c.name, c.value)
		}
	}
	if t.BetweenTurns != nil {
		if t.BetweenTurns.After < 1 {
			return fmt.Errorf("between_turns lower bound must be >= 1, got %d", t.BetweenTurns.After)
		}
		if t.BetweenTurns.Before <= t.BetweenTurns.After {
			return fmt.Errorf("between_turns upper bound %d must exceed lower bound %d",
				t.BetweenTurns.Before, t.BetweenTurns.After)
		}
	}
	return nil
}

// IsZero reports whether no dimension is set. A zero trigger never fires.
func (t Trigger) IsZero() bool {
	return t.OnCall == 0 && t.AfterCalls == 0 && t.OnTurn == 0 && t.AfterTurns == 0 &&
		t.BetweenTurns == nil && t.Probability == nil && t.Provider == "" && !t.Always
}

// ShouldFire evaluates the trigger against the given counters. rng feeds the
// probability gate and may be nil when no Probability is set. Evaluation is
// pure: it never mutates the trigger or the counters.
//
// Evaluation order: provider filter, always, exact turn, after-turns,
// between-turns, exact call, after-calls, bare probability. A turn condition
// combined with a call condition resolves as the AND of both; a turn
// condition alone resolves immediately, gated by probability if one is set.
func (t Trigger) ShouldFire(ev Eval, rng *rand.Rand) bool {
	if t.Provider != "" && ev.Provider != t.Provider {
		return false
	}
	if t.Always {
		return true
	}

	if t.OnTurn > 0 {
		if ev.CurrentTurn != t.OnTurn {
			return false
		}
		if t.OnCall == 0 && t.AfterCalls == 0 {
			return t.drawOrFire(rng)
		}
	}

	if t.AfterTurns > 0 {
		if ev.CompletedTurns < t.AfterTurns {
			return false
		}
		if t.OnCall == 0 && t.AfterCalls == 0 && t.OnTurn == 0 {
			return t.drawOrFire(rng)
		}
	}

	if t.BetweenTurns != nil {
		// Only evaluated at turn boundaries, never mid-turn.
		if ev.CurrentTurn != 0 {
			return false
		}
		if ev.CompletedTurns < t.BetweenTurns.After || ev.CompletedTurns >= t.BetweenTurns.Before {
			return false
		}
		return t.drawOrFire(rng)
	}

	if t.OnCall > 0 {
		return ev.CallIndex == t.OnCall
	}

	if t.AfterCalls > 0 {
		return ev.CallIndex > t.AfterCalls
	}

	if t.Probability != nil {
		return draw(rng) < *t.Probability
	}

	return false
}

// drawOrFire resolves a turn condition that has already matched: gated by
// probability when one is set, otherwise an unconditional fire.
func (t Trigger) drawOrFire(rng *rand.Rand) bool {
	if t.Probability != nil {
		return draw(rng) < *t.Probability
	}
	return true
}

func draw(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}

// String summarizes the configured dimensions for event logs.
func (t Trigger) String() string {
	switch {
	case t.Always:
		return "always"
	case t.OnCall > 0 && t.OnTurn > 0:
		return fmt.Sprintf("on turn %d, call %d", t.OnTurn, t.OnCall)
	case t.OnCall > 0:
		return fmt.Sprintf("on call %d", t.OnCall)
	case t.AfterCalls > 0:
		return fmt.Sprintf("after %d calls", t.AfterCalls)
	case t.OnTurn > 0:
		return fmt.Sprintf("on turn %d", t.OnTurn)
	case t.AfterTurns > 0:
		return fmt.Sprintf("after %d turns", t.AfterTurns)
	case t.BetweenTurns != nil:
		return fmt.Sprintf("between turns %d and %d", t.BetweenTurns.After, t.BetweenTurns.Before)
	case t.Probability != nil:
		return fmt.Sprintf("p=%.2f", *t.Probability)
	default:
		return "never"
	}
}
