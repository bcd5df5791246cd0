package scenario

import (
	"context"
	"fmt"

	"github.com/zero-day-ai/chaos/fault"
)

// AgentFunc is the system under test: it receives the (possibly mutated)
// user input, drives whatever provider calls it wants through run.Provider
// or llm.Default, and returns its final response for the turn.
type AgentFunc func(ctx context.Context, run *Run, input string) (string, error)

// Scenario is a conversation plus the assertions that score it. A baseline
// carries no faults and serves as the control; variants derive from it and
// layer faults on top.
type Scenario struct {
	Name        string
	Description string

	Agent AgentFunc
	Turns []Turn

	// Faults apply run-wide, on top of any per-turn faults.
	Faults []*fault.Builder

	// Providers restricts interception to the named providers. Empty means
	// every provider is intercepted.
	Providers []string

	Assertions []Assertion

	Tags []string
	Meta map[string]string

	// Parent names the baseline a variant derives from.
	Parent string

	baseline bool
}

// Baseline defines the no-fault control scenario. Variants are derived from
// it with Variant.
func Baseline(name string, agent AgentFunc, turns ...Turn) *Scenario {
	return &Scenario{
		Name:     name,
		Agent:    agent,
		Turns:    turns,
		baseline: true,
	}
}

// Single defines a baseline with one implicit turn.
func Single(name string, agent AgentFunc, input string) *Scenario {
	return Baseline(name, agent, Say(input))
}

// IsBaseline reports whether the scenario is a no-fault control.
func (s *Scenario) IsBaseline() bool {
	return s.baseline
}

// Validate checks the scenario is runnable.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if s.Agent == nil {
		return fmt.Errorf("scenario %s has no agent", s.Name)
	}
	if len(s.Turns) == 0 {
		return fmt.Errorf("scenario %s has no turns", s.Name)
	}
	for i, turn := range s.Turns {
		if turn.Input == "" && turn.InputFunc == nil {
			return fmt.Errorf("scenario %s turn %d has neither input nor input func", s.Name, i+1)
		}
		if turn.Input != "" && turn.InputFunc != nil {
			return fmt.Errorf("scenario %s turn %d has both input and input func", s.Name, i+1)
		}
	}
	if s.baseline && (len(s.Faults) > 0 || s.turnsHaveFaults()) {
		return fmt.Errorf("baseline %s must not carry faults", s.Name)
	}
	return nil
}

func (s *Scenario) turnsHaveFaults() bool {
	for _, turn := range s.Turns {
		if len(turn.Faults) > 0 {
			return true
		}
	}
	return false
}

// VariantOption configures a derived scenario.
type VariantOption func(*Scenario) error

// WithFaults layers run-wide faults onto the variant.
func WithFaults(builders ...*fault.Builder) VariantOption {
	return func(v *Scenario) error {
		v.Faults = append(v.Faults, builders...)
		return nil
	}
}

// At layers faults onto one turn (1-based). Built faults without a turn
// dimension are pinned to that turn at run time.
func At(turn int, builders ...*fault.Builder) VariantOption {
	return func(v *Scenario) error {
		if turn < 1 || turn > len(v.Turns) {
			return fmt.Errorf("At(%d): scenario has %d turns", turn, len(v.Turns))
		}
		t := v.Turns[turn-1]
		t.Faults = append(append([]*fault.Builder(nil), t.Faults...), builders...)
		v.Turns[turn-1] = t
		return nil
	}
}

// WithAssertions adds assertions on top of the baseline's.
func WithAssertions(assertions ...Assertion) VariantOption {
	return func(v *Scenario) error {
		v.Assertions = append(v.Assertions, assertions...)
		return nil
	}
}

// WithCheckAt adds per-turn checks to one turn (1-based).
func WithCheckAt(turn int, checks ...TurnCheck) VariantOption {
	return func(v *Scenario) error {
		if turn < 1 || turn > len(v.Turns) {
			return fmt.Errorf("WithCheckAt(%d): scenario has %d turns", turn, len(v.Turns))
		}
		t := v.Turns[turn-1]
		t.Checks = append(append([]TurnCheck(nil), t.Checks...), checks...)
		v.Turns[turn-1] = t
		return nil
	}
}

// WithDescription sets the variant description.
func WithDescription(desc string) VariantOption {
	return func(v *Scenario) error {
		v.Description = desc
		return nil
	}
}

// WithProviders restricts interception to the named providers.
func WithProviders(names ...string) VariantOption {
	return func(v *Scenario) error {
		v.Providers = append(v.Providers, names...)
		return nil
	}
}

// WithTags tags the variant for filtering in reports.
func WithTags(tags ...string) VariantOption {
	return func(v *Scenario) error {
		v.Tags = append(v.Tags, tags...)
		return nil
	}
}

// Variant derives a chaos scenario from a baseline: same agent, same turns,
// same assertions, plus whatever the options layer on. Only baselines can be
// derived from.
func (s *Scenario) Variant(name string, opts ...VariantOption) (*Scenario, error) {
	if !s.baseline {
		return nil, fmt.Errorf("variant %s: %s is not a baseline", name, s.Name)
	}

	v := &Scenario{
		Name:        name,
		Description: s.Description,
		Agent:       s.Agent,
		Turns:       cloneTurns(s.Turns),
		Faults:      append([]*fault.Builder(nil), s.Faults...),
		Providers:   append([]string(nil), s.Providers...),
		Assertions:  append([]Assertion(nil), s.Assertions...),
		Tags:        append([]string(nil), s.Tags...),
		Parent:      s.Name,
	}
	if s.Meta != nil {
		v.Meta = make(map[string]string, len(s.Meta))
		for k, val := range s.Meta {
			v.Meta[k] = val
		}
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("variant %s: %w", name, err)
		}
	}
	return v, nil
}

// MustVariant is Variant for static scenario tables; it panics on error.
func (s *Scenario) MustVariant(name string, opts ...VariantOption) *Scenario {
	v, err := s.Variant(name, opts...)
	if err != nil {
		panic(err)
	}
	return v
}

func cloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		c := t
		c.Faults = append([]*fault.Builder(nil), t.Faults...)
		c.Checks = append([]TurnCheck(nil), t.Checks...)
		out[i] = c
	}
	return out
}

// buildFaults resolves every configured builder into a fault, pinning
// turn-scoped faults that lack a turn dimension to their turn.
func (s *Scenario) buildFaults() ([]fault.Fault, error) {
	faults, err := fault.BuildAll(s.Faults...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	for i, turn := range s.Turns {
		built, err := fault.BuildAll(turn.Faults...)
		if err != nil {
			return nil, fmt.Errorf("scenario %s turn %d: %w", s.Name, i+1, err)
		}
		for _, f := range built {
			if f.Trigger.OnTurn == 0 && f.Trigger.AfterTurns == 0 && f.Trigger.BetweenTurns == nil {
				f.Trigger.OnTurn = i + 1
			}
			faults = append(faults, f)
		}
	}
	return faults, nil
}
