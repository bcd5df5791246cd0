package fault

import "fmt"

// Builder is the fluent configuration surface for faults:
//
//	fault.LLMRateLimit().OnTurn(2).WithProbability(0.5).ForProvider("anthropic")
//
// Builders are resolved eagerly via Build before the router classifies
// faults, so configuration errors surface at build time.
type Builder struct {
	fault Fault
	err   error
}

func newBuilder(f Fault) *Builder {
	return &Builder{fault: f}
}

// fail records the first configuration error; later calls keep it.
func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
	return b
}

// OnCall triggers the fault on an exact global call number (1-indexed).
func (b *Builder) OnCall(n int) *Builder {
	if n < 1 {
		return b.fail("%s: on_call must be >= 1, got %d", b.fault.Label, n)
	}
	b.fault.Trigger.OnCall = n
	return b
}

// AfterCalls triggers the fault once more than n calls have been made.
func (b *Builder) AfterCalls(n int) *Builder {
	if n < 1 {
		return b.fail("%s: after_calls must be >= 1, got %d", b.fault.Label, n)
	}
	b.fault.Trigger.AfterCalls = n
	return b
}

// OnTurn triggers the fault on an exact turn number (1-indexed).
func (b *Builder) OnTurn(n int) *Builder {
	if n < 1 {
		return b.fail("%s: on_turn must be >= 1, got %d", b.fault.Label, n)
	}
	b.fault.Trigger.OnTurn = n
	return b
}

// AfterTurns triggers the fault once n turns have completed.
func (b *Builder) AfterTurns(n int) *Builder {
	if n < 1 {
		return b.fail("%s: after_turns must be >= 1, got %d", b.fault.Label, n)
	}
	b.fault.Trigger.AfterTurns = n
	return b
}

// BetweenTurns triggers the fault at a turn boundary once at least a turns
// have completed and fewer than before have. The window is half-open:
// [after, before).
func (b *Builder) BetweenTurns(after, before int) *Builder {
	b.fault.Trigger.BetweenTurns = &TurnRange{After: after, Before: before}
	return b
}

// WithProbability gates the trigger with a Bernoulli draw (0.0 to 1.0). The
// draw applies to turn-resolved conditions and to a bare probability trigger;
// exact-call and after-call conditions are deterministic and ignore it.
func (b *Builder) WithProbability(p float64) *Builder {
	if p < 0.0 || p > 1.0 {
		return b.fail("%s: probability %v out of range [0.0, 1.0]", b.fault.Label, p)
	}
	b.fault.Trigger.Probability = &p
	return b
}

// ForProvider restricts the fault to one provider name. Provider filtering
// applies at call time only; a between-turns fault combined with ForProvider
// never fires, because no provider call is in flight at a turn boundary.
func (b *Builder) ForProvider(provider string) *Builder {
	b.fault.Trigger.Provider = provider
	return b
}

// ForTool scopes a tool fault to one tool name.
func (b *Builder) ForTool(name string) *Builder {
	if b.fault.Kind != KindToolResult {
		return b.fail("%s: ForTool applies only to tool faults", b.fault.Label)
	}
	b.fault.Tool.Tool = name
	return b
}

// Always makes the fault eligible on every call.
func (b *Builder) Always() *Builder {
	b.fault.Trigger.Always = true
	return b
}

// Build resolves the builder into an immutable, validated Fault.
func (b *Builder) Build() (Fault, error) {
	if b.err != nil {
		return Fault{}, b.err
	}
	if err := b.fault.Validate(); err != nil {
		return Fault{}, err
	}
	return b.fault, nil
}

// MustBuild is Build for statically known-good configuration; it panics on
// error.
func (b *Builder) MustBuild() Fault {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}

// BuildAll resolves a builder list in order, stopping at the first error.
func BuildAll(builders ...*Builder) ([]Fault, error) {
	faults := make([]Fault, 0, len(builders))
	for _, b := range builders {
		f, err := b.Build()
		if err != nil {
			return nil, err
		}
		faults = append(faults, f)
	}
	return faults, nil
}
