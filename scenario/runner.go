package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/chaos/events"
	"github.com/zero-day-ai/chaos/inject"
	"github.com/zero-day-ai/chaos/intercept"
	"github.com/zero-day-ai/chaos/llm"
	"github.com/zero-day-ai/chaos/metrics"
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithProvider sets the base provider scenarios run against. Without it the
// runner uses llm.Default.
func WithProvider(p llm.Provider) RunnerOption {
	return func(r *Runner) {
		r.provider = p
	}
}

// WithSink sets the event sink shared by every run. The runner does not
// close it.
func WithSink(sink events.Sink) RunnerOption {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSeed makes probability-gated triggers deterministic across runs.
func WithSeed(seed int64) RunnerOption {
	return func(r *Runner) {
		r.seed = &seed
	}
}

// WithTracer mirrors runs as OpenTelemetry spans.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = tracer
	}
}

// WithMeter mirrors run observations as OpenTelemetry metrics.
func WithMeter(meter metric.Meter) RunnerOption {
	return func(r *Runner) {
		r.meter = meter
	}
}

// Runner executes scenarios. Each run gets a fresh router and recorder;
// only the provider, sink, and seed are shared.
type Runner struct {
	provider llm.Provider
	sink     events.Sink
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	seed     *int64
}

// NewRunner builds a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one scenario. The returned error covers configuration
// problems only; a scenario that ran and failed its assertions comes back
// with Passed == false and a nil error.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	base := r.provider
	if base == nil {
		base = llm.Default()
	}
	if base == nil {
		return nil, fmt.Errorf("scenario %s: no provider configured and no default set", s.Name)
	}

	faults, err := s.buildFaults()
	if err != nil {
		return nil, err
	}

	var routerOpts []inject.Option
	if r.seed != nil {
		routerOpts = append(routerOpts, inject.WithSeed(*r.seed))
	}
	routerOpts = append(routerOpts, inject.WithLogger(r.logger))
	router, err := inject.NewRouter(faults, routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	recOpts := []metrics.RecorderOption{metrics.WithLogger(r.logger)}
	if r.sink != nil {
		recOpts = append(recOpts, metrics.WithSink(r.sink))
	}
	if r.tracer != nil {
		recOpts = append(recOpts, metrics.WithTracer(r.tracer))
	}
	if r.meter != nil {
		recOpts = append(recOpts, metrics.WithMeter(r.meter))
	}
	rec, err := metrics.NewRecorder(recOpts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	var interceptOpts []intercept.Option
	if len(s.Providers) > 0 {
		interceptOpts = append(interceptOpts, intercept.WithProviders(s.Providers...))
	}
	interceptOpts = append(interceptOpts, intercept.WithLogger(r.logger))
	wrapped := intercept.Wrap(base, router, rec, interceptOpts...)

	run := &Run{
		scenario: s,
		router:   router,
		rec:      rec,
		provider: wrapped,
	}

	variant := s.Name
	parent := s.Parent
	if parent == "" {
		parent = s.Name
	}
	ctx = rec.StartTrace(ctx, parent, variant, r.seed)
	ctx = NewContext(ctx, run)

	r.logger.Info("scenario starting", "scenario", variant, "turns", len(s.Turns), "faults", len(faults))
	started := time.Now()

	var runErr error
	for i, turn := range s.Turns {
		n := i + 1

		// Boundary faults fire between turns, before the next one opens.
		if out, f := router.NextBoundary(ctx, run.MessageHistory()); f != nil {
			rec.RecordFault(ctx, f, router.CallCount(), 0, "")
			run.setMessages(out.Messages)
		}

		run.startTurn(ctx, n)

		input, dynamic, inputErr := resolveInput(turn, run.History())
		if inputErr != nil {
			tr := run.endTurn(ctx, n, input, "", dynamic, inputErr)
			runErr = fmt.Errorf("turn %d input: %w", n, tr.Err)
			break
		}

		if out, f := router.NextUserInput(ctx, input); f != nil {
			rec.RecordFault(ctx, f, router.CallCount(), n, "")
			input = out.Text
		}

		response, agentErr := callAgent(ctx, s.Agent, run, input)
		tr := run.endTurn(ctx, n, input, response, dynamic, agentErr)
		if agentErr != nil {
			runErr = fmt.Errorf("turn %d: %w", n, tr.Err)
			break
		}
	}

	result := &Result{
		Scenario:  variant,
		Parent:    s.Parent,
		Baseline:  s.baseline,
		Seed:      r.seed,
		TurnCount: len(s.Turns),
		Turns:     run.History(),
		Err:       runErr,
		Duration:  time.Since(started),
		store:     rec.Store(),
	}
	r.score(s, result)

	rec.EndTrace(ctx, result.Passed, runErr)
	r.logger.Info("scenario finished",
		"scenario", variant,
		"passed", result.Passed,
		"turns", len(result.Turns),
		"faults", result.Store().FaultsInjected(),
		"duration", result.Duration)
	return result, nil
}

// RunAll executes scenarios in order and collects a report. The first
// configuration error aborts the batch.
func (r *Runner) RunAll(ctx context.Context, scenarios ...*Scenario) (*Report, error) {
	report := &Report{}
	for _, s := range scenarios {
		result, err := r.Run(ctx, s)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}

// score evaluates run assertions and per-turn checks, recording failures.
// A panicking assertion counts as a failure, never a crash.
func (r *Runner) score(s *Scenario, result *Result) {
	allowsError := false
	for _, a := range s.Assertions {
		if a.AllowsError {
			allowsError = true
		}
		if err := checkSafely(a, result); err != nil {
			result.Failures = append(result.Failures,
				fmt.Sprintf("%s: %v", a.Name, err))
		}
	}

	for i, turn := range s.Turns {
		if i >= len(result.Turns) {
			break
		}
		for _, check := range turn.Checks {
			if err := checkTurnSafely(check, result.Turns[i]); err != nil {
				result.Failures = append(result.Failures,
					fmt.Sprintf("turn %d %s: %v", i+1, check.Name, err))
			}
		}
	}

	result.Passed = len(result.Failures) == 0 && (result.Err == nil || allowsError)
}

func checkSafely(a Assertion, result *Result) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("assertion panicked: %v", v)
		}
	}()
	return a.Check(result)
}

func checkTurnSafely(c TurnCheck, tr TurnResult) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("check panicked: %v", v)
		}
	}()
	return c.Check(tr)
}

func resolveInput(turn Turn, history []TurnResult) (string, bool, error) {
	if turn.InputFunc == nil {
		return turn.Input, false, nil
	}
	input, err := turn.InputFunc(history)
	return input, true, err
}

func callAgent(ctx context.Context, agent AgentFunc, run *Run, input string) (response string, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("agent panicked: %v", v)
		}
	}()
	return agent(ctx, run, input)
}
