package chaos

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/chaos/events"
	"github.com/zero-day-ai/chaos/fault"
	"github.com/zero-day-ai/chaos/inject"
	"github.com/zero-day-ai/chaos/intercept"
	"github.com/zero-day-ai/chaos/llm"
	"github.com/zero-day-ai/chaos/metrics"
)

// Option configures a session.
type Option func(*sessionConfig)

type sessionConfig struct {
	provider  llm.Provider
	providers []string
	faults    []*fault.Builder
	sink      events.Sink
	logPath   string
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	seed      *int64
	install   bool
}

// WithProvider sets the base provider to intercept. Without it the session
// intercepts the process default.
func WithProvider(p llm.Provider) Option {
	return func(c *sessionConfig) {
		c.provider = p
	}
}

// WithProviderFilter restricts interception to the named providers.
func WithProviderFilter(names ...string) Option {
	return func(c *sessionConfig) {
		c.providers = append(c.providers, names...)
	}
}

// WithFaults configures the faults the session injects.
func WithFaults(builders ...*fault.Builder) Option {
	return func(c *sessionConfig) {
		c.faults = append(c.faults, builders...)
	}
}

// WithSink sets the event sink. The session does not close it.
func WithSink(sink events.Sink) Option {
	return func(c *sessionConfig) {
		c.sink = sink
	}
}

// WithEventLog writes the session's events to a JSONL file the session owns
// and closes.
func WithEventLog(path string) Option {
	return func(c *sessionConfig) {
		c.logPath = path
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithTracer mirrors the session as OpenTelemetry spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *sessionConfig) {
		c.tracer = tracer
	}
}

// WithMeter mirrors session observations as OpenTelemetry metrics.
func WithMeter(meter metric.Meter) Option {
	return func(c *sessionConfig) {
		c.meter = meter
	}
}

// WithSeed makes probability-gated triggers deterministic.
func WithSeed(seed int64) Option {
	return func(c *sessionConfig) {
		c.seed = &seed
	}
}

// WithInstall makes the session take over the process-default provider slot
// until Close, so code that resolves its provider through llm.Default runs
// under chaos without changes.
func WithInstall() Option {
	return func(c *sessionConfig) {
		c.install = true
	}
}

// Session is a scoped chaos context for single-shot use: it wraps a provider
// with the configured faults and records what happens until Close.
type Session struct {
	name     string
	provider llm.Provider
	router   *inject.Router
	rec      *metrics.Recorder
	scope    *intercept.Scope
	ctx      context.Context
	ownsSink bool

	mu     sync.Mutex
	closed bool
}

// Open builds a session around the configured provider. Close restores
// everything the session changed, on success and failure paths alike.
func Open(name string, opts ...Option) (*Session, error) {
	cfg := &sessionConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	base := cfg.provider
	if base == nil {
		base = llm.Default()
	}
	if base == nil {
		return nil, ErrNoProvider
	}

	faults, err := fault.BuildAll(cfg.faults...)
	if err != nil {
		return nil, fmt.Errorf("chaos: %w", err)
	}

	var routerOpts []inject.Option
	if cfg.seed != nil {
		routerOpts = append(routerOpts, inject.WithSeed(*cfg.seed))
	}
	routerOpts = append(routerOpts, inject.WithLogger(cfg.logger))
	router, err := inject.NewRouter(faults, routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("chaos: %w", err)
	}

	sink := cfg.sink
	ownsSink := false
	if cfg.logPath != "" {
		jsonl, err := events.NewJSONL(cfg.logPath)
		if err != nil {
			return nil, fmt.Errorf("chaos: %w", err)
		}
		ownsSink = true
		if sink != nil {
			sink = events.NewMulti(sink, jsonl)
		} else {
			sink = jsonl
		}
	}

	recOpts := []metrics.RecorderOption{metrics.WithLogger(cfg.logger)}
	if sink != nil {
		recOpts = append(recOpts, metrics.WithSink(sink))
	}
	if cfg.tracer != nil {
		recOpts = append(recOpts, metrics.WithTracer(cfg.tracer))
	}
	if cfg.meter != nil {
		recOpts = append(recOpts, metrics.WithMeter(cfg.meter))
	}
	rec, err := metrics.NewRecorder(recOpts...)
	if err != nil {
		return nil, fmt.Errorf("chaos: %w", err)
	}

	var interceptOpts []intercept.Option
	if len(cfg.providers) > 0 {
		interceptOpts = append(interceptOpts, intercept.WithProviders(cfg.providers...))
	}
	interceptOpts = append(interceptOpts, intercept.WithLogger(cfg.logger))

	s := &Session{
		name:     name,
		router:   router,
		rec:      rec,
		ownsSink: ownsSink,
	}

	if cfg.install {
		scope, err := intercept.Install(base, router, rec, interceptOpts...)
		if err != nil {
			if ownsSink {
				rec.Close()
			}
			return nil, err
		}
		s.scope = scope
		s.provider = scope.Provider()
	} else {
		s.provider = intercept.Wrap(base, router, rec, interceptOpts...)
	}

	s.ctx = rec.StartTrace(context.Background(), name, name, cfg.seed)
	return s, nil
}

// Provider returns the intercepted provider.
func (s *Session) Provider() llm.Provider {
	return s.provider
}

// Context returns the session's trace context. Calls made with a context
// derived from it nest their spans under the session's root span when a
// tracer is configured.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

// Metrics exposes the session's call and fault records.
func (s *Session) Metrics() *metrics.Store {
	return s.rec.Store()
}

// FaultsInjected reports how many configured faults have fired so far.
func (s *Session) FaultsInjected() int {
	return s.router.FiredCount()
}

// Close ends the trace, restores the default provider slot if the session
// took it, and closes any sink the session owns. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.rec.EndTrace(s.ctx, true, nil)
	if s.scope != nil {
		s.scope.Close()
	}
	if s.ownsSink {
		return s.rec.Close()
	}
	return nil
}
