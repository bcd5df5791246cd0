package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/chaos/events"
	"github.com/zero-day-ai/chaos/fault"
	"github.com/zero-day-ai/chaos/llm"
)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithSink sets the event sink. Defaults to discarding events.
func WithSink(sink events.Sink) RecorderOption {
	return func(r *Recorder) {
		r.sink = sink
	}
}

// WithStore sets the backing store. Defaults to a fresh store.
func WithStore(store *Store) RecorderOption {
	return func(r *Recorder) {
		r.store = store
	}
}

// WithTracer mirrors calls and faults as OpenTelemetry spans.
func WithTracer(tracer trace.Tracer) RecorderOption {
	return func(r *Recorder) {
		r.tracer = tracer
	}
}

// WithMeter mirrors observations as OpenTelemetry metric instruments.
func WithMeter(meter metric.Meter) RecorderOption {
	return func(r *Recorder) {
		r.meter = meter
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// otelInstruments holds the metric instruments, created once per recorder.
type otelInstruments struct {
	callDuration metric.Float64Histogram
	callCount    metric.Int64Counter
	faultCount   metric.Int64Counter
	ttft         metric.Float64Histogram
}

type activeCall struct {
	provider string
	model    string
	turn     int
	call     int
	start    time.Time
	ttft     time.Duration
	chunks   int
	streamed bool
	span     trace.Span
}

// Recorder funnels run observations to the store, the event sink, and the
// optional OpenTelemetry providers. It is safe for concurrent use.
type Recorder struct {
	sink   events.Sink
	store  *Store
	tracer trace.Tracer
	meter  metric.Meter
	logger *slog.Logger

	instruments *otelInstruments

	mu        sync.Mutex
	traceID   string
	scenario  string
	variant   string
	rootSpan  trace.Span
	active    map[string]*activeCall
	traceFrom time.Time
}

// NewRecorder builds a recorder. Without options it records to a fresh store
// and discards events.
func NewRecorder(opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		sink:   events.Nop{},
		logger: slog.Default(),
		active: make(map[string]*activeCall),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = NewStore()
	}
	if r.meter != nil {
		inst, err := initInstruments(r.meter)
		if err != nil {
			return nil, err
		}
		r.instruments = inst
	}
	return r, nil
}

func initInstruments(meter metric.Meter) (*otelInstruments, error) {
	inst := &otelInstruments{}
	var err error

	inst.callDuration, err = meter.Float64Histogram(
		"chaos.call.duration",
		metric.WithDescription("Provider call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create call duration histogram: %w", err)
	}

	inst.callCount, err = meter.Int64Counter(
		"chaos.call.count",
		metric.WithDescription("Number of provider calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create call counter: %w", err)
	}

	inst.faultCount, err = meter.Int64Counter(
		"chaos.fault.count",
		metric.WithDescription("Number of faults injected"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fault counter: %w", err)
	}

	inst.ttft, err = meter.Float64Histogram(
		"chaos.stream.ttft",
		metric.WithDescription("Time to first token in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ttft histogram: %w", err)
	}

	return inst, nil
}

// Store returns the backing store.
func (r *Recorder) Store() *Store {
	return r.store
}

// TraceID returns the identifier of the trace in progress, empty before
// StartTrace.
func (r *Recorder) TraceID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.traceID
}

// emit forwards an event to the sink. Sink failures are logged, never
// propagated: observability must not change run behavior.
func (r *Recorder) emit(e events.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.TraceID == "" {
		e.TraceID = r.TraceID()
	}
	if err := r.sink.Emit(e); err != nil {
		r.logger.Warn("event sink emit failed", "type", e.Type, "error", err)
	}
}

// StartTrace opens the run trace and returns a context carrying the root
// span when a tracer is configured.
func (r *Recorder) StartTrace(ctx context.Context, scenario, variant string, seed *int64) context.Context {
	r.mu.Lock()
	r.traceID = uuid.New().String()
	r.scenario = scenario
	r.variant = variant
	r.traceFrom = time.Now().UTC()
	traceID := r.traceID
	r.mu.Unlock()

	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "chaos.run",
			trace.WithAttributes(
				attribute.String("chaos.scenario", scenario),
				attribute.String("chaos.variant", variant),
			))
		r.mu.Lock()
		r.rootSpan = span
		r.mu.Unlock()
	}

	r.emit(events.Event{
		Type:     events.TypeTraceStart,
		TraceID:  traceID,
		Scenario: scenario,
		Variant:  variant,
		Seed:     seed,
	})
	return ctx
}

// EndTrace closes the run trace.
func (r *Recorder) EndTrace(ctx context.Context, success bool, runErr error) {
	r.mu.Lock()
	span := r.rootSpan
	r.rootSpan = nil
	elapsed := time.Since(r.traceFrom)
	r.mu.Unlock()

	e := events.Event{
		Type:       events.TypeTraceEnd,
		Success:    events.Bool(success),
		DurationMS: float64(elapsed.Milliseconds()),
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	r.emit(e)

	if span != nil {
		if success {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetStatus(codes.Error, "run failed")
			if runErr != nil {
				span.RecordError(runErr)
			}
		}
		span.End()
	}
}

// StartCall registers an outbound provider call and returns its ID plus a
// context carrying the call span.
func (r *Recorder) StartCall(ctx context.Context, provider, model string, call, turn int) (context.Context, string) {
	id := uuid.New().String()
	ac := &activeCall{
		provider: provider,
		model:    model,
		call:     call,
		turn:     turn,
		start:    time.Now().UTC(),
	}

	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "chaos.call",
			trace.WithAttributes(
				attribute.String("llm.provider", provider),
				attribute.Int("chaos.call", call),
				attribute.Int("chaos.turn", turn),
			))
		ac.span = span
	}

	r.mu.Lock()
	r.active[id] = ac
	r.mu.Unlock()

	r.emit(events.Event{
		Type:     events.TypeCallStart,
		CallID:   id,
		Provider: provider,
		Model:    model,
		Call:     call,
		Turn:     turn,
	})
	return ctx, id
}

// EndCall completes a call started with StartCall, recording latency, status
// and token usage. Unknown IDs are ignored.
func (r *Recorder) EndCall(ctx context.Context, id string, callErr error, usage *llm.TokenUsage) {
	r.mu.Lock()
	ac, ok := r.active[id]
	if ok {
		delete(r.active, id)
	}
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("end of unknown call", "call_id", id)
		return
	}

	latency := time.Since(ac.start)
	rec := CallRecord{
		ID:       id,
		Provider: ac.provider,
		Model:    ac.model,
		Call:     ac.call,
		Turn:     ac.turn,
		Start:    ac.start,
		Latency:  latency,
		Success:  callErr == nil,
		Streamed: ac.streamed,
		TTFT:     ac.ttft,
		Chunks:   ac.chunks,
	}
	if callErr != nil {
		rec.Err = callErr.Error()
	}
	if usage != nil {
		rec.Usage = *usage
	}
	r.store.RecordCall(rec)

	e := events.Event{
		Type:       events.TypeCallEnd,
		CallID:     id,
		Provider:   ac.provider,
		Call:       ac.call,
		Turn:       ac.turn,
		Success:    events.Bool(callErr == nil),
		DurationMS: float64(latency.Milliseconds()),
	}
	if callErr != nil {
		e.Error = callErr.Error()
	}
	r.emit(e)

	if usage != nil && usage.TotalTokens > 0 {
		r.emit(events.Event{
			Type:         events.TypeTokenUsage,
			CallID:       id,
			Provider:     ac.provider,
			Call:         ac.call,
			Turn:         ac.turn,
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			TotalTokens:  usage.TotalTokens,
		})
	}

	if ac.span != nil {
		if callErr == nil {
			ac.span.SetStatus(codes.Ok, "")
		} else {
			ac.span.SetStatus(codes.Error, callErr.Error())
			ac.span.RecordError(callErr)
		}
		ac.span.SetAttributes(attribute.Float64("llm.duration_ms", float64(latency.Milliseconds())))
		if usage != nil {
			ac.span.SetAttributes(
				attribute.Int("llm.tokens.input", usage.InputTokens),
				attribute.Int("llm.tokens.output", usage.OutputTokens),
			)
		}
		ac.span.End()
	}

	if r.instruments != nil {
		opts := metric.WithAttributes(attribute.String("llm.provider", ac.provider))
		r.instruments.callDuration.Record(ctx, float64(latency.Milliseconds()), opts)
		r.instruments.callCount.Add(ctx, 1, opts)
	}
}

// RecordFault records a fault firing at an injection point.
func (r *Recorder) RecordFault(ctx context.Context, f *fault.Fault, call, turn int, provider string) {
	now := time.Now().UTC()
	r.store.RecordFault(FaultRecord{
		Label:    f.Label,
		Kind:     string(f.Kind),
		Call:     call,
		Turn:     turn,
		Provider: provider,
		Time:     now,
	})

	r.emit(events.Event{
		Type:      events.TypeFaultInjected,
		Time:      now,
		Fault:     f.Label,
		FaultKind: string(f.Kind),
		Call:      call,
		Turn:      turn,
		Provider:  provider,
	})

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("fault_injected", trace.WithAttributes(
			attribute.String("chaos.fault", f.Label),
			attribute.String("chaos.fault_kind", string(f.Kind)),
		))
	}

	if r.instruments != nil {
		r.instruments.faultCount.Add(ctx, 1,
			metric.WithAttributes(attribute.String("chaos.fault_kind", string(f.Kind))))
	}

	r.logger.Info("fault injected", "fault", f.Label, "kind", f.Kind, "call", call, "turn", turn)
}

// RecordTTFT records time to first token for a streaming call in progress.
func (r *Recorder) RecordTTFT(ctx context.Context, id string, ttft time.Duration) {
	r.mu.Lock()
	if ac, ok := r.active[id]; ok {
		ac.streamed = true
		ac.ttft = ttft
	}
	r.mu.Unlock()

	r.emit(events.Event{
		Type:       events.TypeTTFT,
		CallID:     id,
		DurationMS: float64(ttft.Milliseconds()),
	})

	if r.instruments != nil {
		r.instruments.ttft.Record(ctx, float64(ttft.Milliseconds()))
	}
}

// RecordStreamCut records a mid-stream termination before chunk (0-based).
func (r *Recorder) RecordStreamCut(ctx context.Context, id string, chunk int) {
	r.mu.Lock()
	if ac, ok := r.active[id]; ok {
		ac.streamed = true
		ac.chunks = chunk
	}
	r.mu.Unlock()

	r.emit(events.Event{
		Type:   events.TypeStreamCut,
		CallID: id,
		Chunk:  chunk,
	})
}

// RecordStreamStats summarizes a stream that ended naturally.
func (r *Recorder) RecordStreamStats(ctx context.Context, id string, chunks int, elapsed time.Duration) {
	r.mu.Lock()
	if ac, ok := r.active[id]; ok {
		ac.streamed = true
		ac.chunks = chunks
	}
	r.mu.Unlock()

	r.emit(events.Event{
		Type:       events.TypeStreamStats,
		CallID:     id,
		Chunks:     chunks,
		DurationMS: float64(elapsed.Milliseconds()),
	})
}

// RecordToolUse records the model requesting a tool invocation.
func (r *Recorder) RecordToolUse(ctx context.Context, id, tool string) {
	r.emit(events.Event{
		Type:   events.TypeToolUse,
		CallID: id,
		Tool:   tool,
	})
}

// RecordTurnStart marks a scenario turn beginning.
func (r *Recorder) RecordTurnStart(ctx context.Context, turn int) {
	r.emit(events.Event{Type: events.TypeTurnStart, Turn: turn})
}

// RecordTurnEnd marks a scenario turn finishing.
func (r *Recorder) RecordTurnEnd(ctx context.Context, turn int, success bool, elapsed time.Duration) {
	r.emit(events.Event{
		Type:       events.TypeTurnEnd,
		Turn:       turn,
		Success:    events.Bool(success),
		DurationMS: float64(elapsed.Milliseconds()),
	})
}

// Close flushes and closes the event sink.
func (r *Recorder) Close() error {
	return r.sink.Close()
}
