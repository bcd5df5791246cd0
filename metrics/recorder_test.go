package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zero-day-ai/chaos/events"
	"github.com/zero-day-ai/chaos/fault"
	"github.com/zero-day-ai/chaos/llm"
)

func TestRecorder_CallLifecycle(t *testing.T) {
	sink := events.NewMemory()
	rec, err := NewRecorder(WithSink(sink))
	require.NoError(t, err)

	ctx := context.Background()
	ctx = rec.StartTrace(ctx, "checkout", "baseline", events.Int64(42))
	require.NotEmpty(t, rec.TraceID())

	ctx, id := rec.StartCall(ctx, "anthropic", "claude-sonnet", 1, 1)
	require.NotEmpty(t, id)

	usage := llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}
	rec.EndCall(ctx, id, nil, &usage)
	rec.EndTrace(ctx, true, nil)

	calls := rec.Store().Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "anthropic", calls[0].Provider)
	assert.True(t, calls[0].Success)
	assert.Equal(t, 15, calls[0].Usage.TotalTokens)

	types := make([]events.Type, 0, len(sink.Events()))
	for _, e := range sink.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.Type{
		events.TypeTraceStart,
		events.TypeCallStart,
		events.TypeCallEnd,
		events.TypeTokenUsage,
		events.TypeTraceEnd,
	}, types)

	starts := sink.ByType(events.TypeTraceStart)
	require.Len(t, starts, 1)
	assert.Equal(t, "checkout", starts[0].Scenario)
	require.NotNil(t, starts[0].Seed)
	assert.Equal(t, int64(42), *starts[0].Seed)
}

func TestRecorder_FailedCall(t *testing.T) {
	sink := events.NewMemory()
	rec, err := NewRecorder(WithSink(sink))
	require.NoError(t, err)

	ctx := context.Background()
	ctx, id := rec.StartCall(ctx, "anthropic", "", 1, 0)
	rec.EndCall(ctx, id, errors.New("rate limit exceeded"), nil)

	assert.Equal(t, 1, rec.Store().FailedCalls())
	assert.Equal(t, 0.0, rec.Store().SuccessRate())

	ends := sink.ByType(events.TypeCallEnd)
	require.Len(t, ends, 1)
	require.NotNil(t, ends[0].Success)
	assert.False(t, *ends[0].Success)
	assert.Equal(t, "rate limit exceeded", ends[0].Error)
}

func TestRecorder_RecordFault(t *testing.T) {
	sink := events.NewMemory()
	rec, err := NewRecorder(WithSink(sink))
	require.NoError(t, err)

	f := fault.LLMRateLimit().OnCall(2).MustBuild()
	rec.RecordFault(context.Background(), &f, 2, 1, "anthropic")

	require.Equal(t, 1, rec.Store().FaultsInjected())
	got := rec.Store().Faults()[0]
	assert.Equal(t, "llm_rate_limit", got.Label)
	assert.Equal(t, "llm_call", got.Kind)
	assert.Equal(t, 2, got.Call)

	emitted := sink.ByType(events.TypeFaultInjected)
	require.Len(t, emitted, 1)
	assert.Equal(t, "llm_rate_limit", emitted[0].Fault)
}

func TestRecorder_StreamObservations(t *testing.T) {
	sink := events.NewMemory()
	rec, err := NewRecorder(WithSink(sink))
	require.NoError(t, err)

	ctx := context.Background()
	ctx, id := rec.StartCall(ctx, "anthropic", "", 1, 1)
	rec.RecordTTFT(ctx, id, 250*time.Millisecond)
	rec.RecordStreamStats(ctx, id, 12, time.Second)
	rec.EndCall(ctx, id, nil, nil)

	calls := rec.Store().Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Streamed)
	assert.Equal(t, 250*time.Millisecond, calls[0].TTFT)
	assert.Equal(t, 12, calls[0].Chunks)
	assert.Equal(t, 250*time.Millisecond, rec.Store().AvgTTFT())
}

func TestRecorder_WithOTel(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	meterProvider := noop.NewMeterProvider()

	rec, err := NewRecorder(
		WithTracer(tp.Tracer("test")),
		WithMeter(meterProvider.Meter("test")),
	)
	require.NoError(t, err)

	ctx := rec.StartTrace(context.Background(), "checkout", "variant-1", nil)
	ctx, id := rec.StartCall(ctx, "anthropic", "", 1, 1)
	f := fault.LLMTimeout().MustBuild()
	rec.RecordFault(ctx, &f, 1, 1, "anthropic")
	rec.EndCall(ctx, id, errors.New("request timed out"), nil)
	rec.EndTrace(ctx, false, errors.New("request timed out"))

	// OTel mirroring must not disturb the store.
	assert.Equal(t, 1, rec.Store().TotalCalls())
	assert.Equal(t, 1, rec.Store().FaultsInjected())
}

func TestRecorder_UnknownCallIgnored(t *testing.T) {
	rec, err := NewRecorder()
	require.NoError(t, err)

	rec.EndCall(context.Background(), "no-such-id", nil, nil)
	assert.Equal(t, 0, rec.Store().TotalCalls())
}

func TestStore_Aggregates(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 1.0, s.SuccessRate())
	assert.Equal(t, time.Duration(0), s.AvgLatency())

	s.RecordCall(CallRecord{Success: true, Latency: 100 * time.Millisecond, Usage: llm.TokenUsage{TotalTokens: 10}})
	s.RecordCall(CallRecord{Success: false, Latency: 300 * time.Millisecond, Usage: llm.TokenUsage{TotalTokens: 5}})

	assert.Equal(t, 2, s.TotalCalls())
	assert.Equal(t, 1, s.FailedCalls())
	assert.Equal(t, 0.5, s.SuccessRate())
	assert.Equal(t, 200*time.Millisecond, s.AvgLatency())
	assert.Equal(t, 15, s.TotalUsage().TotalTokens)
}
