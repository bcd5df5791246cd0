package chaos

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zero-day-ai/chaos/events"
	"github.com/zero-day-ai/chaos/fault"
	"github.com/zero-day-ai/chaos/llm"
)

type canned struct {
	name  string
	calls int
}

func (c *canned) Name() string { return c.name }

func (c *canned) Complete(_ context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.calls++
	return &llm.CompletionResponse{
		Content:      "ok",
		FinishReason: "stop",
		Usage:        llm.TokenUsage{InputTokens: 5, OutputTokens: 5, TotalTokens: 10},
	}, nil
}

func (c *canned) Stream(_ context.Context, _ *llm.CompletionRequest) (llm.Stream, error) {
	c.calls++
	return llm.NewChunkStream(
		llm.StreamChunk{Delta: "ok"},
		llm.StreamChunk{FinishReason: "stop"},
	), nil
}

func ask(t *testing.T, p llm.Provider) (*llm.CompletionResponse, error) {
	t.Helper()
	req := llm.NewCompletionRequest([]llm.Message{llm.UserMessage("hi")})
	return p.Complete(context.Background(), req)
}

func TestOpen_Passthrough(t *testing.T) {
	base := &canned{name: "anthropic"}

	session, err := Open("passthrough", WithProvider(base))
	require.NoError(t, err)
	defer session.Close()

	resp, err := ask(t, session.Provider())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, base.calls)
	assert.Equal(t, 0, session.FaultsInjected())
	assert.Equal(t, 1, session.Metrics().TotalCalls())
}

func TestOpen_InjectsFaults(t *testing.T) {
	base := &canned{name: "anthropic"}

	session, err := Open("flaky",
		WithProvider(base),
		WithFaults(fault.LLMRateLimit().OnCall(2)),
	)
	require.NoError(t, err)
	defer session.Close()

	_, err = ask(t, session.Provider())
	require.NoError(t, err)

	_, err = ask(t, session.Provider())
	require.Error(t, err)
	var perr *llm.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 429, perr.StatusCode)

	assert.Equal(t, 1, base.calls, "faulted call must not reach the base provider")
	assert.Equal(t, 1, session.FaultsInjected())

	// The fault fired; a third call goes through clean.
	_, err = ask(t, session.Provider())
	require.NoError(t, err)
	assert.Equal(t, 2, base.calls)
}

func TestOpen_NoProvider(t *testing.T) {
	prev := llm.SetDefault(nil)
	defer llm.SetDefault(prev)

	_, err := Open("orphan")
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestOpen_InvalidFault(t *testing.T) {
	_, err := Open("bad",
		WithProvider(&canned{name: "anthropic"}),
		WithFaults(fault.LLMTimeout().OnCall(0)),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_call")
}

func TestOpen_InstallTakesDefaultSlot(t *testing.T) {
	base := &canned{name: "anthropic"}
	prev := llm.SetDefault(base)
	defer llm.SetDefault(prev)

	session, err := Open("installed",
		WithInstall(),
		WithFaults(fault.LLMServerError().OnCall(1)),
	)
	require.NoError(t, err)

	_, err = ask(t, llm.Default())
	require.Error(t, err)
	assert.Equal(t, 0, base.calls)

	require.NoError(t, session.Close())
	assert.Same(t, llm.Provider(base), llm.Default(), "Close must restore the default provider")
}

func TestOpen_SecondInstallRejected(t *testing.T) {
	base := &canned{name: "anthropic"}
	prev := llm.SetDefault(base)
	defer llm.SetDefault(prev)

	first, err := Open("first", WithInstall())
	require.NoError(t, err)
	defer first.Close()

	_, err = Open("second", WithInstall())
	require.Error(t, err)
}

func TestSession_CloseIdempotent(t *testing.T) {
	session, err := Open("twice", WithProvider(&canned{name: "anthropic"}))
	require.NoError(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
}

func TestSession_EmitsEvents(t *testing.T) {
	sink := events.NewMemory()
	session, err := Open("observed",
		WithProvider(&canned{name: "anthropic"}),
		WithSink(sink),
	)
	require.NoError(t, err)

	_, err = ask(t, session.Provider())
	require.NoError(t, err)
	require.NoError(t, session.Close())

	assert.Len(t, sink.ByType(events.TypeTraceStart), 1)
	assert.Len(t, sink.ByType(events.TypeCallEnd), 1)
	assert.Len(t, sink.ByType(events.TypeTraceEnd), 1)
}

func TestSession_EventLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chaos.jsonl")

	session, err := Open("logged",
		WithProvider(&canned{name: "anthropic"}),
		WithFaults(fault.LLMTimeout().OnCall(1)),
		WithEventLog(path),
	)
	require.NoError(t, err)

	_, err = ask(t, session.Provider())
	require.Error(t, err)
	require.NoError(t, session.Close())

	logged, err := events.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, logged)

	var faults int
	for _, ev := range logged {
		if ev.Type == events.TypeFaultInjected {
			faults++
		}
	}
	assert.Equal(t, 1, faults)
}

func TestSession_CallSpansNestUnderRoot(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	session, err := Open("traced",
		WithProvider(&canned{name: "anthropic"}),
		WithTracer(tp.Tracer("chaos")),
	)
	require.NoError(t, err)

	req := llm.NewCompletionRequest([]llm.Message{llm.UserMessage("hi")})
	_, err = session.Provider().Complete(session.Context(), req)
	require.NoError(t, err)
	require.NoError(t, session.Close())

	spans := recorder.Ended()
	byName := make(map[string]sdktrace.ReadOnlySpan)
	for _, s := range spans {
		byName[s.Name()] = s
	}
	root, ok := byName["chaos.run"]
	require.True(t, ok, "missing root span")
	call, ok := byName["chaos.call"]
	require.True(t, ok, "missing call span")
	assert.Equal(t, root.SpanContext().SpanID(), call.Parent().SpanID(),
		"call span must nest under the session root span")
}

func TestSession_SeededDeterminism(t *testing.T) {
	fire := func(seed int64) int {
		base := &canned{name: "anthropic"}
		session, err := Open("seeded",
			WithProvider(base),
			WithSeed(seed),
			WithFaults(fault.LLMServerError().WithProbability(0.5)),
		)
		require.NoError(t, err)
		defer session.Close()

		for i := 0; i < 10; i++ {
			ask(t, session.Provider()) //nolint:errcheck
		}
		return session.FaultsInjected()
	}

	assert.Equal(t, fire(7), fire(7))
}
