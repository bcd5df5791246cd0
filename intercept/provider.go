package intercept

import (
	"context"
	"log/slog"
	"time"

	"github.com/zero-day-ai/chaos/inject"
	"github.com/zero-day-ai/chaos/llm"
	"github.com/zero-day-ai/chaos/metrics"
)

// Option configures a wrapped provider.
type Option func(*chaosProvider)

// WithProviders restricts interception to the named providers. Calls through
// any other provider pass straight to the base, uncounted and unfaulted.
// Without this option every provider is intercepted.
func WithProviders(names ...string) Option {
	return func(p *chaosProvider) {
		p.allowed = make(map[string]bool, len(names))
		for _, n := range names {
			p.allowed[n] = true
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *chaosProvider) {
		p.logger = logger
	}
}

type chaosProvider struct {
	base    llm.Provider
	router  *inject.Router
	rec     *metrics.Recorder
	allowed map[string]bool
	logger  *slog.Logger
}

// Wrap returns a provider that injects the router's faults into calls bound
// for base and records everything it observes.
func Wrap(base llm.Provider, router *inject.Router, rec *metrics.Recorder, opts ...Option) llm.Provider {
	p := &chaosProvider{
		base:   base,
		router: router,
		rec:    rec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *chaosProvider) Name() string {
	return p.base.Name()
}

func (p *chaosProvider) intercepts() bool {
	return p.allowed == nil || p.allowed[p.base.Name()]
}

// prepare runs the shared front half of Complete and Stream: advance the
// call counter, open the call record, and apply context, tool and LLM-call
// faults. A non-nil error means the call was replaced by a synthesized
// failure and already closed out.
type callFrame struct {
	id   string
	call int
	turn int
}

func (p *chaosProvider) prepare(ctx context.Context, req *llm.CompletionRequest) (context.Context, callFrame, *llm.CompletionRequest, error) {
	provider := p.base.Name()
	frame := callFrame{
		call: p.router.IncrementCall(),
		turn: p.router.CurrentTurn(),
	}

	ctx, frame.id = p.rec.StartCall(ctx, provider, req.Model, frame.call, frame.turn)

	if p.router.HasContextFaults() {
		if out, f := p.router.NextContext(ctx, provider, req.Messages); f != nil {
			p.rec.RecordFault(ctx, f, frame.call, frame.turn, provider)
			mutated := req.Clone()
			mutated.Messages = out.Messages
			req = mutated
		}
	}

	if p.router.HasToolFaults() {
		req = p.rewriteToolResults(ctx, req, frame.call, frame.turn)
	}

	if out, f := p.router.NextLLM(provider); f != nil {
		p.rec.RecordFault(ctx, f, frame.call, frame.turn, provider)
		p.rec.EndCall(ctx, frame.id, out.Err, nil)
		return ctx, frame, req, out.Err
	}

	return ctx, frame, req, nil
}

// rewriteToolResults walks the outbound history and lets tool faults rewrite
// embedded tool results. The request is cloned on first mutation so the
// caller's messages stay untouched.
func (p *chaosProvider) rewriteToolResults(ctx context.Context, req *llm.CompletionRequest, call, turn int) *llm.CompletionRequest {
	provider := p.base.Name()
	cloned := false
	for i, msg := range req.Messages {
		if msg.Role != llm.RoleTool {
			continue
		}
		for j, res := range msg.ToolResults {
			out, f := p.router.NextTool(ctx, provider, msg.Name, res.Content)
			if f == nil {
				continue
			}
			p.rec.RecordFault(ctx, f, call, turn, provider)
			if !cloned {
				req = req.Clone()
				cloned = true
			}
			req.Messages[i].ToolResults[j].Content = out.Text
		}
	}
	return req
}

func (p *chaosProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if !p.intercepts() {
		return p.base.Complete(ctx, req)
	}

	ctx, frame, req, ferr := p.prepare(ctx, req)
	if ferr != nil {
		return nil, ferr
	}

	resp, err := p.base.Complete(ctx, req)

	var usage *llm.TokenUsage
	if resp != nil {
		usage = &resp.Usage
		for _, tc := range resp.ToolCalls {
			p.rec.RecordToolUse(ctx, frame.id, tc.Name)
		}
	}
	p.rec.EndCall(ctx, frame.id, err, usage)
	return resp, err
}

func (p *chaosProvider) Stream(ctx context.Context, req *llm.CompletionRequest) (llm.Stream, error) {
	if !p.intercepts() {
		return p.base.Stream(ctx, req)
	}

	ctx, frame, req, ferr := p.prepare(ctx, req)
	if ferr != nil {
		return nil, ferr
	}

	plan := p.router.StreamPlan(p.base.Name())

	base, err := p.base.Stream(ctx, req)
	if err != nil {
		p.rec.EndCall(ctx, frame.id, err, nil)
		return nil, err
	}

	return &chaosStream{
		ctx:      ctx,
		base:     base,
		plan:     plan,
		rec:      p.rec,
		callID:   frame.id,
		provider: p.base.Name(),
		call:     frame.call,
		turn:     frame.turn,
		opened:   time.Now(),
	}, nil
}
