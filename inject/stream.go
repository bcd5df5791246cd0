package inject

import (
	"math/rand"
	"time"

	"github.com/zero-day-ai/chaos/fault"
)

// StreamPlan is the per-stream injection schedule. The router evaluates
// stream fault triggers once, when the stream opens; the plan then answers
// chunk-by-chunk questions without re-evaluating triggers.
//
// Cut and hang are terminal degradations and consume their fault when they
// engage. Latency shaping (slow first chunk, slow chunks) is ambient and
// applies to every stream whose trigger matches.
type StreamPlan struct {
	router *Router

	cut  *fault.Fault
	hang *fault.Fault

	firstChunkDelay time.Duration
	chunkDelay      time.Duration
}

// StreamPlan evaluates stream faults for a stream opening against the given
// provider and returns the resulting plan. An empty plan passes every chunk
// through untouched.
func (r *Router) StreamPlan(provider string) *StreamPlan {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan := &StreamPlan{router: r}
	ev := r.evalLocked(provider)

	for _, f := range r.streamFaults {
		if r.fired[f] {
			continue
		}
		if !f.Trigger.ShouldFire(ev, r.rng) {
			continue
		}
		switch f.Stream.Variant {
		case fault.StreamCutVariant:
			if plan.cut == nil {
				plan.cut = f
			}
		case fault.StreamHangVariant:
			if plan.hang == nil {
				plan.hang = f
			}
		case fault.StreamTTFTVariant:
			plan.firstChunkDelay += f.Stream.Delay
		case fault.StreamChunksVariant:
			plan.chunkDelay += f.Stream.Delay
		}
	}
	return plan
}

// FirstChunkDelay returns the extra latency to apply before the first chunk.
func (p *StreamPlan) FirstChunkDelay() time.Duration {
	return p.firstChunkDelay
}

// ChunkDelay returns the extra latency to apply before each subsequent chunk.
func (p *StreamPlan) ChunkDelay() time.Duration {
	return p.chunkDelay
}

// CutAt reports whether the stream should terminate before delivering chunk
// (0-based). A cut consumes its fault: once it engages here, no later stream
// sees it.
func (p *StreamPlan) CutAt(chunk int) (*fault.Fault, bool) {
	if p.cut == nil {
		return nil, false
	}
	if !p.engages(p.cut, chunk) {
		return nil, false
	}
	f := p.cut
	p.cut = nil
	p.router.mu.Lock()
	p.router.fired[f] = true
	p.router.mu.Unlock()
	return f, true
}

// HangAt reports whether the stream should stall before delivering chunk
// (0-based), and for how long. A zero duration means the stream should block
// until its context is cancelled. Like a cut, a hang consumes its fault.
func (p *StreamPlan) HangAt(chunk int) (time.Duration, *fault.Fault, bool) {
	if p.hang == nil {
		return 0, nil, false
	}
	if !p.engages(p.hang, chunk) {
		return 0, nil, false
	}
	f := p.hang
	p.hang = nil
	p.router.mu.Lock()
	p.router.fired[f] = true
	p.router.mu.Unlock()
	return f.Stream.HangFor, f, true
}

// engages applies the chunk threshold and the per-chunk probability gate.
func (p *StreamPlan) engages(f *fault.Fault, chunk int) bool {
	if chunk < f.Stream.AfterChunks {
		return false
	}
	if f.Stream.ChunkProbability >= 1.0 {
		return true
	}
	p.router.mu.Lock()
	defer p.router.mu.Unlock()
	if p.router.rng != nil {
		return p.router.rng.Float64() < f.Stream.ChunkProbability
	}
	return rand.Float64() < f.Stream.ChunkProbability
}
