package intercept

import (
	"context"
	"io"
	"time"

	"github.com/zero-day-ai/chaos/inject"
	"github.com/zero-day-ai/chaos/llm"
	"github.com/zero-day-ai/chaos/metrics"
)

// chaosStream degrades a base stream according to its injection plan. Before
// delivering chunk k it checks cut, then hang, then latency shaping, in that
// order. A cut closes the call record with a synthesized connection error; a
// natural end records stream statistics and a successful call.
type chaosStream struct {
	ctx      context.Context
	base     llm.Stream
	plan     *inject.StreamPlan
	rec      *metrics.Recorder
	callID   string
	provider string
	call     int
	turn     int

	opened time.Time
	chunk  int
	usage  *llm.TokenUsage
	done   bool
}

func (s *chaosStream) Recv() (llm.StreamChunk, error) {
	if s.done {
		return llm.StreamChunk{}, io.EOF
	}

	if f, cut := s.plan.CutAt(s.chunk); cut {
		s.rec.RecordFault(s.ctx, f, s.call, s.turn, s.provider)
		s.rec.RecordStreamCut(s.ctx, s.callID, s.chunk)
		perr := &llm.ProviderError{
			Provider: s.provider,
			Code:     llm.ErrCodeConnection,
			Message:  "stream terminated unexpectedly",
		}
		s.finish(perr)
		return llm.StreamChunk{}, perr
	}

	if hangFor, f, hang := s.plan.HangAt(s.chunk); hang {
		s.rec.RecordFault(s.ctx, f, s.call, s.turn, s.provider)
		if err := s.stall(hangFor); err != nil {
			s.finish(err)
			return llm.StreamChunk{}, err
		}
	}

	if s.chunk == 0 {
		if err := s.sleep(s.plan.FirstChunkDelay()); err != nil {
			s.finish(err)
			return llm.StreamChunk{}, err
		}
	} else {
		if err := s.sleep(s.plan.ChunkDelay()); err != nil {
			s.finish(err)
			return llm.StreamChunk{}, err
		}
	}

	chunk, err := s.base.Recv()
	if err == io.EOF {
		s.rec.RecordStreamStats(s.ctx, s.callID, s.chunk, time.Since(s.opened))
		s.finish(nil)
		return chunk, io.EOF
	}
	if err != nil {
		s.finish(err)
		return chunk, err
	}

	if s.chunk == 0 {
		s.rec.RecordTTFT(s.ctx, s.callID, time.Since(s.opened))
	}
	if chunk.HasUsage() {
		u := *chunk.Usage
		s.usage = &u
	}
	s.chunk++
	return chunk, nil
}

// finish closes out the call record exactly once.
func (s *chaosStream) finish(err error) {
	if s.done {
		return
	}
	s.done = true
	s.rec.EndCall(s.ctx, s.callID, err, s.usage)
}

// stall blocks for the hang duration. A zero duration blocks until the
// stream context is cancelled, modeling a connection that never recovers.
func (s *chaosStream) stall(d time.Duration) error {
	if d == 0 {
		<-s.ctx.Done()
		return s.ctx.Err()
	}
	return s.sleep(d)
}

// sleep waits for d unless the stream context is cancelled first.
func (s *chaosStream) sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *chaosStream) Close() error {
	err := s.base.Close()
	// An abandoned stream still closes its call record.
	s.finish(nil)
	return err
}
