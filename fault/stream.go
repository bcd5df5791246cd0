package fault

import "time"

func streamFault(label string, payload *StreamPayload) *Builder {
	if payload.ChunkProbability == 0 {
		payload.ChunkProbability = 1.0
	}
	return newBuilder(Fault{
		Kind:    KindStream,
		Trigger: Trigger{Probability: ptr(1.0)},
		Label:   label,
		Stream:  payload,
	})
}

// StreamCut terminates the stream with a connection error once afterChunks
// chunks have been yielded.
func StreamCut(afterChunks int) *Builder {
	return streamFault("stream_cut", &StreamPayload{
		Variant:     StreamCutVariant,
		AfterChunks: afterChunks,
	})
}

// StreamHang stalls the stream for hangFor once afterChunks chunks have been
// yielded. A zero duration blocks until the stream's context is cancelled.
func StreamHang(afterChunks int, hangFor time.Duration) *Builder {
	return streamFault("stream_hang", &StreamPayload{
		Variant:     StreamHangVariant,
		AfterChunks: afterChunks,
		HangFor:     hangFor,
	})
}

// SlowTTFT delays the first chunk of the stream. The delay applies once,
// independent of any chunk-threshold faults.
func SlowTTFT(delay time.Duration) *Builder {
	return streamFault("slow_ttft", &StreamPayload{
		Variant: StreamTTFTVariant,
		Delay:   delay,
	})
}

// SlowChunks delays every chunk after the first.
func SlowChunks(delay time.Duration) *Builder {
	return streamFault("slow_chunks", &StreamPayload{
		Variant: StreamChunksVariant,
		Delay:   delay,
	})
}

// WithChunkProbability gates cut/hang per chunk once the threshold is
// reached, instead of firing deterministically at the threshold.
func (b *Builder) WithChunkProbability(p float64) *Builder {
	if b.fault.Kind != KindStream {
		return b.fail("%s: WithChunkProbability applies only to stream faults", b.fault.Label)
	}
	if p < 0.0 || p > 1.0 {
		return b.fail("%s: chunk probability %v out of range [0.0, 1.0]", b.fault.Label, p)
	}
	b.fault.Stream.ChunkProbability = p
	return b
}
