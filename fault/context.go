package fault

import (
	"context"

	"github.com/zero-day-ai/chaos/llm"
)

// ContextMutate corrupts the outbound message history with a caller-supplied
// transform. The mutator receives a deep copy of the history, so it may
// reorder, drop, or rewrite messages freely without aliasing the agent's own
// state.
//
//	truncate := func(ctx context.Context, messages []llm.Message) []llm.Message {
//	    if len(messages) > 2 {
//	        return messages[len(messages)-2:]
//	    }
//	    return messages
//	}
//	fault.ContextMutate(truncate).BetweenTurns(1, 3)
func ContextMutate(fn ContextMutator) *Builder {
	b := newBuilder(Fault{
		Kind:    KindContext,
		Trigger: Trigger{Probability: ptr(1.0)},
		Label:   "context_mutate",
		Context: fn,
	})
	if fn == nil {
		return b.fail("context_mutate: mutator must not be nil")
	}
	return b
}

// ContextDropSystem removes system messages from the outbound history.
func ContextDropSystem() *Builder {
	b := ContextMutate(func(_ context.Context, messages []llm.Message) []llm.Message {
		out := messages[:0]
		for _, m := range messages {
			if m.Role != llm.RoleSystem {
				out = append(out, m)
			}
		}
		return out
	})
	b.fault.Label = "context_drop_system"
	return b
}

// ContextTruncate keeps only the most recent keep messages, preserving
// system messages at the front.
func ContextTruncate(keep int) *Builder {
	if keep < 1 {
		b := newBuilder(Fault{Kind: KindContext, Label: "context_truncate"})
		return b.fail("context_truncate: keep must be >= 1, got %d", keep)
	}
	b := ContextMutate(func(_ context.Context, messages []llm.Message) []llm.Message {
		var system, rest []llm.Message
		for _, m := range messages {
			if m.Role == llm.RoleSystem {
				system = append(system, m)
			} else {
				rest = append(rest, m)
			}
		}
		if len(rest) > keep {
			rest = rest[len(rest)-keep:]
		}
		return append(system, rest...)
	})
	b.fault.Label = "context_truncate"
	return b
}

// ContextDropOldest discards the n oldest non-system messages.
func ContextDropOldest(n int) *Builder {
	if n < 1 {
		b := newBuilder(Fault{Kind: KindContext, Label: "context_drop_oldest"})
		return b.fail("context_drop_oldest: n must be >= 1, got %d", n)
	}
	b := ContextMutate(func(_ context.Context, messages []llm.Message) []llm.Message {
		out := make([]llm.Message, 0, len(messages))
		dropped := 0
		for _, m := range messages {
			if m.Role != llm.RoleSystem && dropped < n {
				dropped++
				continue
			}
			out = append(out, m)
		}
		return out
	})
	b.fault.Label = "context_drop_oldest"
	return b
}
