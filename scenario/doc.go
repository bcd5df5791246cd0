// Package scenario drives multi-turn conversations through an agent under
// fault injection and scores the outcome.
//
// A baseline Scenario carries no faults and defines the conversation: an
// agent function, the turns to feed it, and the assertions every variant
// must satisfy. Variants derive from a baseline and layer faults on top,
// either run-wide or pinned to individual turns with At. The Runner executes
// one scenario per fresh router and recorder, so fault state never leaks
// between runs.
//
// Fault mutators that need conversation state recover the run through
// FromContext:
//
//	fault.ContextMutate(func(ctx context.Context, msgs []llm.Message) []llm.Message {
//		if run, ok := scenario.FromContext(ctx); ok && len(run.History()) > 2 {
//			return msgs[1:]
//		}
//		return msgs
//	})
package scenario
