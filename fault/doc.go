// Package fault defines the configured faults the harness injects and the
// triggers that decide when they fire.
//
// A Fault pairs a Trigger with a kind-specific payload targeting one of five
// injection points: the outbound LLM call, the streaming response, tool
// results, the conversational context, and the user input. Faults are built
// through a fluent Builder and resolved eagerly, so the injection router only
// ever holds finished, validated values:
//
//	faults, err := fault.BuildAll(
//	    fault.LLMRateLimit().AfterCalls(2),
//	    fault.StreamCut(10),
//	    fault.ToolError("service down").ForTool("weather"),
//	)
//
// Triggers evaluate pure predicates over the run counters (call index, turn
// index, completed turns) plus a provider filter and an optional probability
// gate. Trigger evaluation has no side effects; once-only firing is enforced
// by the router, not here.
package fault
