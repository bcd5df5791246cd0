// Package chaos is a deterministic fault-injection harness for AI agents.
//
// The harness intercepts an agent's LLM provider calls and injects
// configured faults: synthesized provider errors, degraded streams, corrupted
// tool results, mutated conversation context, and garbled user input. Faults
// fire under precise trigger conditions (call index, turn, probability,
// provider) and each configured fault fires at most once per run, so a chaos
// case means one thing and reproduces from its seed.
//
// For quick single-shot usage, open a session around the code under test:
//
//	session, err := chaos.Open("flaky-upstream",
//		chaos.WithProvider(client),
//		chaos.WithFaults(
//			fault.LLMRateLimit().OnCall(2),
//			fault.StreamCut(5),
//		),
//	)
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	// Calls made through session.Provider() now run under chaos. Add
//	// chaos.WithInstall() to take over llm.Default() until Close.
//
// Multi-turn conversations with assertions live in the scenario package;
// seeded variant generation lives in the fuzz package.
package chaos
