// Package inject routes configured faults to their injection points.
//
// A Router owns the run counters (global call index, current turn, completed
// turns) and the fired set that guarantees each configured fault injects at
// most once. The interception layer asks the router for the next outcome at
// each injection point; the router evaluates triggers in configuration order
// and returns the first fault that fires.
//
// Stream faults are planned rather than fired directly: StreamPlan evaluates
// their triggers when a stream opens and returns a per-stream plan that the
// stream wrapper consults chunk by chunk.
//
// All router methods are safe for concurrent use. Determinism comes from
// seeding: a router built with WithSeed draws every probability gate from a
// single seeded source.
package inject
