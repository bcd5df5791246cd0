// Package events defines the structured event log a harness run produces and
// the sinks that persist it.
//
// Every observable moment of a run (trace lifecycle, provider calls, injected
// faults, streaming milestones, token usage, turn boundaries) becomes one
// Event, discriminated by Type and serialized as a single JSON object. Sinks
// receive events in emission order; the JSONL sink writes one object per line
// so a run can be replayed later with ReadFile.
//
// Sinks must tolerate concurrent Emit calls. Use Multi to fan an event out to
// several sinks at once, and Nop when a recorder is constructed without one.
package events
