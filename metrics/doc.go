// Package metrics collects what a harness run observed: per-call records,
// injected faults, streaming milestones, and the aggregates assertions are
// written against.
//
// The Recorder is the single funnel for observations. It timestamps them,
// appends them to an in-memory Store, emits them to an event sink, and, when
// configured with OpenTelemetry providers, mirrors them as spans and metric
// instruments. Observability failures are logged and swallowed so they never
// alter run behavior.
package metrics
