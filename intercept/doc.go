// Package intercept wraps an llm.Provider so that configured faults fire on
// the calls flowing through it.
//
// Wrap returns a provider that delegates to the base provider after the
// injection router has had its say: context and tool faults mutate the
// outbound request, LLM-call faults replace the call with a synthesized
// provider error, and stream faults degrade the returned stream chunk by
// chunk. Every call is measured and recorded whether or not a fault fires.
//
// Install goes one step further and swings the process-default provider over
// to the wrapped one, returning a Scope whose Close restores the previous
// default. At most one scope is active at a time; nesting returns
// ErrScopeActive.
package intercept
