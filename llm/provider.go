package llm

import (
	"context"
	"sync"
)

// Provider is the outbound call boundary to one LLM backend. The chaos
// harness intercepts calls by wrapping a Provider; real adapters and fakes
// satisfy the same interface.
type Provider interface {
	// Name returns the provider identifier (e.g. "anthropic", "openai").
	// Trigger provider filters compare against this value.
	Name() string

	// Complete performs a blocking completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream opens a streaming completion. The returned Stream yields
	// chunks until io.EOF or an error.
	Stream(ctx context.Context, req *CompletionRequest) (Stream, error)
}

var (
	defaultMu       sync.RWMutex
	defaultProvider Provider
)

// Default returns the process-default provider, or nil if none is set.
// Agents that resolve their provider through Default can be intercepted by
// the harness without code changes.
func Default() Provider {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultProvider
}

// SetDefault replaces the process-default provider and returns the previous
// value. The interception scope uses the returned value to restore the slot
// on teardown.
func SetDefault(p Provider) Provider {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultProvider
	defaultProvider = p
	return prev
}
