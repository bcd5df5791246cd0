package intercept

import (
	"errors"
	"sync"

	"github.com/zero-day-ai/chaos/inject"
	"github.com/zero-day-ai/chaos/llm"
	"github.com/zero-day-ai/chaos/metrics"
)

// ErrScopeActive is returned by Install when another scope has the default
// provider slot. Close the active scope first.
var ErrScopeActive = errors.New("intercept: another scope is already installed")

var (
	scopeMu    sync.Mutex
	scopeTaken bool
)

// Scope holds the default provider slot while chaos is active. Close
// restores the previous default; it is safe to call more than once and from
// a deferred path after a panic.
type Scope struct {
	wrapped llm.Provider
	prev    llm.Provider

	once sync.Once
}

// Install wraps base with the router's faults and makes the wrapped provider
// the process default. The returned scope must be closed to restore the
// previous default; only one scope can be active at a time.
func Install(base llm.Provider, router *inject.Router, rec *metrics.Recorder, opts ...Option) (*Scope, error) {
	scopeMu.Lock()
	defer scopeMu.Unlock()
	if scopeTaken {
		return nil, ErrScopeActive
	}

	wrapped := Wrap(base, router, rec, opts...)
	prev := llm.SetDefault(wrapped)
	scopeTaken = true

	return &Scope{wrapped: wrapped, prev: prev}, nil
}

// Provider returns the wrapped provider installed as the default.
func (s *Scope) Provider() llm.Provider {
	return s.wrapped
}

// Close restores the previous default provider and releases the slot.
func (s *Scope) Close() error {
	s.once.Do(func() {
		scopeMu.Lock()
		defer scopeMu.Unlock()
		llm.SetDefault(s.prev)
		scopeTaken = false
	})
	return nil
}
