package llm

import (
	"errors"
	"fmt"
	"time"
)

// Error codes classifying provider failures. Synthesized faults and real
// adapters use the same codes so downstream handling cannot tell them apart.
const (
	// ErrCodeRateLimited indicates the provider is rate limiting requests.
	ErrCodeRateLimited = "LLM_RATE_LIMITED"

	// ErrCodeTimeout indicates the request timed out before a response arrived.
	ErrCodeTimeout = "LLM_TIMEOUT"

	// ErrCodeServerError indicates a 5xx-class failure at the provider.
	ErrCodeServerError = "LLM_SERVER_ERROR"

	// ErrCodeAuth indicates the request was rejected for bad credentials.
	ErrCodeAuth = "LLM_AUTH_ERROR"

	// ErrCodeContextExceeded indicates the request exceeded the model's
	// context window.
	ErrCodeContextExceeded = "LLM_CONTEXT_EXCEEDED"

	// ErrCodeConnection indicates the transport dropped mid-request,
	// including streams cut before completion.
	ErrCodeConnection = "LLM_CONNECTION_ERROR"
)

// ProviderError is the error shape for provider failures. It carries enough
// structure (code, HTTP status, retry hint) for agents to implement realistic
// backoff and classification logic against it.
type ProviderError struct {
	// Provider identifies the backend that produced the error.
	Provider string

	// Code is one of the ErrCode constants.
	Code string

	// StatusCode is the HTTP status associated with the failure, when one
	// exists. Zero for transport-level errors.
	StatusCode int

	// Message is a human-readable description.
	Message string

	// RetryAfter is the provider's retry hint, when one was given.
	RetryAfter time.Duration
}

// Error implements the error interface.
// Format: "provider [status code]: message", e.g. "anthropic [429]: rate limit exceeded".
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s [%d]: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
}

// Retryable reports whether the failure class is worth retrying.
func (e *ProviderError) Retryable() bool {
	switch e.Code {
	case ErrCodeRateLimited, ErrCodeTimeout, ErrCodeServerError, ErrCodeConnection:
		return true
	default:
		return false
	}
}

// IsProviderError reports whether err is (or wraps) a ProviderError with the
// given code. An empty code matches any ProviderError.
func IsProviderError(err error, code string) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return code == "" || pe.Code == code
}

// ValidationError indicates invalid configuration of an llm value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
