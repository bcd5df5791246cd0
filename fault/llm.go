package fault

import (
	"time"

	"github.com/zero-day-ai/chaos/llm"
)

// ptr returns a pointer to v. Constructors default the trigger probability
// to 1.0 so a fault with no other condition fires at its first opportunity.
func ptr(v float64) *float64 { return &v }

func llmFault(label string, pe *llm.ProviderError) *Builder {
	return newBuilder(Fault{
		Kind:    KindLLMCall,
		Trigger: Trigger{Probability: ptr(1.0)},
		Label:   label,
		Raise:   pe,
	})
}

// LLMRateLimit synthesizes a 429 rate-limit error with a retry hint.
func LLMRateLimit() *Builder {
	return llmFault("llm_rate_limit", &llm.ProviderError{
		Code:       llm.ErrCodeRateLimited,
		StatusCode: 429,
		Message:    "rate limit exceeded",
		RetryAfter: 30 * time.Second,
	})
}

// LLMTimeout synthesizes a request timeout at the transport level.
func LLMTimeout() *Builder {
	return llmFault("llm_timeout", &llm.ProviderError{
		Code:    llm.ErrCodeTimeout,
		Message: "request timed out",
	})
}

// LLMServerError synthesizes a 500 internal server error.
func LLMServerError() *Builder {
	return llmFault("llm_server_error", &llm.ProviderError{
		Code:       llm.ErrCodeServerError,
		StatusCode: 500,
		Message:    "internal server error",
	})
}

// LLMAuthError synthesizes a 401 authentication failure.
func LLMAuthError() *Builder {
	return llmFault("llm_auth_error", &llm.ProviderError{
		Code:       llm.ErrCodeAuth,
		StatusCode: 401,
		Message:    "invalid api key",
	})
}

// LLMContextLength synthesizes a 400 context-window-exceeded rejection.
func LLMContextLength() *Builder {
	return llmFault("llm_context_length", &llm.ProviderError{
		Code:       llm.ErrCodeContextExceeded,
		StatusCode: 400,
		Message:    "prompt is too long: exceeds the model context window",
	})
}

// LLMError synthesizes a custom provider error for cases the stock
// constructors do not cover.
func LLMError(code string, statusCode int, message string) *Builder {
	return llmFault("llm_error", &llm.ProviderError{
		Code:       code,
		StatusCode: statusCode,
		Message:    message,
	})
}
