// Package llm defines provider-neutral types for LLM interactions and the
// transport boundary the chaos harness intercepts.
//
// This package contains the core abstractions shared by the interception
// layer and the agent under test:
//   - Message types for conversations (system, user, assistant, tool)
//   - Completion requests and responses
//   - Streaming response handling
//   - Tool/function calling definitions
//   - The Provider interface and the process-default provider slot
//   - ProviderError, the error shape shared by genuine and synthesized faults
//
// # Providers
//
// A Provider is the outbound call boundary: one blocking completion method
// and one streaming method. Real adapters (Anthropic, OpenAI, fakes) satisfy
// this interface; the harness wraps a Provider rather than rewriting vendor
// SDK internals.
//
//	resp, err := provider.Complete(ctx, llm.NewCompletionRequest(messages))
//
// # Streaming
//
// Stream follows the Recv/Close shape: Recv returns io.EOF when the stream
// ends naturally, and any other error when it is terminated. Use
// StreamAccumulator to fold chunks into a final response:
//
//	acc := llm.NewStreamAccumulator()
//	for {
//	    chunk, err := stream.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    acc.Add(chunk)
//	}
//	response := acc.ToResponse()
//
// # The default provider
//
// Default and SetDefault manage a process-wide provider slot in the manner of
// log/slog. Agents that resolve their provider through Default can be
// intercepted without any code changes: the harness swaps the slot for the
// duration of one run and restores it on teardown.
//
// # Provider errors
//
// ProviderError is the single error shape used for provider failures, both
// genuine and injected. Synthesized faults are built from the same type so the
// agent under test cannot distinguish them from real outages.
package llm
