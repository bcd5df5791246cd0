package llm

import "io"

// StreamChunk represents a chunk of data received during streaming completion.
type StreamChunk struct {
	// Delta contains the incremental text content for this chunk.
	Delta string

	// ToolCalls contains incremental tool call information.
	// Tool calls may be split across multiple chunks and need to be accumulated.
	ToolCalls []ToolCall

	// FinishReason indicates why the generation stopped.
	// Only set on the final chunk.
	FinishReason string

	// Usage contains token usage statistics.
	// Typically only set on the final chunk.
	Usage *TokenUsage
}

// IsFinal returns true if this is the final chunk in the stream.
func (c *StreamChunk) IsFinal() bool {
	return c.FinishReason != ""
}

// HasContent returns true if this chunk contains text content.
func (c *StreamChunk) HasContent() bool {
	return c.Delta != ""
}

// HasUsage returns true if this chunk contains usage statistics.
func (c *StreamChunk) HasUsage() bool {
	return c.Usage != nil
}

// Stream is an open streaming completion. Recv returns io.EOF when the
// stream ends naturally and any other error when it is terminated, including
// errors synthesized by stream faults. Close releases the underlying
// connection and is safe to call more than once.
type Stream interface {
	Recv() (StreamChunk, error)
	Close() error
}

// chunkStream is an in-memory Stream backed by a fixed chunk slice.
// Fake providers and tests use it in place of a live connection.
type chunkStream struct {
	chunks []StreamChunk
	pos    int
	closed bool
}

// NewChunkStream returns a Stream that yields the given chunks in order and
// then io.EOF.
func NewChunkStream(chunks ...StreamChunk) Stream {
	return &chunkStream{chunks: chunks}
}

func (s *chunkStream) Recv() (StreamChunk, error) {
	if s.closed || s.pos >= len(s.chunks) {
		return StreamChunk{}, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *chunkStream) Close() error {
	s.closed = true
	return nil
}

// StreamAccumulator accumulates chunks from a streaming response.
type StreamAccumulator struct {
	// Content holds the accumulated text content.
	Content string

	// ToolCalls holds the accumulated tool calls, indexed by ID to handle
	// incremental updates.
	ToolCalls map[string]*ToolCall

	// FinishReason holds the final reason for completion.
	FinishReason string

	// Usage holds the final token usage statistics.
	Usage *TokenUsage
}

// NewStreamAccumulator creates a new accumulator for streaming responses.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{
		ToolCalls: make(map[string]*ToolCall),
	}
}

// Add processes a new chunk and updates the accumulator state.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Delta != "" {
		a.Content += chunk.Delta
	}

	for _, tc := range chunk.ToolCalls {
		if tc.ID == "" {
			continue
		}
		existing, ok := a.ToolCalls[tc.ID]
		if !ok {
			tcCopy := tc
			a.ToolCalls[tc.ID] = &tcCopy
		} else {
			if tc.Name != "" {
				existing.Name = tc.Name
			}
			existing.Arguments += tc.Arguments
		}
	}

	if chunk.FinishReason != "" {
		a.FinishReason = chunk.FinishReason
	}
	if chunk.Usage != nil {
		a.Usage = chunk.Usage
	}
}

// ToResponse converts the accumulated state to a CompletionResponse.
func (a *StreamAccumulator) ToResponse() CompletionResponse {
	toolCalls := make([]ToolCall, 0, len(a.ToolCalls))
	for _, tc := range a.ToolCalls {
		toolCalls = append(toolCalls, *tc)
	}

	usage := TokenUsage{}
	if a.Usage != nil {
		usage = *a.Usage
	}

	return CompletionResponse{
		Content:      a.Content,
		ToolCalls:    toolCalls,
		FinishReason: a.FinishReason,
		Usage:        usage,
	}
}

// IsComplete returns true if the accumulator has received a finish reason.
func (a *StreamAccumulator) IsComplete() bool {
	return a.FinishReason != ""
}
