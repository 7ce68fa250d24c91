// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// LLMService is the generation provider used by analysis and chat.
// This is an optional service - when nil, analysis and chat return ErrLLMUnavailable.
//
// Implementations include:
//   - OpenAI (GPT-4o)
//   - Anthropic (Claude)
//   - Google Gemini
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a complete response with usage metering.
	Generate(ctx context.Context, req GenerationRequest) (*Generation, error)

	// Stream produces a response incrementally. The returned channel yields
	// text deltas and is closed after exactly one final chunk, which carries
	// either Done with usage or Err. Cancelling ctx stops consuming the
	// upstream stream and releases it.
	Stream(ctx context.Context, req GenerationRequest) (<-chan StreamChunk, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerationRequest is one generation call.
type GenerationRequest struct {
	// System is the system instruction.
	System string

	// Messages is the conversation, ending with the user's turn.
	Messages []ChatMessage

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Generation is a completed, non-streamed response.
type Generation struct {
	Text  string
	Usage domain.Usage
}

// StreamChunk is one element of a streamed generation.
type StreamChunk struct {
	// Delta is incremental text. Empty on the final chunk.
	Delta string

	// Done marks successful completion.
	Done bool

	// Usage is set on the final chunk when the provider reports it.
	Usage domain.Usage

	// Err terminates the stream with a failure.
	Err error
}
