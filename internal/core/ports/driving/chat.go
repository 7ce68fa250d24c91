package driving

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// ChatService answers questions against an owner's documents with citations.
type ChatService interface {
	// Answer validates the request and streams events. The channel yields
	// zero or more content events and then exactly one complete or error
	// event before closing. Cancelling ctx aborts generation.
	Answer(ctx context.Context, req domain.ChatRequest) (<-chan domain.ChatEvent, error)
}
