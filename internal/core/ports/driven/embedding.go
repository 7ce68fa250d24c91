package driven

import "context"

// EmbeddingService turns text into vectors. It may be nil, in which case
// retrieval ranks by keywords alone.
//
// Each EmbedBatch call is a single provider request. Rate limits and 5xx
// responses come back as *domain.TransientError; the embedding client in
// services owns batching, retries and backoff.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every returned vector.
	Dimensions() int

	ModelName() string

	// Ping makes the cheapest request the provider offers.
	Ping(ctx context.Context) error

	Close() error
}
