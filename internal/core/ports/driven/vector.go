package driven

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// VectorIndex stores (vector, metadata) pairs and answers nearest-neighbour
// queries. Every query is scoped by owner; there is no unscoped query.
type VectorIndex interface {
	// Upsert stores records for an owner, replacing any with the same key.
	// Records whose metadata owner differs from ownerID are rejected.
	Upsert(ctx context.Context, ownerID string, records []domain.VectorRecord) error

	// Query returns up to topK matches for ownerID ordered by similarity.
	Query(ctx context.Context, vector []float32, ownerID string, topK int) ([]domain.VectorMatch, error)

	// DeleteByDocument removes every vector of a document. Idempotent.
	DeleteByDocument(ctx context.Context, documentID string) error

	// DeleteByOwner removes every vector of an owner. Idempotent.
	DeleteByOwner(ctx context.Context, ownerID string) error

	// Count returns the number of stored vectors.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
