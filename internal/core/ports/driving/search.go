package driving

import (
	"context"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// SearchService ranks an owner's documents and chunks against a query.
type SearchService interface {
	// Search returns the top chunks for a query, ranked and thresholded.
	Search(ctx context.Context, ownerID, query string, topK int) ([]domain.SearchResult, error)

	// RankDocuments returns whole documents ranked by the document-level weights.
	RankDocuments(ctx context.Context, ownerID, query string, topK int) ([]domain.RankedCandidate, error)
}
