package services

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultTopK is the number of results returned when none is requested.
const DefaultTopK = 6

// candidateFactor widens the vector query so ranking has room to reorder.
const candidateFactor = 3

// SearchService retrieves an owner's chunks and documents for a query.
// Vector search supplies the semantic signal; without embeddings it
// degrades to keyword-only ranking over the owner's stored chunks.
type SearchService struct {
	docs     driven.DocumentStore
	vectors  driven.VectorIndex
	embedder *EmbeddingClient
	ranker   *RelevanceRanker
}

// NewSearchService creates a search service. vectors and embedder may be nil.
func NewSearchService(
	docs driven.DocumentStore,
	vectors driven.VectorIndex,
	embedder *EmbeddingClient,
	ranker *RelevanceRanker,
) *SearchService {
	if ranker == nil {
		ranker = NewRelevanceRanker(DefaultMinScore)
	}
	return &SearchService{docs: docs, vectors: vectors, embedder: embedder, ranker: ranker}
}

// Search returns the top chunks for query within ownerID.
func (s *SearchService) Search(ctx context.Context, ownerID, query string, topK int) ([]domain.SearchResult, error) {
	ranked, err := s.rankChunks(ctx, ownerID, query, topK)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, domain.SearchResult{
			Document:  *r.Document,
			Chunk:     *r.Chunk,
			Score:     r.Score,
			Breakdown: r.Breakdown,
		})
	}
	return results, nil
}

// RankDocuments ranks whole documents. A document's semantic signal is the
// best similarity among its chunks.
func (s *SearchService) RankDocuments(ctx context.Context, ownerID, query string, topK int) ([]domain.RankedCandidate, error) {
	if err := validateQuery(ownerID, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	docs, err := s.docs.ListDocuments(ctx, ownerID)
	if err != nil || len(docs) == 0 {
		return nil, err
	}

	best := make(map[string]float64)
	if vec := s.queryVector(ctx, query); vec != nil {
		matches, err := s.vectors.Query(ctx, vec, ownerID, len(docs)*candidateFactor*topK)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if sim, ok := best[m.Metadata.DocumentID]; !ok || m.Similarity > sim {
				best[m.Metadata.DocumentID] = m.Similarity
			}
		}
	}

	candidates := make([]domain.Candidate, 0, len(docs))
	for i := range docs {
		sim, ok := best[docs[i].ID]
		candidates = append(candidates, domain.Candidate{Document: &docs[i], Similarity: sim, HasSimilarity: ok})
	}
	return s.ranker.RankDocuments(ownerID, query, candidates, topK), nil
}

func (s *SearchService) rankChunks(ctx context.Context, ownerID, query string, topK int) ([]domain.RankedCandidate, error) {
	if err := validateQuery(ownerID, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	logger.Section("Search")
	logger.Debug("Owner: %s, query: %q, topK: %d", ownerID, query, topK)

	var candidates []domain.Candidate
	if vec := s.queryVector(ctx, query); vec != nil {
		matches, err := s.vectors.Query(ctx, vec, ownerID, topK*candidateFactor)
		if err != nil {
			return nil, err
		}
		logger.Debug("Vector index returned %d matches", len(matches))
		candidates, err = s.hydrateMatches(ctx, ownerID, matches)
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		logger.Debug("Falling back to keyword-only ranking")
		var err error
		candidates, err = s.keywordCandidates(ctx, ownerID)
		if err != nil {
			return nil, err
		}
	}

	ranked := s.ranker.RankChunks(ownerID, query, candidates, topK)
	logger.Debug("Ranked %d of %d candidates", len(ranked), len(candidates))
	return ranked, nil
}

// queryVector embeds the query, or returns nil when semantic search is unavailable.
func (s *SearchService) queryVector(ctx context.Context, query string) []float32 {
	if s.vectors == nil || !s.embedder.Available() {
		return nil
	}
	vec, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed, using keyword ranking: %v", err)
		return nil
	}
	return vec
}

// hydrateMatches turns vector hits into candidates. Chunks missing from the
// store are rebuilt from the vector metadata preview.
func (s *SearchService) hydrateMatches(ctx context.Context, ownerID string, matches []domain.VectorMatch) ([]domain.Candidate, error) {
	docs := make(map[string]*domain.Document)
	candidates := make([]domain.Candidate, 0, len(matches))

	for _, m := range matches {
		if m.Metadata.OwnerID != ownerID {
			continue
		}
		doc, err := s.document(ctx, docs, m.Metadata.DocumentID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		chunk, err := s.docs.GetChunk(ctx, m.Metadata.DocumentID, m.Metadata.ChunkIndex)
		if errors.Is(err, domain.ErrNotFound) {
			chunk = &domain.Chunk{
				DocumentID: m.Metadata.DocumentID,
				OwnerID:    m.Metadata.OwnerID,
				Index:      m.Metadata.ChunkIndex,
				Content:    m.Metadata.ContentPreview,
			}
		} else if err != nil {
			return nil, err
		}

		candidates = append(candidates, domain.Candidate{
			Document:      doc,
			Chunk:         chunk,
			Similarity:    m.Similarity,
			HasSimilarity: true,
		})
	}
	return candidates, nil
}

func (s *SearchService) keywordCandidates(ctx context.Context, ownerID string) ([]domain.Candidate, error) {
	chunks, err := s.docs.ListOwnerChunks(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	docs := make(map[string]*domain.Document)
	candidates := make([]domain.Candidate, 0, len(chunks))
	for i := range chunks {
		doc, err := s.document(ctx, docs, chunks[i].DocumentID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, domain.Candidate{Document: doc, Chunk: &chunks[i]})
	}
	return candidates, nil
}

func (s *SearchService) document(ctx context.Context, seen map[string]*domain.Document, id string) (*domain.Document, error) {
	if doc, ok := seen[id]; ok {
		return doc, nil
	}
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	seen[id] = doc
	return doc, nil
}

func validateQuery(ownerID, query string) error {
	if strings.TrimSpace(ownerID) == "" {
		return domain.NewValidationError("ownerId", "is required")
	}
	if strings.TrimSpace(query) == "" {
		return domain.NewValidationError("query", "is required")
	}
	return nil
}
