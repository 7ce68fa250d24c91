// Package memory provides a brute-force in-memory vector index.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/propdocs/internal/adapters/driven/vector"
	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps records grouped by owner so a query only ever scans the
// caller's own vectors.
type Index struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]domain.VectorRecord
}

// New creates an empty index.
func New() *Index {
	return &Index{byOwner: make(map[string]map[string]domain.VectorRecord)}
}

// Upsert stores records for an owner, replacing any with the same key.
func (x *Index) Upsert(_ context.Context, ownerID string, records []domain.VectorRecord) error {
	if err := vector.ValidateRecords(ownerID, records); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	owned := x.byOwner[ownerID]
	if owned == nil {
		owned = make(map[string]domain.VectorRecord)
		x.byOwner[ownerID] = owned
	}
	for _, r := range records {
		stored := r
		stored.Vector = append([]float32(nil), r.Vector...)
		owned[r.Key] = stored
	}
	return nil
}

// Query returns up to topK of the owner's records nearest to v.
func (x *Index) Query(_ context.Context, v []float32, ownerID string, topK int) ([]domain.VectorMatch, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("ownerId", "is required")
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	owned := x.byOwner[ownerID]
	matches := make([]domain.VectorMatch, 0, len(owned))
	for key, r := range owned {
		matches = append(matches, domain.VectorMatch{
			Key:        key,
			Similarity: vector.Cosine(v, r.Vector),
			Metadata:   r.Metadata,
		})
	}
	return vector.TopK(matches, topK), nil
}

// DeleteByDocument removes every vector of a document.
func (x *Index) DeleteByDocument(_ context.Context, documentID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, owned := range x.byOwner {
		for key, r := range owned {
			if r.Metadata.DocumentID == documentID {
				delete(owned, key)
			}
		}
	}
	return nil
}

// DeleteByOwner removes every vector of an owner.
func (x *Index) DeleteByOwner(_ context.Context, ownerID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.byOwner, ownerID)
	return nil
}

// Count returns the number of stored vectors.
func (x *Index) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, owned := range x.byOwner {
		n += len(owned)
	}
	return n, nil
}

// Close is a no-op.
func (x *Index) Close() error {
	return nil
}
