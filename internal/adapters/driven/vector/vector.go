// Package vector holds the similarity math shared by the vector index adapters.
package vector

import (
	"math"
	"sort"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na < 1e-20 || nb < 1e-20 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK sorts matches by similarity descending, ties by key, and keeps k.
func TopK(matches []domain.VectorMatch, k int) []domain.VectorMatch {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Key < matches[j].Key
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// ValidateRecords checks that every record belongs to ownerID and carries a
// key and a vector.
func ValidateRecords(ownerID string, records []domain.VectorRecord) error {
	if ownerID == "" {
		return domain.NewValidationError("ownerId", "is required")
	}
	for _, r := range records {
		if r.Key == "" || len(r.Vector) == 0 {
			return domain.NewValidationError("record", "needs a key and a vector")
		}
		if r.Metadata.OwnerID != ownerID {
			return domain.NewValidationError("metadata.ownerId", "does not match the upsert owner")
		}
	}
	return nil
}
