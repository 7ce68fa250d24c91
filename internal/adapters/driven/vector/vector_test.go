package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTopK_TiesBrokenByKey(t *testing.T) {
	matches := []domain.VectorMatch{
		{Key: "b", Similarity: 0.5},
		{Key: "a", Similarity: 0.5},
		{Key: "c", Similarity: 0.9},
	}
	got := TopK(matches, 2)
	assert.Equal(t, []string{"c", "a"}, []string{got[0].Key, got[1].Key})
}

func TestValidateRecords(t *testing.T) {
	ok := domain.VectorRecord{Key: "d-0", Vector: []float32{1}, Metadata: domain.VectorMetadata{OwnerID: "o"}}
	assert.NoError(t, ValidateRecords("o", []domain.VectorRecord{ok}))
	assert.Error(t, ValidateRecords("", nil))
	assert.Error(t, ValidateRecords("other", []domain.VectorRecord{ok}))
	assert.Error(t, ValidateRecords("o", []domain.VectorRecord{{Key: "x", Metadata: ok.Metadata}}))
}
