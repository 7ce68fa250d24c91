package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

func record(owner, doc string, index int, v ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		Key:    domain.VectorKey(doc, index),
		Vector: v,
		Metadata: domain.VectorMetadata{
			OwnerID:        owner,
			DocumentID:     doc,
			ChunkIndex:     index,
			ContentPreview: "preview",
		},
	}
}

func TestIndex_QueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	x := New()
	require.NoError(t, x.Upsert(ctx, "prop-1", []domain.VectorRecord{
		record("prop-1", "doc-a", 0, 1, 0),
		record("prop-1", "doc-a", 1, 0.7, 0.7),
		record("prop-1", "doc-b", 0, 0, 1),
	}))

	matches, err := x.Query(ctx, []float32{1, 0}, "prop-1", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "doc-a-0", matches[0].Key)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, "doc-a-1", matches[1].Key)
	assert.Equal(t, "preview", matches[1].Metadata.ContentPreview)
}

func TestIndex_QueryIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	x := New()
	require.NoError(t, x.Upsert(ctx, "prop-1", []domain.VectorRecord{record("prop-1", "doc-a", 0, 1, 0)}))
	require.NoError(t, x.Upsert(ctx, "prop-2", []domain.VectorRecord{record("prop-2", "doc-b", 0, 1, 0)}))

	matches, err := x.Query(ctx, []float32{1, 0}, "prop-2", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "prop-2", matches[0].Metadata.OwnerID)

	_, err = x.Query(ctx, []float32{1, 0}, "", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_UpsertRejectsForeignMetadata(t *testing.T) {
	x := New()
	err := x.Upsert(context.Background(), "prop-1", []domain.VectorRecord{record("prop-2", "doc", 0, 1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	n, _ := x.Count(context.Background())
	assert.Zero(t, n)
}

func TestIndex_UpsertReplacesSameKey(t *testing.T) {
	ctx := context.Background()
	x := New()
	require.NoError(t, x.Upsert(ctx, "prop-1", []domain.VectorRecord{record("prop-1", "doc", 0, 1, 0)}))
	require.NoError(t, x.Upsert(ctx, "prop-1", []domain.VectorRecord{record("prop-1", "doc", 0, 0, 1)}))

	n, _ := x.Count(ctx)
	assert.Equal(t, 1, n)
	matches, _ := x.Query(ctx, []float32{0, 1}, "prop-1", 1)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
}

func TestIndex_DeletesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	x := New()
	require.NoError(t, x.Upsert(ctx, "prop-1", []domain.VectorRecord{
		record("prop-1", "doc-a", 0, 1, 0),
		record("prop-1", "doc-b", 0, 0, 1),
	}))

	require.NoError(t, x.DeleteByDocument(ctx, "doc-a"))
	require.NoError(t, x.DeleteByDocument(ctx, "doc-a"))
	n, _ := x.Count(ctx)
	assert.Equal(t, 1, n)

	require.NoError(t, x.DeleteByOwner(ctx, "prop-1"))
	require.NoError(t, x.DeleteByOwner(ctx, "prop-1"))
	require.NoError(t, x.DeleteByOwner(ctx, "never-existed"))
	n, _ = x.Count(ctx)
	assert.Zero(t, n)
	require.NoError(t, x.Close())
}
