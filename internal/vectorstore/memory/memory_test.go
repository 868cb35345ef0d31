package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfsearch/internal/domain"
)

func record(id int, page int, vector ...float64) domain.Record {
	return domain.Record{
		ID:     id,
		Vector: vector,
		Payload: domain.Payload{
			Text:     "chunk",
			Page:     page,
			Provider: "local-2",
		},
	}
}

func TestCreateCollectionReportsExisting(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()

	created, err := x.CreateCollection(ctx, "doc-a", 2, domain.DistanceCosine)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = x.CreateCollection(ctx, "doc-a", 2, domain.DistanceCosine)
	require.NoError(t, err)
	assert.False(t, created, "existing collection must report created=false, not an error")
}

func TestCreateCollectionRejectsInvalidDimension(t *testing.T) {
	x := NewIndex()
	_, err := x.CreateCollection(context.Background(), "doc-a", 0, domain.DistanceCosine)
	require.Error(t, err)
}

func TestQueryReturnsTopKByCosine(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	_, err := x.CreateCollection(ctx, "doc-a", 2, domain.DistanceCosine)
	require.NoError(t, err)

	// Angles spread around the query vector (1, 0).
	require.NoError(t, x.Upload(ctx, "doc-a", []domain.Record{
		record(0, 1, 1, 0),      // identical, score 1
		record(1, 2, 1, 0.2),    // close
		record(2, 3, 1, 1),      // diagonal
		record(3, 4, 0, 1),      // orthogonal, score 0
		record(4, 5, -1, 0.001), // opposite
	}))

	hits, err := x.Query(ctx, "doc-a", []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Payload.Page)
	assert.Equal(t, 2, hits[1].Payload.Page)
	assert.Equal(t, 3, hits[2].Payload.Page)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score, "scores must be descending")
	}
}

func TestQueryLimitExceedsRecordCount(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	_, err := x.CreateCollection(ctx, "doc-a", 2, domain.DistanceCosine)
	require.NoError(t, err)
	require.NoError(t, x.Upload(ctx, "doc-a", []domain.Record{record(0, 1, 1, 0)}))

	hits, err := x.Query(ctx, "doc-a", []float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestQueryRejectsWrongDimension(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	_, err := x.CreateCollection(ctx, "doc-a", 2, domain.DistanceCosine)
	require.NoError(t, err)

	_, err = x.Query(ctx, "doc-a", []float64{1, 0, 0}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestUploadRejectsWrongDimension(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	_, err := x.CreateCollection(ctx, "doc-a", 2, domain.DistanceCosine)
	require.NoError(t, err)

	err = x.Upload(ctx, "doc-a", []domain.Record{record(0, 1, 1, 0, 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestUploadToMissingCollection(t *testing.T) {
	x := NewIndex()
	err := x.Upload(context.Background(), "nope", []domain.Record{record(0, 1, 1, 0)})
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestUploadReplacesRecordsWithSameID(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	_, err := x.CreateCollection(ctx, "doc-a", 2, domain.DistanceCosine)
	require.NoError(t, err)

	require.NoError(t, x.Upload(ctx, "doc-a", []domain.Record{record(0, 1, 1, 0)}))
	require.NoError(t, x.Upload(ctx, "doc-a", []domain.Record{record(0, 9, 1, 0)}))

	hits, err := x.Query(ctx, "doc-a", []float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 9, hits[0].Payload.Page)
}

func TestDeleteCollection(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	_, err := x.CreateCollection(ctx, "doc-a", 2, domain.DistanceCosine)
	require.NoError(t, err)

	require.NoError(t, x.DeleteCollection(ctx, "doc-a"))
	assert.ErrorIs(t, x.DeleteCollection(ctx, "doc-a"), domain.ErrCollectionNotFound)

	_, err = x.Query(ctx, "doc-a", []float64{1, 0}, 3)
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestCosineZeroVector(t *testing.T) {
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 0}))
	assert.InDelta(t, 1.0, cosine([]float64{2, 0}, []float64{5, 0}), 1e-12)
}
