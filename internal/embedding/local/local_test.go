package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedIsDeterministic(t *testing.T) {
	e := NewEmbedder(0)
	ctx := context.Background()
	first, err := e.Embed(ctx, "semantic retrieval over document pages")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "semantic retrieval over document pages")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDimensionDefaultsAndOverride(t *testing.T) {
	assert.Equal(t, DefaultDimension, NewEmbedder(0).Dimension())
	assert.Equal(t, 128, NewEmbedder(128).Dimension())
}

func TestNameIncludesDimension(t *testing.T) {
	assert.Equal(t, "local-384", NewEmbedder(0).Name())
	assert.Equal(t, "local-128", NewEmbedder(128).Name())
}

func TestEmbedIsL2Normalized(t *testing.T) {
	e := NewEmbedder(64)
	vec, err := e.Embed(context.Background(), "vectors should have unit length after normalization")
	require.NoError(t, err)
	require.Len(t, vec, 64)
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestDifferentTextsProduceDifferentVectors(t *testing.T) {
	e := NewEmbedder(0)
	ctx := context.Background()
	a, err := e.Embed(ctx, "chapter about database indexing")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "completely unrelated poetry stanza")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestEmbedEmptyTextYieldsZeroVector(t *testing.T) {
	e := NewEmbedder(32)
	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, vec, 32)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedBatchMatchesSingleEmbeds(t *testing.T) {
	e := NewEmbedder(0)
	ctx := context.Background()
	texts := []string{
		"first chunk of the document",
		"second chunk with other words",
		"third chunk closing the page",
	}
	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))
	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}
