package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(0)
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, "hashing-384", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	s := NewEmbeddingService(64)

	a, err := s.Embed(context.Background(), "Federated retrieval keeps data local")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "federated RETRIEVAL keeps data local")
	require.NoError(t, err)

	require.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-6)
}

func TestEmbed_EmptyTextIsZeroVector(t *testing.T) {
	s := NewEmbeddingService(16)

	v, err := s.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestEmbed_SimilarTextScoresHigher(t *testing.T) {
	s := NewEmbeddingService(DefaultDimensions)
	ctx := context.Background()

	query, _ := s.Embed(ctx, "how does federated learning protect privacy")
	near, _ := s.Embed(ctx, "federated learning protects privacy by keeping data on device")
	far, _ := s.Embed(ctx, "the recipe needs two cups of flour and an egg")

	assert.Greater(t, dot(query, near), dot(query, far))
}

func TestEmbedBatch_KeepsOrder(t *testing.T) {
	s := NewEmbeddingService(32)
	ctx := context.Background()

	batch, err := s.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, batch, 2)

	alpha, _ := s.Embed(ctx, "alpha")
	beta, _ := s.Embed(ctx, "beta")
	assert.Equal(t, alpha, batch[0])
	assert.Equal(t, beta, batch[1])
}

func TestEmbed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbeddingService(8).EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
