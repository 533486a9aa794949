package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	dim   int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	vec := make([]float32, c.dim)
	vec[0] = float32(len(text))
	return vec, nil
}

func (c *countingEmbedder) Dimension() int { return c.dim }

func TestCacheServesRepeatedText(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	e := WrapLRU(inner, 16, time.Minute, nil)

	first, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = e.Embed(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCacheReturnsCopies(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	e := WrapLRU(inner, 16, time.Minute, nil)

	first, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	first[0] = 999

	second, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.NotEqual(t, float32(999), second[0])
}

func TestCacheDoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{dim: 4, err: errors.New("boom")}
	e := WrapLRU(inner, 16, time.Minute, nil)

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	_, err = e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestWrapLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{dim: 4}
	assert.Equal(t, inner, WrapLRU(inner, 0, time.Minute, nil))
	assert.Equal(t, inner, WrapLRU(inner, 16, 0, nil))
}

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(64)

	a, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "the quick brown fox")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, 64, e.Dimension())
}

func TestHashingEmbedderNormalized(t *testing.T) {
	e := NewHashingEmbedder(64)

	vec, err := e.Embed(context.Background(), "some text with several words")
	require.NoError(t, err)

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashingEmbedderSimilarTextsScoreHigher(t *testing.T) {
	e := NewHashingEmbedder(256)
	ctx := context.Background()

	a, err := e.Embed(ctx, "postgres connection pooling and tuning")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "tuning postgres connection pooling")
	require.NoError(t, err)
	c, err := e.Embed(ctx, "baking sourdough bread at home")
	require.NoError(t, err)

	dot := func(x, y []float32) float32 {
		var s float32
		for i := range x {
			s += x[i] * y[i]
		}
		return s
	}
	assert.Greater(t, dot(a, b), dot(a, c))
}
