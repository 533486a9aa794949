package embedding

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/airaojagruti611/HTS-AI-agent/internal/domain"
)

// WrapLRU layers an expiring LRU cache over an embedder. Identical text
// within the TTL is served from memory, which matters during re-ingestion
// of overlapping chunk sets. A size or ttl of zero disables caching.
func WrapLRU(next domain.Embedder, size int, ttl time.Duration, log *zap.Logger) domain.Embedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &cachedEmbedder{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
		log:   log,
	}
}

type cachedEmbedder struct {
	next  domain.Embedder
	cache *expirable.LRU[string, []float32]
	log   *zap.Logger
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := c.cache.Get(text); ok {
		c.log.Debug("embedding cache hit", zap.Int("text_len", len(text)))
		return cloneVector(cached), nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, cloneVector(vec))
	return vec, nil
}

func (c *cachedEmbedder) Dimension() int { return c.next.Dimension() }

func cloneVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
