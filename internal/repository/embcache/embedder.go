package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/db"
	"github.com/memoir-labs/memoir/internal/domain"
)

// store is the key-value surface the cache needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder decorates an Embedder with a vector cache keyed by the
// sha256 of the input text. The canonical embed text is deterministic, so
// re-embedding an unchanged memory or repeating a search query costs no
// provider tokens. Cache failures degrade to a provider call, never an
// error.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	keyPrefix  string
	cacheTotal *prometheus.CounterVec // "result" label: hit/miss; nilable
	logger     *zap.Logger
}

// New creates the caching decorator. Cache keys live under
// <keyPrefix>emb_cache:.
func New(
	inner domain.Embedder,
	s store,
	keyPrefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		keyPrefix:  keyPrefix + "emb_cache:",
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns the cached vector or falls through to the inner embedder.
// A hit reports zero token usage since no provider call happened.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.put(ctx, key, result.Embedding)
	return result, nil
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec := db.VectorFromBytes(string(data))
	if vec == nil {
		c.logger.Warn("malformed cached embedding", zap.String("key", key), zap.Int("len", len(data)))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) put(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, []byte(db.VectorToBytes(vec))); err != nil {
		c.logger.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
