package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Generator is anything that can embed text
type Generator interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// Cached memoizes a Generator. Embeddings are deterministic for a given
// model, so repeated text (the same question, the same name memory) skips
// the network round trip.
type Cached struct {
	next  Generator
	cache *ristretto.Cache
}

// NewCached wraps next with a cache holding up to maxEntries vectors
func NewCached(next Generator, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxEntries)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	return &Cached{next: next, cache: cache}, nil
}

// Generate returns the cached vector for text or computes and stores it
func (c *Cached) Generate(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.next.Generate(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Set(text, vec, 1)
	return vec, nil
}

// Wait blocks until pending cache writes are visible
func (c *Cached) Wait() {
	c.cache.Wait()
}

// Close stops the cache's background goroutines
func (c *Cached) Close() {
	c.cache.Close()
}
