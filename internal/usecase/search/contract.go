package search

import (
	"context"

	"github.com/memoir-labs/memoir/internal/domain"
)

// MemoryReader reads memories for search reconciliation.
type MemoryReader interface {
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]domain.Memory, error)
	GetMulti(ctx context.Context, ids []string) (map[string]domain.Memory, error)
}

// VectorSearcher runs owner-scoped nearest-neighbor queries.
type VectorSearcher interface {
	SearchNearest(ctx context.Context, ownerID string, vector []float32, k int, maxDistance float64) ([]domain.Match, error)
}

// Embedder vectorizes the search query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
