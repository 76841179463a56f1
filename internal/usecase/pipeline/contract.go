package pipeline

import (
	"context"

	"github.com/memoir-labs/memoir/internal/domain"
)

// MemoryStore loads and mutates memories.
type MemoryStore interface {
	Get(ctx context.Context, id string) (domain.Memory, error)
	Update(ctx context.Context, m *domain.Memory) error
}

// EmbeddingStore upserts embeddings keyed by memory id.
type EmbeddingStore interface {
	Upsert(ctx context.Context, emb *domain.Embedding) error
}

// Classifier is the classification engine boundary.
type Classifier interface {
	Classify(ctx context.Context, content string, sourceType domain.SourceType, title string) (domain.ClassificationResult, error)
	ExtractEntities(ctx context.Context, content, category string) map[string]any
	GenerateTags(ctx context.Context, content string, maxTags int) []string
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
