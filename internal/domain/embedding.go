package domain

import (
	"context"
	"time"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	Model        string
	PromptTokens int
	TotalTokens  int
}

// Embedding is the persisted vector for one memory. At most one exists per
// memory (unique by MemoryID); it is deleted together with its memory.
type Embedding struct {
	MemoryID  string
	OwnerID   string
	Vector    []float32
	Model     string
	CreatedAt time.Time
}

// Match is one nearest-neighbor hit: a memory id with its cosine distance
// to the query vector (lower is more similar).
type Match struct {
	MemoryID string
	Distance float64
}
