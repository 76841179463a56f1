package memory

import (
	"context"

	"github.com/memoir-labs/memoir/internal/domain"
)

// MemoryStore is the persistence surface this service needs.
type MemoryStore interface {
	Create(ctx context.Context, m *domain.Memory) error
	Get(ctx context.Context, id string) (domain.Memory, error)
	Update(ctx context.Context, m *domain.Memory) error
	Delete(ctx context.Context, m *domain.Memory) error
	ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]domain.Memory, error)
}

// EmbeddingStore cascades vector cleanup on delete.
type EmbeddingStore interface {
	Delete(ctx context.Context, memoryID string) error
}

// Enqueuer hands a freshly created memory to the background pipeline.
// A false return means the queue is saturated and the task was dropped.
type Enqueuer interface {
	EnqueueProcess(memoryID string) bool
}
