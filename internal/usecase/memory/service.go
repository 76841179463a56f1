package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/domain"
)

// listScanPage is the page size used when filtering a listing by category.
const listScanPage = 100

// CreateInput carries the user-supplied fields of a new memory.
type CreateInput struct {
	OwnerID    string
	Title      string
	Content    string
	SourceType string
	SourceURL  string
	Category   string // optional; must resolve against the taxonomy when set
	Metadata   map[string]any
}

// Service owns the memory lifecycle: create (with asynchronous enrichment),
// read, list and delete with vector cleanup.
type Service struct {
	mems     MemoryStore
	embs     EmbeddingStore
	enqueuer Enqueuer
	logger   *zap.Logger
}

// New creates a memory service.
func New(mems MemoryStore, embs EmbeddingStore, enqueuer Enqueuer, logger *zap.Logger) *Service {
	return &Service{mems: mems, embs: embs, enqueuer: enqueuer, logger: logger}
}

// Create validates and persists a new memory, then hands it to the background
// pipeline for classification and embedding. The memory is returned
// immediately in its unclassified state; enrichment lands asynchronously.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Memory, error) {
	if strings.TrimSpace(in.Content) == "" {
		return domain.Memory{}, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}
	if in.OwnerID == "" {
		return domain.Memory{}, fmt.Errorf("%w: owner id is required", domain.ErrInvalidInput)
	}
	if in.Category != "" && !domain.IsKnownCategory(in.Category) {
		return domain.Memory{}, fmt.Errorf("category %q: %w", in.Category, domain.ErrCategoryNotFound)
	}

	now := time.Now().UTC()
	m := domain.Memory{
		ID:         uuid.NewString(),
		OwnerID:    in.OwnerID,
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
		SourceType: domain.ParseSourceType(in.SourceType),
		SourceURL:  in.SourceURL,
		Category:   in.Category,
		Metadata:   in.Metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.mems.Create(ctx, &m); err != nil {
		return domain.Memory{}, fmt.Errorf("create memory: %w", err)
	}

	if !s.enqueuer.EnqueueProcess(m.ID) {
		// The record exists either way; enrichment can be replayed later.
		s.logger.Warn("pipeline queue full, enrichment deferred",
			zap.String("memory_id", m.ID))
	}

	return m, nil
}

// Get returns one memory, enforcing ownership.
func (s *Service) Get(ctx context.Context, ownerID, id string) (domain.Memory, error) {
	m, err := s.mems.Get(ctx, id)
	if err != nil {
		return domain.Memory{}, err
	}
	if m.OwnerID != ownerID {
		return domain.Memory{}, fmt.Errorf("memory %s: %w", id, domain.ErrForbidden)
	}
	return m, nil
}

// List returns a page of the owner's memories, newest first. A non-empty
// category narrows the page to memories carrying that taxonomy label.
func (s *Service) List(ctx context.Context, ownerID, category string, offset, limit int) ([]domain.Memory, error) {
	if offset < 0 {
		offset = 0
	}
	if category == "" {
		return s.mems.ListByOwner(ctx, ownerID, offset, limit)
	}
	if !domain.IsKnownCategory(category) {
		return nil, fmt.Errorf("category %q: %w", category, domain.ErrCategoryNotFound)
	}
	if limit <= 0 {
		return []domain.Memory{}, nil
	}

	// The recency index is not category-aware, so page through it and
	// filter until the requested window is full.
	out := make([]domain.Memory, 0, limit)
	skipped := 0
	for page := 0; ; page++ {
		batch, err := s.mems.ListByOwner(ctx, ownerID, page*listScanPage, listScanPage)
		if err != nil {
			return nil, err
		}
		for _, m := range batch {
			if m.Category != category {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			out = append(out, m)
			if len(out) == limit {
				return out, nil
			}
		}
		if len(batch) < listScanPage {
			return out, nil
		}
	}
}

// Delete removes a memory and its embedding. Deleting something already gone
// is not an error.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	m, err := s.mems.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.OwnerID != ownerID {
		return fmt.Errorf("memory %s: %w", id, domain.ErrForbidden)
	}

	if err := s.mems.Delete(ctx, &m); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if err := s.embs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	return nil
}
