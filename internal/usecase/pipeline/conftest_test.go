package pipeline

import (
	"context"
	"sync"

	"github.com/memoir-labs/memoir/internal/domain"
)

// --- Mocks ---

type mockMemoryStore struct {
	mu       sync.Mutex
	memories map[string]domain.Memory

	getErr    error
	updateErr error
	updated   []domain.Memory
}

func newMockMemoryStore(memories ...domain.Memory) *mockMemoryStore {
	byID := make(map[string]domain.Memory, len(memories))
	for _, m := range memories {
		byID[m.ID] = m
	}
	return &mockMemoryStore{memories: byID}
}

func (s *mockMemoryStore) Get(_ context.Context, id string) (domain.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return domain.Memory{}, s.getErr
	}
	m, ok := s.memories[id]
	if !ok {
		return domain.Memory{}, domain.ErrMemoryNotFound
	}
	return m, nil
}

func (s *mockMemoryStore) Update(_ context.Context, m *domain.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.memories[m.ID] = *m
	s.updated = append(s.updated, *m)
	return nil
}

type mockEmbeddingStore struct {
	mu        sync.Mutex
	upsertErr error
	upserted  []domain.Embedding
}

func (s *mockEmbeddingStore) Upsert(_ context.Context, e *domain.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, *e)
	return nil
}

type mockClassifier struct {
	result domain.ClassificationResult
	err    error

	entities map[string]any
	tags     []string

	entitiesCalled bool
}

func (c *mockClassifier) Classify(
	_ context.Context, _ string, _ domain.SourceType, _ string,
) (domain.ClassificationResult, error) {
	return c.result, c.err
}

func (c *mockClassifier) ExtractEntities(_ context.Context, _, _ string) map[string]any {
	c.entitiesCalled = true
	if c.entities == nil {
		return map[string]any{}
	}
	return c.entities
}

func (c *mockClassifier) GenerateTags(_ context.Context, _ string, _ int) []string {
	return c.tags
}

type mockEmbedder struct {
	vec   []float32
	model string
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, Model: m.model}, nil
}
