package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/domain"
)

func newTestService(
	mems *mockMemoryStore, embs *mockEmbeddingStore,
	cls *mockClassifier, emb *mockEmbedder,
) *Service {
	return New(mems, embs, cls, emb, "test-embedding-model", 5, zap.NewNop())
}

func testMemory(id string) domain.Memory {
	return domain.Memory{
		ID:      id,
		OwnerID: "owner-1",
		Title:   "1984",
		Content: "1984 by George Orwell, finish by next month",
	}
}

// --- ClassifyMemory ---

func TestClassifyMemory_OK(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	cls := &mockClassifier{
		result: domain.ClassificationResult{
			Category:      "books",
			Confidence:    0.9,
			ExtractedData: map[string]any{"author": "George Orwell"},
		},
		tags: []string{"books", "dystopia"},
	}
	svc := newTestService(mems, &mockEmbeddingStore{}, cls, &mockEmbedder{})

	out, err := svc.ClassifyMemory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusOK {
		t.Fatalf("expected ok, got %v (%s)", out.Status, out.Error)
	}
	if out.Category != "books" || out.Confidence != 0.9 {
		t.Errorf("unexpected outcome: %+v", out)
	}

	saved := mems.memories["m1"]
	if !saved.Classified {
		t.Error("expected memory marked classified")
	}
	if saved.Category != "books" {
		t.Errorf("expected category books, got %q", saved.Category)
	}
	if saved.Metadata["author"] != "George Orwell" {
		t.Errorf("expected extracted metadata persisted, got %v", saved.Metadata)
	}
	if len(saved.Tags) != 2 {
		t.Errorf("expected tags persisted, got %v", saved.Tags)
	}
	if cls.entitiesCalled {
		t.Error("entity extraction should be skipped when the classifier already extracted data")
	}
}

func TestClassifyMemory_EntityExtractionFallback(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	cls := &mockClassifier{
		result:   domain.ClassificationResult{Category: "books", Confidence: 0.8},
		entities: map[string]any{"title": "1984"},
	}
	svc := newTestService(mems, &mockEmbeddingStore{}, cls, &mockEmbedder{})

	if _, err := svc.ClassifyMemory(context.Background(), "m1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cls.entitiesCalled {
		t.Error("expected a second extraction call when the verdict carried no data")
	}
	if mems.memories["m1"].Metadata["title"] != "1984" {
		t.Errorf("expected fallback entities persisted, got %v", mems.memories["m1"].Metadata)
	}
}

func TestClassifyMemory_UnknownCategoryLeftUnset(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	cls := &mockClassifier{
		result: domain.ClassificationResult{Category: "astrology", Confidence: 0.9},
	}
	svc := newTestService(mems, &mockEmbeddingStore{}, cls, &mockEmbedder{})

	out, err := svc.ClassifyMemory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusOK {
		t.Fatalf("expected ok, got %v", out.Status)
	}
	if got := mems.memories["m1"].Category; got != "" {
		t.Errorf("expected unknown category left unset, got %q", got)
	}
	if cls.entitiesCalled {
		t.Error("no extraction prompt exists for an unknown category")
	}
}

func TestClassifyMemory_NotFoundIsSkipped(t *testing.T) {
	svc := newTestService(newMockMemoryStore(), &mockEmbeddingStore{}, &mockClassifier{}, &mockEmbedder{})

	out, err := svc.ClassifyMemory(context.Background(), "gone")
	if err != nil {
		t.Fatalf("a vanished memory must not be an error, got %v", err)
	}
	if out.Status != StatusSkipped {
		t.Errorf("expected skipped, got %v", out.Status)
	}
}

func TestClassifyMemory_LLMFailureIsNotRetryable(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	cls := &mockClassifier{err: domain.ErrClassificationFailed}
	svc := newTestService(mems, &mockEmbeddingStore{}, cls, &mockEmbedder{})

	out, err := svc.ClassifyMemory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("business failure must not surface as a task error, got %v", err)
	}
	if out.Status != StatusFailed {
		t.Errorf("expected failed, got %v", out.Status)
	}
	if len(mems.updated) != 0 {
		t.Error("a failed classification must not write anything")
	}
}

func TestClassifyMemory_StoreFailureIsRetryable(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	mems.updateErr = errors.New("connection reset")
	cls := &mockClassifier{result: domain.ClassificationResult{Category: "books"}}
	svc := newTestService(mems, &mockEmbeddingStore{}, cls, &mockEmbedder{})

	if _, err := svc.ClassifyMemory(context.Background(), "m1"); err == nil {
		t.Fatal("expected infrastructure error to propagate for retry")
	}
}

// --- EmbedMemory ---

func TestEmbedMemory_OK(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	embs := &mockEmbeddingStore{}
	emb := &mockEmbedder{vec: []float32{0.1, 0.2, 0.3}, model: "text-embedding-3-small"}
	svc := newTestService(mems, embs, &mockClassifier{}, emb)

	out, err := svc.EmbedMemory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusOK || out.Dimensions != 3 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(embs.upserted) != 1 {
		t.Fatalf("expected one upsert, got %d", len(embs.upserted))
	}
	stored := embs.upserted[0]
	if stored.MemoryID != "m1" || stored.OwnerID != "owner-1" {
		t.Errorf("unexpected stored embedding: %+v", stored)
	}
	if stored.Model != "text-embedding-3-small" {
		t.Errorf("expected provider model recorded, got %q", stored.Model)
	}
}

func TestEmbedMemory_NotFoundIsSkipped(t *testing.T) {
	svc := newTestService(newMockMemoryStore(), &mockEmbeddingStore{}, &mockClassifier{}, &mockEmbedder{})

	out, err := svc.EmbedMemory(context.Background(), "gone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusSkipped {
		t.Errorf("expected skipped, got %v", out.Status)
	}
}

func TestEmbedMemory_ProviderFailure(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	emb := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := newTestService(mems, &mockEmbeddingStore{}, &mockClassifier{}, emb)

	out, err := svc.EmbedMemory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("provider failure must be folded into the outcome, got %v", err)
	}
	if out.Status != StatusFailed {
		t.Errorf("expected failed, got %v", out.Status)
	}
}

func TestEmbedMemory_DimMismatchIsFatal(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	embs := &mockEmbeddingStore{upsertErr: domain.ErrVectorDimMismatch}
	emb := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(mems, embs, &mockClassifier{}, emb)

	out, err := svc.EmbedMemory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("a dimension mismatch cannot be fixed by retrying, got %v", err)
	}
	if out.Status != StatusFailed {
		t.Errorf("expected failed, got %v", out.Status)
	}
}

func TestEmbedMemory_StoreFailureIsRetryable(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	embs := &mockEmbeddingStore{upsertErr: errors.New("broken pipe")}
	emb := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(mems, embs, &mockClassifier{}, emb)

	if _, err := svc.EmbedMemory(context.Background(), "m1"); err == nil {
		t.Fatal("expected infrastructure error to propagate for retry")
	}
}

// --- ProcessMemory ---

func TestProcessMemory_BothStagesRun(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	embs := &mockEmbeddingStore{}
	cls := &mockClassifier{result: domain.ClassificationResult{Category: "books", Confidence: 0.9}}
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newTestService(mems, embs, cls, emb)

	out, err := svc.ProcessMemory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Classification.Status != StatusOK {
		t.Errorf("classification: expected ok, got %v", out.Classification.Status)
	}
	if out.Embedding.Status != StatusOK {
		t.Errorf("embedding: expected ok, got %v", out.Embedding.Status)
	}
	if len(embs.upserted) != 1 {
		t.Errorf("expected one embedding upsert, got %d", len(embs.upserted))
	}
}

func TestProcessMemory_StageFailureIsolated(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"))
	embs := &mockEmbeddingStore{}
	cls := &mockClassifier{err: domain.ErrClassificationFailed}
	emb := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(mems, embs, cls, emb)

	out, err := svc.ProcessMemory(context.Background(), "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Classification.Status != StatusFailed {
		t.Errorf("classification: expected failed, got %v", out.Classification.Status)
	}
	// The failed classify stage must not prevent the embedding.
	if out.Embedding.Status != StatusOK {
		t.Errorf("embedding: expected ok, got %v", out.Embedding.Status)
	}
}

// --- EmbedBatch ---

func TestEmbedBatch_FailureDoesNotAbort(t *testing.T) {
	mems := newMockMemoryStore(testMemory("m1"), testMemory("m2"))
	embs := &mockEmbeddingStore{}
	emb := &mockEmbedder{vec: []float32{0.1}}
	svc := newTestService(mems, embs, &mockClassifier{}, emb)

	out := svc.EmbedBatch(context.Background(), []string{"m1", "nonexistent", "m2"})

	if out.Processed != 2 {
		t.Errorf("expected 2 processed, got %d", out.Processed)
	}
	if out.Errors != 1 {
		t.Errorf("expected 1 error, got %d", out.Errors)
	}
	if len(out.ErrorDetails) != 1 || out.ErrorDetails[0].MemoryID != "nonexistent" {
		t.Errorf("unexpected error details: %+v", out.ErrorDetails)
	}
	if len(out.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(out.Results))
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc := newTestService(newMockMemoryStore(), &mockEmbeddingStore{}, &mockClassifier{}, &mockEmbedder{})

	out := svc.EmbedBatch(context.Background(), nil)
	if out.Processed != 0 || out.Errors != 0 {
		t.Errorf("expected empty outcome, got %+v", out)
	}
	if out.Results == nil || out.ErrorDetails == nil {
		t.Error("result slices must be non-nil for JSON shape stability")
	}
}
