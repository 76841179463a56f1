package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/memoir-labs/memoir/internal/domain"
)

// Service is the background orchestrator: it drives the classification and
// embedding stages for individual memories.
//
// Error contract: business-level failures (unparseable model output, provider
// rejections, dimension mismatches) are folded into the returned outcome with
// a nil error; the scheduler must not retry them. A non-nil error means
// an infrastructure failure (store unreachable, deadline blown) that is safe
// and useful to retry.
type Service struct {
	mems    MemoryStore
	embs    EmbeddingStore
	engine  Classifier
	embed   Embedder
	model   string
	maxTags int
	logger  *zap.Logger
}

// New creates the orchestrator service.
func New(
	mems MemoryStore, embs EmbeddingStore,
	engine Classifier, embed Embedder,
	embeddingModel string, maxTags int, logger *zap.Logger,
) *Service {
	return &Service{
		mems:    mems,
		embs:    embs,
		engine:  engine,
		embed:   embed,
		model:   embeddingModel,
		maxTags: maxTags,
		logger:  logger,
	}
}

// ClassifyMemory classifies one memory and overwrites its category,
// confidence, tags and metadata. A vanished memory is a benign no-op.
func (s *Service) ClassifyMemory(ctx context.Context, id string) (ClassifyOutcome, error) {
	m, err := s.mems.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMemoryNotFound) {
			return ClassifyOutcome{MemoryID: id, Status: StatusSkipped, Error: "memory not found"}, nil
		}
		return ClassifyOutcome{}, fmt.Errorf("load memory: %w", err)
	}

	result, err := s.engine.Classify(ctx, m.Content, m.SourceType, m.Title)
	if err != nil {
		s.logger.Warn("classification failed",
			zap.String("memory_id", id), zap.Error(err))
		return ClassifyOutcome{MemoryID: id, Status: StatusFailed, Error: err.Error()}, nil
	}

	// Unknown labels leave the category unset rather than inventing taxonomy.
	category := result.Category
	if !domain.IsKnownCategory(category) {
		s.logger.Warn("classifier returned unknown category",
			zap.String("memory_id", id), zap.String("category", category))
		category = ""
	}

	metadata := result.ExtractedData
	if len(metadata) == 0 && category != "" {
		// The classifier sometimes returns a bare verdict; ask once more with
		// the category-specific extraction prompt. Never fatal.
		metadata = s.engine.ExtractEntities(ctx, m.Content, category)
	}

	tags := s.engine.GenerateTags(ctx, m.Content, s.maxTags)

	// Overwrite wholesale: last classification wins, no merge.
	m.Category = category
	m.Confidence = result.Confidence
	m.Classified = true
	m.Tags = tags
	m.Metadata = metadata
	m.UpdatedAt = time.Now()

	if err := s.mems.Update(ctx, &m); err != nil {
		return ClassifyOutcome{}, fmt.Errorf("save classification: %w", err)
	}

	return ClassifyOutcome{
		MemoryID:   id,
		Status:     StatusOK,
		Category:   result.Category,
		Confidence: result.Confidence,
		Tags:       tags,
	}, nil
}

// EmbedMemory embeds one memory's canonical text and upserts the vector,
// preserving the one-embedding-per-memory invariant.
func (s *Service) EmbedMemory(ctx context.Context, id string) (EmbedOutcome, error) {
	m, err := s.mems.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMemoryNotFound) {
			return EmbedOutcome{MemoryID: id, Status: StatusSkipped, Error: "memory not found"}, nil
		}
		return EmbedOutcome{}, fmt.Errorf("load memory: %w", err)
	}

	result, err := s.embed.Embed(ctx, m.EmbedText())
	if err != nil {
		s.logger.Warn("embedding failed",
			zap.String("memory_id", id), zap.Error(err))
		return EmbedOutcome{MemoryID: id, Status: StatusFailed, Error: err.Error()}, nil
	}

	model := result.Model
	if model == "" {
		model = s.model
	}

	emb := domain.Embedding{
		MemoryID: m.ID,
		OwnerID:  m.OwnerID,
		Vector:   result.Embedding,
		Model:    model,
	}
	if err := s.embs.Upsert(ctx, &emb); err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			// Configuration problem: retrying cannot fix it.
			s.logger.Error("embedding dimension mismatch",
				zap.String("memory_id", id), zap.Error(err))
			return EmbedOutcome{MemoryID: id, Status: StatusFailed, Error: err.Error()}, nil
		}
		return EmbedOutcome{}, fmt.Errorf("store embedding: %w", err)
	}

	return EmbedOutcome{
		MemoryID:   id,
		Status:     StatusOK,
		Dimensions: len(result.Embedding),
	}, nil
}

// ProcessMemory runs classification and embedding for one memory. The two
// stages have no data dependency, so they run concurrently and report their
// failures independently.
func (s *Service) ProcessMemory(ctx context.Context, id string) (ProcessOutcome, error) {
	var (
		wg          sync.WaitGroup
		classifyOut ClassifyOutcome
		classifyErr error
		embedOut    EmbedOutcome
		embedErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		classifyOut, classifyErr = s.ClassifyMemory(ctx, id)
	}()
	go func() {
		defer wg.Done()
		embedOut, embedErr = s.EmbedMemory(ctx, id)
	}()
	wg.Wait()

	out := ProcessOutcome{
		MemoryID:       id,
		Classification: classifyOut,
		Embedding:      embedOut,
	}

	if classifyErr != nil || embedErr != nil {
		return out, errors.Join(classifyErr, embedErr)
	}
	return out, nil
}

// EmbedBatch embeds each memory independently: one failure never aborts the
// rest, and every id ends up either in Results or ErrorDetails.
func (s *Service) EmbedBatch(ctx context.Context, ids []string) BatchOutcome {
	out := BatchOutcome{
		Results:      make([]EmbedOutcome, 0, len(ids)),
		ErrorDetails: make([]BatchError, 0),
	}

	for _, id := range ids {
		res, err := s.EmbedMemory(ctx, id)
		switch {
		case err != nil:
			out.Errors++
			out.ErrorDetails = append(out.ErrorDetails, BatchError{MemoryID: id, Error: err.Error()})
		case res.Status != StatusOK:
			out.Errors++
			out.ErrorDetails = append(out.ErrorDetails, BatchError{MemoryID: id, Error: res.Error})
		default:
			out.Processed++
			out.Results = append(out.Results, res)
		}
	}

	return out
}
