package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/memoir-labs/memoir/internal/domain"
)

// textScanPage is the recency-index page size while scanning for substring
// matches.
const textScanPage = 100

// Hit is one semantic search result: the memory with its cosine distance to
// the query (ascending across a result set).
type Hit struct {
	Memory   domain.Memory
	Distance float64
}

// Service answers text and semantic search over a user's memories.
type Service struct {
	mems    MemoryReader
	vectors VectorSearcher
	embed   Embedder

	defaultLimit     int
	maxLimit         int
	defaultThreshold float64
}

// New creates a retrieval service.
func New(mems MemoryReader, vectors VectorSearcher, embed Embedder) *Service {
	return &Service{
		mems:             mems,
		vectors:          vectors,
		embed:            embed,
		defaultLimit:     20,
		maxLimit:         100,
		defaultThreshold: 0.5,
	}
}

// WithLimits configures result limit bounds.
func (s *Service) WithLimits(defaultLimit, maxLimit int) *Service {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// WithDistanceThreshold configures the default semantic cutoff.
func (s *Service) WithDistanceThreshold(threshold float64) *Service {
	if threshold > 0 {
		s.defaultThreshold = threshold
	}
	return s
}

// TextSearch returns the owner's memories whose title or content contains
// query (case-insensitive), newest first, at most limit.
func (s *Service) TextSearch(ctx context.Context, ownerID, query string, limit int) ([]domain.Memory, error) {
	limit = s.clampLimit(limit)
	needle := strings.ToLower(query)

	out := make([]domain.Memory, 0, limit)
	for offset := 0; len(out) < limit; offset += textScanPage {
		page, err := s.mems.ListByOwner(ctx, ownerID, offset, textScanPage)
		if err != nil {
			return nil, fmt.Errorf("list memories: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			if matchesText(&page[i], needle) {
				out = append(out, page[i])
				if len(out) == limit {
					break
				}
			}
		}

		if len(page) < textScanPage {
			break
		}
	}

	return out, nil
}

// SemanticSearch embeds the query, asks the vector store for the nearest
// memories of this owner, then reconciles the ranking against the record
// store. Ids that no longer resolve (deleted mid-flight) are dropped
// silently; an empty result is a valid answer.
func (s *Service) SemanticSearch(
	ctx context.Context, ownerID, query string, limit int, threshold float64,
) ([]Hit, error) {
	limit = s.clampLimit(limit)
	if threshold <= 0 {
		threshold = s.defaultThreshold
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		// No meaningful fallback here: surface a generic search failure.
		return nil, fmt.Errorf("%w: vectorize query: %w", domain.ErrSearchFailed, err)
	}

	matches, err := s.vectors.SearchNearest(ctx, ownerID, embResult.Embedding, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbors: %w", err)
	}
	if len(matches) == 0 {
		return []Hit{}, nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.MemoryID
	}

	// The bulk fetch carries no ordering; the matches slice is the rank map.
	byID, err := s.mems.GetMulti(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch memories: %w", err)
	}

	hits := make([]Hit, 0, len(matches))
	for _, match := range matches {
		m, ok := byID[match.MemoryID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Memory: m, Distance: match.Distance})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

func matchesText(m *domain.Memory, lowerNeedle string) bool {
	if lowerNeedle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.Title), lowerNeedle) ||
		strings.Contains(strings.ToLower(m.Content), lowerNeedle)
}
