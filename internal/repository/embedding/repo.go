package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memoir-labs/memoir/internal/db"
	"github.com/memoir-labs/memoir/internal/domain"
)

// Hash field names for embedding records.
const (
	fieldOwnerID   = "owner_id"
	fieldModel     = "model"
	fieldVector    = "vector"
	fieldCreatedAt = "created_at"
)

// store is the consumer interface for embedding persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig tunes the vector index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo is the vector store: one embedding hash per memory, keyed by memory
// id, indexed for approximate nearest-neighbor search by cosine distance.
type Repo struct {
	store  store
	dim    int
	prefix string
	hnsw   HNSWConfig
}

// New creates an embedding repository for vectors of the given dimension.
func New(s store, dim int, keyPrefix string) *Repo {
	return &Repo{store: s, dim: dim, prefix: keyPrefix}
}

// WithHNSW overrides the HNSW build parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

func (r *Repo) key(memoryID string) string {
	return r.prefix + "embedding:" + memoryID
}

func (r *Repo) indexName() string {
	return r.prefix + "embeddings:idx"
}

// EnsureIndex creates the ANN index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     r.indexName(),
		Prefixes: []string{r.prefix + "embedding:"},
		Fields: []db.IndexField{
			{Name: fieldOwnerID, Type: db.IndexFieldTag},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create embedding index: %w", err)
	}
	return nil
}

// Upsert writes the embedding for a memory, updating in place when one
// already exists. The memory-id key guarantees at most one embedding per
// memory even under concurrent or repeated invocations; created_at is
// preserved across updates.
func (r *Repo) Upsert(ctx context.Context, emb *domain.Embedding) error {
	if len(emb.Vector) != r.dim {
		return fmt.Errorf("embedding for memory %s has %d dimensions, index expects %d: %w",
			emb.MemoryID, len(emb.Vector), r.dim, domain.ErrVectorDimMismatch)
	}

	key := r.key(emb.MemoryID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check embedding %s: %w", emb.MemoryID, err)
	}

	fields := map[string]string{
		fieldOwnerID: emb.OwnerID,
		fieldModel:   emb.Model,
		fieldVector:  db.VectorToBytes(emb.Vector),
	}
	if !exists {
		createdAt := emb.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		fields[fieldCreatedAt] = createdAt.UTC().Format(time.RFC3339Nano)
	}

	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("store embedding %s: %w", emb.MemoryID, err)
	}
	return nil
}

// Get loads the embedding for a memory.
func (r *Repo) Get(ctx context.Context, memoryID string) (domain.Embedding, error) {
	fields, err := r.store.HGetAll(ctx, r.key(memoryID))
	if err != nil {
		return domain.Embedding{}, fmt.Errorf("load embedding %s: %w", memoryID, err)
	}
	if len(fields) == 0 {
		return domain.Embedding{}, fmt.Errorf("embedding %s: %w", memoryID, domain.ErrNotFound)
	}

	emb := domain.Embedding{
		MemoryID: memoryID,
		OwnerID:  fields[fieldOwnerID],
		Model:    fields[fieldModel],
		Vector:   db.VectorFromBytes(fields[fieldVector]),
	}
	if raw := fields[fieldCreatedAt]; raw != "" {
		if emb.CreatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return domain.Embedding{}, fmt.Errorf("parse embedding %s created_at: %w", memoryID, err)
		}
	}
	return emb, nil
}

// Delete removes a memory's embedding. Deleting the hash drops it from the
// ANN index as well.
func (r *Repo) Delete(ctx context.Context, memoryID string) error {
	if err := r.store.Del(ctx, r.key(memoryID)); err != nil {
		return fmt.Errorf("delete embedding %s: %w", memoryID, err)
	}
	return nil
}

// SearchNearest runs an owner-scoped KNN query and returns memory ids with
// their cosine distance, ascending, strictly below maxDistance, at most k.
func (r *Repo) SearchNearest(
	ctx context.Context, ownerID string, vector []float32, k int, maxDistance float64,
) ([]domain.Match, error) {
	if len(vector) != r.dim {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d: %w",
			len(vector), r.dim, domain.ErrVectorDimMismatch)
	}

	q := &db.KNNQuery{
		IndexName:  r.indexName(),
		TagFilters: map[string]string{fieldOwnerID: ownerID},
		Vector:     vector,
		K:          k,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search nearest: %w", err)
	}

	keyPrefix := r.prefix + "embedding:"
	matches := make([]domain.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		// Threshold is an exclusive upper bound.
		if entry.Distance >= maxDistance {
			continue
		}
		matches = append(matches, domain.Match{
			MemoryID: strings.TrimPrefix(entry.Key, keyPrefix),
			Distance: entry.Distance,
		})
	}
	return matches, nil
}
