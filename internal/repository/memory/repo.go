package memory

import (
	"context"
	"fmt"

	"github.com/memoir-labs/memoir/internal/domain"
)

// store is the consumer interface for memory persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	ZAdd(ctx context.Context, key, member string, score float64) error
	ZRem(ctx context.Context, key, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// Repo persists memories as Redis hashes plus a per-owner recency index
// (sorted set scored by creation time) for newest-first listing.
type Repo struct {
	store  store
	prefix string
}

// New creates a memory repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, prefix: keyPrefix}
}

func (r *Repo) key(id string) string {
	return r.prefix + "memory:" + id
}

func (r *Repo) ownerIndexKey(ownerID string) string {
	return r.prefix + "owner:" + ownerID + ":memories"
}

// Create stores a new memory and registers it in the owner's recency index.
func (r *Repo) Create(ctx context.Context, m *domain.Memory) error {
	fields, err := toFields(m)
	if err != nil {
		return fmt.Errorf("encode memory %s: %w", m.ID, err)
	}

	if err := r.store.HSet(ctx, r.key(m.ID), fields); err != nil {
		return fmt.Errorf("store memory %s: %w", m.ID, err)
	}

	score := float64(m.CreatedAt.UTC().UnixNano())
	if err := r.store.ZAdd(ctx, r.ownerIndexKey(m.OwnerID), m.ID, score); err != nil {
		return fmt.Errorf("index memory %s: %w", m.ID, err)
	}

	return nil
}

// Get loads a memory by id. A missing key maps to domain.ErrMemoryNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domain.Memory, error) {
	fields, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return domain.Memory{}, fmt.Errorf("load memory %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.Memory{}, fmt.Errorf("memory %s: %w", id, domain.ErrMemoryNotFound)
	}

	m, err := fromFields(fields)
	if err != nil {
		return domain.Memory{}, fmt.Errorf("decode memory %s: %w", id, err)
	}
	return m, nil
}

// GetMulti loads memories for the given ids in one round-trip. Ids that no
// longer resolve are silently skipped; the returned map is keyed by id and
// carries no ordering.
func (r *Repo) GetMulti(ctx context.Context, ids []string) (map[string]domain.Memory, error) {
	if len(ids) == 0 {
		return map[string]domain.Memory{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}

	out := make(map[string]domain.Memory, len(rows))
	for i, fields := range rows {
		if len(fields) == 0 {
			continue // deleted between index lookup and fetch
		}
		m, err := fromFields(fields)
		if err != nil {
			return nil, fmt.Errorf("decode memory %s: %w", ids[i], err)
		}
		out[m.ID] = m
	}
	return out, nil
}

// Update overwrites a memory's stored fields. Last write wins; there is no
// merge with prior state.
func (r *Repo) Update(ctx context.Context, m *domain.Memory) error {
	fields, err := toFields(m)
	if err != nil {
		return fmt.Errorf("encode memory %s: %w", m.ID, err)
	}
	if err := r.store.HSet(ctx, r.key(m.ID), fields); err != nil {
		return fmt.Errorf("update memory %s: %w", m.ID, err)
	}
	return nil
}

// Delete removes a memory and its recency index entry.
func (r *Repo) Delete(ctx context.Context, m *domain.Memory) error {
	if err := r.store.Del(ctx, r.key(m.ID)); err != nil {
		return fmt.Errorf("delete memory %s: %w", m.ID, err)
	}
	if err := r.store.ZRem(ctx, r.ownerIndexKey(m.OwnerID), m.ID); err != nil {
		return fmt.Errorf("unindex memory %s: %w", m.ID, err)
	}
	return nil
}

// ListByOwner returns a page of the owner's memories, newest first.
func (r *Repo) ListByOwner(ctx context.Context, ownerID string, offset, limit int) ([]domain.Memory, error) {
	if limit <= 0 {
		return nil, nil
	}

	start := int64(offset)
	stop := int64(offset+limit) - 1
	ids, err := r.store.ZRevRange(ctx, r.ownerIndexKey(ownerID), start, stop)
	if err != nil {
		return nil, fmt.Errorf("list owner %s: %w", ownerID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	byID, err := r.GetMulti(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Preserve index order; drop ids whose hash vanished mid-flight.
	out := make([]domain.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}
