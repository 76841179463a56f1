package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/memoir-labs/memoir/internal/db"
)

// TTLs outlive their window so a report near the boundary still sees the
// closing period, then the keys expire on their own.
const (
	dailyTTL   = 48 * time.Hour
	monthlyTTL = 62 * 24 * time.Hour
)

// store is the key-value surface the ledger needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store accumulates AI token spend in per-day and per-month counters
// (INCRBY keys with a fixed TTL). Counters are advisory: they meter spend,
// they do not gate requests.
type Store struct {
	store     store
	keyPrefix string

	now func() time.Time // injected for tests
}

// New creates the usage ledger. Keys live under <keyPrefix>usage:tokens:.
func New(s store, keyPrefix string) *Store {
	return &Store{
		store:     s,
		keyPrefix: keyPrefix + "usage:tokens:",
		now:       time.Now,
	}
}

// Record adds tokens to the current day and month counters. The TTL is set
// only when the key is fresh, so repeated increments keep the original
// expiry.
func (s *Store) Record(ctx context.Context, tokens int64) error {
	if tokens <= 0 {
		return nil
	}

	day := s.dayKey()
	if err := s.store.IncrBy(ctx, day, tokens); err != nil {
		return fmt.Errorf("usage incr %s: %w", day, err)
	}
	if err := s.store.Expire(ctx, day, dailyTTL, true); err != nil {
		return fmt.Errorf("usage expire %s: %w", day, err)
	}

	month := s.monthKey()
	if err := s.store.IncrBy(ctx, month, tokens); err != nil {
		return fmt.Errorf("usage incr %s: %w", month, err)
	}
	if err := s.store.Expire(ctx, month, monthlyTTL, true); err != nil {
		return fmt.Errorf("usage expire %s: %w", month, err)
	}

	return nil
}

// Daily returns the tokens spent today (UTC). A missing counter reads as 0.
func (s *Store) Daily(ctx context.Context) (int64, error) {
	return s.read(ctx, s.dayKey())
}

// Monthly returns the tokens spent this calendar month (UTC).
func (s *Store) Monthly(ctx context.Context) (int64, error) {
	return s.read(ctx, s.monthKey())
}

func (s *Store) read(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("usage get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage parse %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) dayKey() string {
	return s.keyPrefix + "daily:" + s.now().UTC().Format("2006-01-02")
}

func (s *Store) monthKey() string {
	return s.keyPrefix + "monthly:" + s.now().UTC().Format("2006-01")
}
