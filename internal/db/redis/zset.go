package redis

import (
	"context"

	"github.com/memoir-labs/memoir/internal/db"
)

// ZAdd inserts or updates a member in a sorted set.
func (s *Store) ZAdd(ctx context.Context, key, member string, score float64) error {
	cmd := s.b().Zadd().Key(key).ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRem removes a member from a sorted set.
func (s *Store) ZRem(ctx context.Context, key, member string) error {
	cmd := s.b().Zrem().Key(key).Member(member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}

// ZRevRange returns members ordered by descending score, inclusive bounds.
func (s *Store) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Zrevrange().Key(key).Start(start).Stop(stop).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRevRange, Err: err}
	}
	return members, nil
}
