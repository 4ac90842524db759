// Package runstate remembers when each team was last notified.
package runstate

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"team-notifier/internal/common/database"
	apperrors "team-notifier/internal/common/errors"
)

// Store persists the time of the last completed run per team.
type Store interface {
	// LastRun reports false when the team has no recorded run.
	LastRun(ctx context.Context, teamID int64) (time.Time, bool, error)
	SaveLastRun(ctx context.Context, teamID int64, at time.Time) error
}

// RedisStore keeps one RFC 3339 timestamp per team under
// {prefix}:last-run:{teamId}.
type RedisStore struct {
	client *database.RedisClient
}

func NewRedisStore(client *database.RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(teamID int64) string {
	return s.client.Key("last-run", strconv.FormatInt(teamID, 10))
}

func (s *RedisStore) LastRun(ctx context.Context, teamID int64) (time.Time, bool, error) {
	v, err := s.client.Client.Get(ctx, s.key(teamID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, apperrors.NewRunStateFailedError("load", err)
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, apperrors.NewRunStateFailedError("load", err)
	}
	return t, true, nil
}

func (s *RedisStore) SaveLastRun(ctx context.Context, teamID int64, at time.Time) error {
	if err := s.client.Client.Set(ctx, s.key(teamID), at.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		return apperrors.NewRunStateFailedError("save", err)
	}
	return nil
}

// MemoryStore keeps run state for the life of the process.
type MemoryStore struct {
	mu   sync.Mutex
	runs map[int64]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[int64]time.Time)}
}

func (s *MemoryStore) LastRun(_ context.Context, teamID int64) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.runs[teamID]
	return t, ok, nil
}

func (s *MemoryStore) SaveLastRun(_ context.Context, teamID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[teamID] = at
	return nil
}
