package runstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-notifier/internal/common/database"
	apperrors "team-notifier/internal/common/errors"
)

var lastRun = time.Date(2024, time.June, 9, 18, 0, 0, 0, time.UTC)

func TestRedisStore_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(database.NewRedisWith(client, "team-notifier"))
	ctx := context.Background()

	_, ok, err := store.LastRun(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	local := lastRun.In(time.FixedZone("PDT", -7*3600))
	require.NoError(t, store.SaveLastRun(ctx, 7, local))

	raw, err := mr.Get("team-notifier:last-run:7")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-09T18:00:00Z", raw)

	got, ok, err := store.LastRun(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(lastRun))

	_, ok, err = store.LastRun(ctx, 8)
	require.NoError(t, err)
	assert.False(t, ok, "teams are isolated")
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, mr.Set("last-run:7", "yesterday"))

	store := NewRedisStore(database.NewRedisWith(client, ""))
	_, _, err := store.LastRun(context.Background(), 7)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRunStateFailed))
}

func TestRedisStore_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(database.NewRedisWith(client, "tn"))
	ctx := context.Background()

	mock.ExpectGet("tn:last-run:7").SetErr(errors.New("connection refused"))
	_, _, err := store.LastRun(ctx, 7)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRunStateFailed))

	mock.ExpectSet("tn:last-run:7", "2024-06-09T18:00:00Z", 0).SetErr(errors.New("READONLY"))
	err = store.SaveLastRun(ctx, 7, lastRun)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRunStateFailed))

	mock.ExpectSet("tn:last-run:7", "2024-06-09T18:00:00Z", 0).SetVal("OK")
	assert.NoError(t, store.SaveLastRun(ctx, 7, lastRun))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.LastRun(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveLastRun(ctx, 7, lastRun))
	got, ok, err := store.LastRun(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, lastRun, got)
}
