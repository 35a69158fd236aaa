package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/example/wrenchly/internal/booking/repository"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client
}

func TestRedisIdempotencyRoundTrip(t *testing.T) {
	client := newRedisClient(t)
	repo := repository.NewRedisIdempotencyRepo(client, "", time.Minute)
	ctx := context.Background()

	_, ok, err := repo.GetResponse(ctx, "key-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.PutResponse(ctx, "key-1", []byte(`{"booking_id":"a"}`)))

	payload, ok, err := repo.GetResponse(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(`{"booking_id":"a"}`), payload)
}

func TestRedisIdempotencyFirstWriterWins(t *testing.T) {
	client := newRedisClient(t)
	repo := repository.NewRedisIdempotencyRepo(client, "", time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.PutResponse(ctx, "key-1", []byte("original")))
	require.NoError(t, repo.PutResponse(ctx, "key-1", []byte("replay")))

	payload, ok, err := repo.GetResponse(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("original"), payload)
}
