package matching_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/example/wrenchly/internal/booking/domain"
	"github.com/example/wrenchly/internal/booking/repository"
	"github.com/example/wrenchly/internal/matching"
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

func TestRedisGeoIndexRoundTrip(t *testing.T) {
	index := matching.NewRedisGeoIndex(newRedisClient(t), "")
	ctx := context.Background()

	near := uuid.New()
	far := uuid.New()
	require.NoError(t, index.UpsertLocation(ctx, near, domain.GeoPoint{Lat: 0, Lng: 0.05}))
	require.NoError(t, index.UpsertLocation(ctx, far, domain.GeoPoint{Lat: 0, Lng: 1}))

	hits, err := index.Query(ctx, domain.GeoPoint{Lat: 0, Lng: 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, near, hits[0].MechanicID)
	require.InDelta(t, 5.56, hits[0].DistanceKM, 0.1)

	hits, err = index.Query(ctx, domain.GeoPoint{Lat: 0, Lng: 0}, 120)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	// Sorted ascending by distance.
	require.Equal(t, near, hits[0].MechanicID)
	require.Equal(t, far, hits[1].MechanicID)
}

func TestRedisGeoIndexBoundarySlack(t *testing.T) {
	index := matching.NewRedisGeoIndex(newRedisClient(t), "")
	ctx := context.Background()

	edge := uuid.New()
	require.NoError(t, index.UpsertLocation(ctx, edge, domain.GeoPoint{Lat: 0, Lng: 0.09}))

	// ~10.01 km away on the geohash sphere; the round 10 km radius must still
	// include it, matching MemoryGeoIndex.
	hits, err := index.Query(ctx, domain.GeoPoint{Lat: 0, Lng: 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, edge, hits[0].MechanicID)
}

func TestRedisGeoIndexUpsertMovesAndRemoveDrops(t *testing.T) {
	index := matching.NewRedisGeoIndex(newRedisClient(t), "")
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, index.UpsertLocation(ctx, id, domain.GeoPoint{Lat: 0, Lng: 1}))
	require.NoError(t, index.UpsertLocation(ctx, id, domain.GeoPoint{Lat: 0, Lng: 0.01}))

	hits, err := index.Query(ctx, domain.GeoPoint{Lat: 0, Lng: 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	require.NoError(t, index.Remove(ctx, id))
	hits, err = index.Query(ctx, domain.GeoPoint{Lat: 0, Lng: 0}, 5)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestRegisteredMechanicVisibleThroughRedisNearbySearch(t *testing.T) {
	redisGeo := matching.NewRedisGeoIndex(newRedisClient(t), "")
	directory := matching.NewIndexedDirectory(repository.NewMemoryDirectory(nil), redisGeo)
	policy := matching.NewPolicy(redisGeo, directory)

	created, err := directory.CreateMechanic(context.Background(), domain.Mechanic{
		ID:        uuid.New(),
		Name:      "Mo",
		Email:     "mo@example.com",
		Specialty: "Engine",
		Location:  domain.GeoPoint{Lat: 0, Lng: 0.05},
	})
	require.NoError(t, err)

	got, err := policy.FindCandidates(context.Background(), domain.GeoPoint{Lat: 0, Lng: 0}, 10, "Engine")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, created.ID, got[0].Mechanic.ID)
}
