package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/wrenchly/internal/booking/domain"
)

const defaultGeoKey = "mechanic:locs"

var errInvalidGeoResult = errors.New("invalid geo search result")

// RedisGeoIndex keeps mechanic locations in a Redis GEO set. Behaviourally
// equivalent to MemoryGeoIndex for deployments that share the index across
// service instances.
type RedisGeoIndex struct {
	client redis.Cmdable
	key    string
}

// NewRedisGeoIndex constructs a Redis-backed geo index.
func NewRedisGeoIndex(client redis.Cmdable, key string) *RedisGeoIndex {
	if key == "" {
		key = defaultGeoKey
	}
	return &RedisGeoIndex{client: client, key: key}
}

// UpsertLocation stores or moves a mechanic's coordinate.
func (r *RedisGeoIndex) UpsertLocation(ctx context.Context, mechanicID uuid.UUID, point domain.GeoPoint) error {
	err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Name:      mechanicID.String(),
		Latitude:  point.Lat,
		Longitude: point.Lng,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis geoadd: %w", err)
	}
	return nil
}

// Remove drops a mechanic from the index.
func (r *RedisGeoIndex) Remove(ctx context.Context, mechanicID uuid.UUID) error {
	if err := r.client.ZRem(ctx, r.key, mechanicID.String()).Err(); err != nil {
		return fmt.Errorf("redis zrem: %w", err)
	}
	return nil
}

// Query returns mechanics within radiusKM of origin sorted by distance.
func (r *RedisGeoIndex) Query(ctx context.Context, origin domain.GeoPoint, radiusKM float64) ([]Hit, error) {
	results, err := r.client.GeoSearchLocation(ctx, r.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  origin.Lng,
			Latitude:   origin.Lat,
			Radius:     radiusKM + RadiusSlackKM,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithDist: true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis geosearch: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		id, err := uuid.Parse(res.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errInvalidGeoResult, res.Name)
		}
		hits = append(hits, Hit{MechanicID: id, DistanceKM: res.Dist})
	}
	return hits, nil
}
