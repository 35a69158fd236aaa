package matching

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/example/wrenchly/internal/booking/domain"
)

// EarthRadiusKM is the sphere radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// RadiusSlackKM widens every radius query by roughly twenty metres. The
// boundary is inclusive; the slack keeps round query radii (10 km) from
// dropping a mechanic sitting a few metres past them on rounded GPS
// coordinates, and it absorbs the slightly larger earth radius Redis uses
// when computing GEOSEARCH distances.
const RadiusSlackKM = 0.02

// Hit is a mechanic id together with its distance from the query origin.
type Hit struct {
	MechanicID uuid.UUID
	DistanceKM float64
}

// GeoIndex answers radius queries over mechanic locations. Implementations
// must include mechanics exactly at the radius boundary and are read-only:
// queries may run fully in parallel with booking mutations.
type GeoIndex interface {
	Query(ctx context.Context, origin domain.GeoPoint, radiusKM float64) ([]Hit, error)
}

// LocationIndex is the write side of a geo index. MemoryGeoIndex reads the
// directory live and needs no writes; RedisGeoIndex implements both sides.
type LocationIndex interface {
	UpsertLocation(ctx context.Context, mechanicID uuid.UUID, point domain.GeoPoint) error
	Remove(ctx context.Context, mechanicID uuid.UUID) error
}

// MemoryGeoIndex answers radius queries with a full scan over the mechanic
// directory. The contract needs no spatial index; a grid or R-tree would be a
// pure performance change.
type MemoryGeoIndex struct {
	directory domain.MechanicDirectory
}

// NewMemoryGeoIndex constructs the index over the given directory.
func NewMemoryGeoIndex(directory domain.MechanicDirectory) *MemoryGeoIndex {
	return &MemoryGeoIndex{directory: directory}
}

// Query returns every mechanic within radiusKM of origin.
func (g *MemoryGeoIndex) Query(ctx context.Context, origin domain.GeoPoint, radiusKM float64) ([]Hit, error) {
	mechanics, err := g.directory.ListMechanics(ctx)
	if err != nil {
		return nil, err
	}
	var hits []Hit
	for _, m := range mechanics {
		d := HaversineKM(origin, m.Location)
		if d <= radiusKM+RadiusSlackKM {
			hits = append(hits, Hit{MechanicID: m.ID, DistanceKM: d})
		}
	}
	return hits, nil
}

// HaversineKM computes the great-circle distance between two points in km.
func HaversineKM(a, b domain.GeoPoint) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dlat := toRadians(b.Lat - a.Lat)
	dlon := toRadians(b.Lng - a.Lng)

	sinDlat := math.Sin(dlat / 2)
	sinDlon := math.Sin(dlon / 2)
	h := sinDlat*sinDlat + math.Cos(lat1)*math.Cos(lat2)*sinDlon*sinDlon
	return 2 * EarthRadiusKM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
