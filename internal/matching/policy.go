package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/wrenchly/internal/booking/domain"
)

// Candidate is a mechanic eligible for a booking request. Available is
// advisory: busy mechanics are flagged, never hidden, so customers can still
// see and pick them.
type Candidate struct {
	Mechanic   domain.Mechanic
	DistanceKM float64
}

// Policy ranks and filters mechanics for a booking request.
type Policy struct {
	geo       GeoIndex
	directory domain.MechanicDirectory
}

// NewPolicy constructs the policy over a geo index and the mechanic directory.
func NewPolicy(geo GeoIndex, directory domain.MechanicDirectory) *Policy {
	return &Policy{geo: geo, directory: directory}
}

// FindCandidates returns mechanics within radiusKM of origin matching the
// specialty filter, sorted by ascending distance, then descending rating,
// then ascending mechanic id. An empty result is not an error.
func (p *Policy) FindCandidates(ctx context.Context, origin domain.GeoPoint, radiusKM float64, specialty string) ([]Candidate, error) {
	start := time.Now()
	hits, err := p.geo.Query(ctx, origin, radiusKM)
	if err != nil {
		searchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("geo query: %w", err)
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		mechanic, err := p.directory.GetMechanic(ctx, hit.MechanicID)
		if errors.Is(err, domain.ErrNotFound) {
			// Stale index entry; the mechanic was removed after indexing.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve mechanic %s: %w", hit.MechanicID, err)
		}
		if !mechanic.MatchesSpecialty(specialty) {
			continue
		}
		candidates = append(candidates, Candidate{Mechanic: mechanic, DistanceKM: hit.DistanceKM})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.DistanceKM != b.DistanceKM {
			return a.DistanceKM < b.DistanceKM
		}
		if a.Mechanic.Rating != b.Mechanic.Rating {
			return a.Mechanic.Rating > b.Mechanic.Rating
		}
		return a.Mechanic.ID.String() < b.Mechanic.ID.String()
	})

	searchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	candidateCount.Observe(float64(len(candidates)))
	return candidates, nil
}
