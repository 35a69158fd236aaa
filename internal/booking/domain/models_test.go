package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/wrenchly/internal/booking/domain"
)

func TestLifecycleGraph(t *testing.T) {
	edges := map[domain.BookingStatus][]domain.BookingStatus{
		domain.StatusPending:    {domain.StatusAccepted, domain.StatusRejected, domain.StatusCancelled},
		domain.StatusAccepted:   {domain.StatusInProgress, domain.StatusCancelled},
		domain.StatusInProgress: {domain.StatusCompleted},
		domain.StatusCompleted:  nil,
		domain.StatusCancelled:  nil,
		domain.StatusRejected:   nil,
	}

	all := []domain.BookingStatus{
		domain.StatusPending, domain.StatusAccepted, domain.StatusInProgress,
		domain.StatusCompleted, domain.StatusCancelled, domain.StatusRejected,
	}

	for from, allowed := range edges {
		permitted := make(map[domain.BookingStatus]bool, len(allowed))
		for _, to := range allowed {
			permitted[to] = true
		}
		for _, to := range all {
			require.Equal(t, permitted[to], from.CanTransitionTo(to),
				"edge %s -> %s", from, to)
		}
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	terminals := []domain.BookingStatus{domain.StatusCompleted, domain.StatusCancelled, domain.StatusRejected}
	for _, s := range terminals {
		require.True(t, s.Terminal())
		for _, next := range []domain.BookingStatus{
			domain.StatusPending, domain.StatusAccepted, domain.StatusInProgress,
			domain.StatusCompleted, domain.StatusCancelled, domain.StatusRejected,
		} {
			require.False(t, s.CanTransitionTo(next), "%s must not reach %s", s, next)
		}
	}
}

func TestMatchesSpecialty(t *testing.T) {
	m := domain.Mechanic{Specialty: "Car"}
	require.True(t, m.MatchesSpecialty(""))
	require.True(t, m.MatchesSpecialty("Car"))
	require.False(t, m.MatchesSpecialty("car"))
	require.False(t, m.MatchesSpecialty("Bike"))

	wildcard := domain.Mechanic{Specialty: domain.SpecialtyAll}
	require.True(t, wildcard.MatchesSpecialty("Truck"))
	require.True(t, wildcard.MatchesSpecialty(""))
}
