package matching_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/example/wrenchly/internal/booking/domain"
	"github.com/example/wrenchly/internal/booking/repository"
	"github.com/example/wrenchly/internal/matching"
)

type recordingIndex struct {
	points  map[uuid.UUID]domain.GeoPoint
	removed []uuid.UUID
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{points: make(map[uuid.UUID]domain.GeoPoint)}
}

func (r *recordingIndex) UpsertLocation(_ context.Context, id uuid.UUID, point domain.GeoPoint) error {
	r.points[id] = point
	return nil
}

func (r *recordingIndex) Remove(_ context.Context, id uuid.UUID) error {
	r.removed = append(r.removed, id)
	return nil
}

func TestIndexedDirectoryIndexesOnRegistration(t *testing.T) {
	index := newRecordingIndex()
	directory := matching.NewIndexedDirectory(repository.NewMemoryDirectory(nil), index)

	created, err := directory.CreateMechanic(context.Background(), domain.Mechanic{
		ID:       uuid.New(),
		Name:     "Mo",
		Email:    "mo@example.com",
		Location: domain.GeoPoint{Lat: 48.85, Lng: 2.35},
	})
	require.NoError(t, err)

	// The registered location must be searchable immediately, not only after
	// the first tracked position.
	require.Equal(t, domain.GeoPoint{Lat: 48.85, Lng: 2.35}, index.points[created.ID])
}

func TestIndexedDirectoryIndexesOnLocationUpdate(t *testing.T) {
	index := newRecordingIndex()
	directory := matching.NewIndexedDirectory(repository.NewMemoryDirectory(nil), index)

	created, err := directory.CreateMechanic(context.Background(), domain.Mechanic{
		ID:    uuid.New(),
		Name:  "Mo",
		Email: "mo@example.com",
	})
	require.NoError(t, err)

	moved := domain.GeoPoint{Lat: 51.5, Lng: -0.12}
	require.NoError(t, directory.UpdateLocation(context.Background(), created.ID, moved))
	require.Equal(t, moved, index.points[created.ID])

	got, err := directory.GetMechanic(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, moved, got.Location)
}

func TestIndexedDirectoryDuplicateEmailNotIndexed(t *testing.T) {
	index := newRecordingIndex()
	directory := matching.NewIndexedDirectory(repository.NewMemoryDirectory(nil), index)

	first, err := directory.CreateMechanic(context.Background(), domain.Mechanic{
		ID:    uuid.New(),
		Name:  "Mo",
		Email: "mo@example.com",
	})
	require.NoError(t, err)

	_, err = directory.CreateMechanic(context.Background(), domain.Mechanic{
		ID:    uuid.New(),
		Name:  "Other",
		Email: "mo@example.com",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Len(t, index.points, 1)
	require.Contains(t, index.points, first.ID)
}
