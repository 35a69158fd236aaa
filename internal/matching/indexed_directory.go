package matching

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/wrenchly/internal/booking/domain"
)

// IndexedDirectory mirrors mechanic coordinates into a LocationIndex on every
// write that carries one. Deployments using RedisGeoIndex must wrap their
// directory with it; otherwise mechanics are searchable only after their
// first tracked position, while the registered location already sits in the
// directory.
type IndexedDirectory struct {
	domain.MechanicDirectory
	index LocationIndex
}

// NewIndexedDirectory wraps the directory with index write-through.
func NewIndexedDirectory(directory domain.MechanicDirectory, index LocationIndex) *IndexedDirectory {
	return &IndexedDirectory{MechanicDirectory: directory, index: index}
}

// CreateMechanic registers the mechanic and indexes the registered location.
func (d *IndexedDirectory) CreateMechanic(ctx context.Context, mechanic domain.Mechanic) (domain.Mechanic, error) {
	created, err := d.MechanicDirectory.CreateMechanic(ctx, mechanic)
	if err != nil {
		return domain.Mechanic{}, err
	}
	if err := d.index.UpsertLocation(ctx, created.ID, created.Location); err != nil {
		return domain.Mechanic{}, fmt.Errorf("index mechanic location: %w", err)
	}
	return created, nil
}

// UpdateLocation moves the mechanic in both the directory and the index.
func (d *IndexedDirectory) UpdateLocation(ctx context.Context, id uuid.UUID, point domain.GeoPoint) error {
	if err := d.MechanicDirectory.UpdateLocation(ctx, id, point); err != nil {
		return err
	}
	return d.index.UpsertLocation(ctx, id, point)
}
