package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/example/wrenchly/internal/booking/domain"
)

// MemoryRepository keeps bookings in process memory. It is the default store
// for tests and single-node deployments.
type MemoryRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]domain.Booking
	events   []domain.BookingEvent
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bookings: make(map[uuid.UUID]domain.Booking)}
}

// CreateBooking stores the booking and returns it.
func (m *MemoryRepository) CreateBooking(_ context.Context, booking domain.Booking) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bookings[booking.ID]; exists {
		return domain.Booking{}, domain.ErrVersionConflict
	}
	m.bookings[booking.ID] = booking
	return booking, nil
}

// GetBookingByID retrieves a booking.
func (m *MemoryRepository) GetBookingByID(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	booking, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return booking, nil
}

// UpdateBooking replaces the stored booking if booking.Version still matches
// the stored version. Exactly one of two concurrent writers wins; the other
// gets ErrVersionConflict.
func (m *MemoryRepository) UpdateBooking(_ context.Context, booking domain.Booking) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.bookings[booking.ID]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	if existing.Version != booking.Version {
		return domain.Booking{}, domain.ErrVersionConflict
	}
	booking.Version++
	m.bookings[booking.ID] = booking
	return booking, nil
}

// ListByCustomer returns all bookings owned by the customer.
func (m *MemoryRepository) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListByMechanic returns all bookings addressed to the mechanic.
func (m *MemoryRepository) ListByMechanic(_ context.Context, mechanicID uuid.UUID) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.MechanicID == mechanicID {
			out = append(out, b)
		}
	}
	return out, nil
}

// AppendEvent buffers a booking event for polling sinks.
func (m *MemoryRepository) AppendEvent(_ context.Context, event domain.BookingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns buffered events (for tests and the poll endpoint).
func (m *MemoryRepository) Events() []domain.BookingEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.BookingEvent(nil), m.events...)
}

// MemoryDirectory stores mechanics and customers. Rating and job-count updates
// run under the directory lock so concurrent completions cannot lose updates.
type MemoryDirectory struct {
	mu        sync.RWMutex
	mechanics map[uuid.UUID]domain.Mechanic
	customers map[uuid.UUID]domain.Customer
	clock     domain.Clock
}

// NewMemoryDirectory constructs an empty directory.
func NewMemoryDirectory(clock domain.Clock) *MemoryDirectory {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &MemoryDirectory{
		mechanics: make(map[uuid.UUID]domain.Mechanic),
		customers: make(map[uuid.UUID]domain.Customer),
		clock:     clock,
	}
}

// GetMechanic retrieves a mechanic by id.
func (d *MemoryDirectory) GetMechanic(_ context.Context, id uuid.UUID) (domain.Mechanic, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.mechanics[id]
	if !ok {
		return domain.Mechanic{}, domain.ErrNotFound
	}
	return m, nil
}

// GetMechanicByEmail retrieves a mechanic by login email.
func (d *MemoryDirectory) GetMechanicByEmail(_ context.Context, email string) (domain.Mechanic, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.mechanics {
		if strings.EqualFold(m.Email, email) {
			return m, nil
		}
	}
	return domain.Mechanic{}, domain.ErrNotFound
}

// ListMechanics returns every registered mechanic.
func (d *MemoryDirectory) ListMechanics(_ context.Context) ([]domain.Mechanic, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Mechanic, 0, len(d.mechanics))
	for _, m := range d.mechanics {
		out = append(out, m)
	}
	return out, nil
}

// CreateMechanic registers a mechanic. Email must be unused.
func (d *MemoryDirectory) CreateMechanic(_ context.Context, mechanic domain.Mechanic) (domain.Mechanic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.mechanics {
		if strings.EqualFold(existing.Email, mechanic.Email) {
			return domain.Mechanic{}, domain.ErrValidation
		}
	}
	now := d.clock.Now()
	mechanic.CreatedAt = now
	mechanic.UpdatedAt = now
	d.mechanics[mechanic.ID] = mechanic
	return mechanic, nil
}

// SetAvailability flips the advisory availability flag.
func (d *MemoryDirectory) SetAvailability(_ context.Context, id uuid.UUID, available bool) (domain.Mechanic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.mechanics[id]
	if !ok {
		return domain.Mechanic{}, domain.ErrNotFound
	}
	m.Available = available
	m.UpdatedAt = d.clock.Now()
	d.mechanics[id] = m
	return m, nil
}

// UpdateLocation moves the mechanic to a new coordinate.
func (d *MemoryDirectory) UpdateLocation(_ context.Context, id uuid.UUID, point domain.GeoPoint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.mechanics[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Location = point
	m.UpdatedAt = d.clock.Now()
	d.mechanics[id] = m
	return nil
}

// RecordCompletion increments the completed-jobs counter.
func (d *MemoryDirectory) RecordCompletion(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.mechanics[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.TotalJobs++
	m.UpdatedAt = d.clock.Now()
	d.mechanics[id] = m
	return nil
}

// RecordRating folds a new sample into the running average. The whole
// read-modify-write happens under the lock.
func (d *MemoryDirectory) RecordRating(_ context.Context, id uuid.UUID, rating int) (domain.Mechanic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.mechanics[id]
	if !ok {
		return domain.Mechanic{}, domain.ErrNotFound
	}
	total := m.Rating*float64(m.RatingCount) + float64(rating)
	m.RatingCount++
	m.Rating = total / float64(m.RatingCount)
	m.UpdatedAt = d.clock.Now()
	d.mechanics[id] = m
	return m, nil
}

// GetCustomer retrieves a customer by id.
func (d *MemoryDirectory) GetCustomer(_ context.Context, id uuid.UUID) (domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrNotFound
	}
	return c, nil
}

// GetCustomerByEmail retrieves a customer by login email.
func (d *MemoryDirectory) GetCustomerByEmail(_ context.Context, email string) (domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.customers {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return domain.Customer{}, domain.ErrNotFound
}

// CreateCustomer registers a customer. Email must be unused.
func (d *MemoryDirectory) CreateCustomer(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.customers {
		if strings.EqualFold(existing.Email, customer.Email) {
			return domain.Customer{}, domain.ErrValidation
		}
	}
	customer.CreatedAt = d.clock.Now()
	d.customers[customer.ID] = customer
	return customer, nil
}
