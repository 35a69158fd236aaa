package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusAccepted   BookingStatus = "ACCEPTED"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
	StatusRejected   BookingStatus = "REJECTED"
)

// Error kinds returned by ledger operations. Handlers translate these to HTTP
// statuses with errors.Is; nothing here is fatal to the process.
var (
	ErrValidation         = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid booking state transition")
	ErrInvalidState       = errors.New("operation not allowed in current state")
	ErrPricingUnavailable = errors.New("no pricing configured")
	ErrUnauthorized       = errors.New("actor not permitted")
	ErrVersionConflict    = errors.New("booking modified concurrently")
)

// Role identifies the kind of actor invoking a guarded operation.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleMechanic Role = "MECHANIC"
)

// SubscriptionType selects the pricing tier for a booking.
type SubscriptionType string

const (
	SubscriptionHourly  SubscriptionType = "HOURLY"
	SubscriptionMonthly SubscriptionType = "MONTHLY"
	SubscriptionYearly  SubscriptionType = "YEARLY"
)

var allowedTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// CanTransitionTo reports whether the edge s -> next exists in the lifecycle
// graph. Terminal states have no outgoing edges.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status absorbs all further transitions.
func (s BookingStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SpecialtyAll is the wildcard specialty: a mechanic declaring it matches any
// specialty filter.
const SpecialtyAll = "All"

// Mechanic is a service provider. Rating is a running average maintained by
// the directory; RatingCount is the number of samples behind it.
type Mechanic struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Specialty    string
	Location     GeoPoint
	Available    bool
	Rating       float64
	RatingCount  int
	TotalJobs    int

	HourlyRate   decimal.Decimal
	MonthlyPrice decimal.Decimal
	YearlyPrice  decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MatchesSpecialty applies the case-sensitive specialty filter with the "All"
// wildcard on the mechanic side. An empty filter matches everyone.
func (m Mechanic) MatchesSpecialty(filter string) bool {
	if filter == "" || m.Specialty == SpecialtyAll {
		return true
	}
	return m.Specialty == filter
}

// Customer requests bookings.
type Customer struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Location     GeoPoint
	CreatedAt    time.Time
}

// Booking is owned exclusively by the ledger; customers and mechanics hold
// only the foreign keys.
type Booking struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	MechanicID uuid.UUID

	VehicleType        string
	VehicleModel       string
	ProblemDescription string
	ServiceType        string
	Subscription       SubscriptionType
	Price              decimal.Decimal
	Location           GeoPoint

	Status      BookingStatus
	ScheduledAt time.Time
	CreatedAt   time.Time
	AcceptedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	ActualDuration *time.Duration
	Rating         *int
	Feedback       string

	Version int64
}

// BookingEventType names the lifecycle events emitted for notification sinks.
type BookingEventType string

const (
	EventBookingCreated   BookingEventType = "BookingCreated"
	EventBookingAccepted  BookingEventType = "BookingAccepted"
	EventBookingRejected  BookingEventType = "BookingRejected"
	EventBookingStarted   BookingEventType = "BookingStarted"
	EventBookingCompleted BookingEventType = "BookingCompleted"
	EventBookingCancelled BookingEventType = "BookingCancelled"
	EventBookingRated     BookingEventType = "BookingRated"
)

// BookingEvent is published on every committed transition.
type BookingEvent struct {
	ID        int64            `json:"id,omitempty"`
	BookingID uuid.UUID        `json:"booking_id"`
	Type      BookingEventType `json:"type"`
	Payload   map[string]any   `json:"payload,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Repository persists bookings. UpdateBooking must compare the stored version
// against booking.Version and fail with ErrVersionConflict on mismatch so that
// concurrent transitions cannot both commit.
type Repository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBookingByID(ctx context.Context, id uuid.UUID) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]Booking, error)
	ListByMechanic(ctx context.Context, mechanicID uuid.UUID) ([]Booking, error)
	AppendEvent(ctx context.Context, event BookingEvent) error
}

// MechanicDirectory owns mechanic records. RecordCompletion and RecordRating
// must serialize their read-modify-write per mechanic.
type MechanicDirectory interface {
	GetMechanic(ctx context.Context, id uuid.UUID) (Mechanic, error)
	GetMechanicByEmail(ctx context.Context, email string) (Mechanic, error)
	ListMechanics(ctx context.Context) ([]Mechanic, error)
	CreateMechanic(ctx context.Context, mechanic Mechanic) (Mechanic, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) (Mechanic, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, point GeoPoint) error
	RecordCompletion(ctx context.Context, id uuid.UUID) error
	RecordRating(ctx context.Context, id uuid.UUID, rating int) (Mechanic, error)
}

// CustomerDirectory owns customer records.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (Customer, error)
	CreateCustomer(ctx context.Context, customer Customer) (Customer, error)
}

// IdempotencyRepository caches responses keyed by client idempotency keys.
type IdempotencyRepository interface {
	GetResponse(ctx context.Context, key string) ([]byte, bool, error)
	PutResponse(ctx context.Context, key string, payload []byte) error
}

// EventPublisher delivers booking events to whatever notification transport is
// configured. Implementations must tolerate a nil/absent transport.
type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
