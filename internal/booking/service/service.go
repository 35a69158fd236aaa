package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/wrenchly/internal/booking/domain"
)

// PriceResolver fixes the booking price at creation time.
type PriceResolver interface {
	Resolve(mechanic domain.Mechanic, tier domain.SubscriptionType) (decimal.Decimal, error)
}

// Ledger owns booking records and enforces the lifecycle state machine. All
// guarded operations take the acting party explicitly; there is no ambient
// session state.
type Ledger struct {
	repo      domain.Repository
	mechanics domain.MechanicDirectory
	customers domain.CustomerDirectory
	pricer    PriceResolver
	events    domain.EventPublisher
	clock     domain.Clock
	idem      domain.IdempotencyRepository
}

// NewLedger constructs a Ledger with its collaborators.
func NewLedger(repo domain.Repository, mechanics domain.MechanicDirectory, customers domain.CustomerDirectory,
	pricer PriceResolver, events domain.EventPublisher, clock domain.Clock, idem domain.IdempotencyRepository) *Ledger {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Ledger{repo: repo, mechanics: mechanics, customers: customers, pricer: pricer, events: events, clock: clock, idem: idem}
}

// CreateBookingRequest is the payload for opening a booking.
type CreateBookingRequest struct {
	CustomerID         uuid.UUID
	MechanicID         uuid.UUID
	VehicleType        string
	VehicleModel       string
	ProblemDescription string
	ServiceType        string
	Subscription       domain.SubscriptionType
	Location           domain.GeoPoint
	ScheduledAt        *time.Time
}

// CreateBookingResponse identifies the created booking.
type CreateBookingResponse struct {
	BookingID uuid.UUID            `json:"booking_id"`
	Status    domain.BookingStatus `json:"status"`
	Price     decimal.Decimal      `json:"price"`
}

// Create opens a booking in PENDING with the price resolved now. The price
// never changes afterwards, regardless of later rate updates.
func (l *Ledger) Create(ctx context.Context, key string, req CreateBookingRequest) (CreateBookingResponse, error) {
	if key != "" && l.idem != nil {
		if cached, ok, err := l.idem.GetResponse(ctx, key); err == nil && ok {
			var resp CreateBookingResponse
			if err := json.Unmarshal(cached, &resp); err != nil {
				return CreateBookingResponse{}, fmt.Errorf("decode cached response: %w", err)
			}
			return resp, nil
		}
	}

	if strings.TrimSpace(req.ProblemDescription) == "" {
		return CreateBookingResponse{}, fmt.Errorf("%w: problem description required", domain.ErrValidation)
	}

	if _, err := l.customers.GetCustomer(ctx, req.CustomerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return CreateBookingResponse{}, fmt.Errorf("%w: unknown customer %s", domain.ErrValidation, req.CustomerID)
		}
		return CreateBookingResponse{}, fmt.Errorf("lookup customer: %w", err)
	}
	mechanic, err := l.mechanics.GetMechanic(ctx, req.MechanicID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return CreateBookingResponse{}, fmt.Errorf("%w: unknown mechanic %s", domain.ErrValidation, req.MechanicID)
		}
		return CreateBookingResponse{}, fmt.Errorf("lookup mechanic: %w", err)
	}

	price, err := l.pricer.Resolve(mechanic, req.Subscription)
	if err != nil {
		return CreateBookingResponse{}, err
	}

	now := l.clock.Now()
	scheduled := now
	if req.ScheduledAt != nil {
		scheduled = *req.ScheduledAt
	}
	booking := domain.Booking{
		ID:                 uuid.New(),
		CustomerID:         req.CustomerID,
		MechanicID:         req.MechanicID,
		VehicleType:        req.VehicleType,
		VehicleModel:       req.VehicleModel,
		ProblemDescription: req.ProblemDescription,
		ServiceType:        req.ServiceType,
		Subscription:       req.Subscription,
		Price:              price,
		Location:           req.Location,
		Status:             domain.StatusPending,
		ScheduledAt:        scheduled,
		CreatedAt:          now,
		Version:            1,
	}

	created, err := l.repo.CreateBooking(ctx, booking)
	if err != nil {
		return CreateBookingResponse{}, fmt.Errorf("create booking: %w", err)
	}

	l.emit(ctx, created, domain.EventBookingCreated, map[string]any{
		"customer_id": created.CustomerID.String(),
		"mechanic_id": created.MechanicID.String(),
		"price":       created.Price.String(),
	})

	resp := CreateBookingResponse{BookingID: created.ID, Status: created.Status, Price: created.Price}
	if key != "" && l.idem != nil {
		if payload, err := json.Marshal(resp); err == nil {
			_ = l.idem.PutResponse(ctx, key, payload)
		}
	}
	return resp, nil
}

// Get retrieves a booking by id.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return l.repo.GetBookingByID(ctx, id)
}

// ListByCustomer returns all bookings owned by a customer.
func (l *Ledger) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Booking, error) {
	return l.repo.ListByCustomer(ctx, customerID)
}

// ListByMechanic returns all bookings addressed to a mechanic.
func (l *Ledger) ListByMechanic(ctx context.Context, mechanicID uuid.UUID) ([]domain.Booking, error) {
	return l.repo.ListByMechanic(ctx, mechanicID)
}

// Accept moves PENDING -> ACCEPTED on behalf of the assigned mechanic.
func (l *Ledger) Accept(ctx context.Context, bookingID, mechanicID uuid.UUID) (domain.Booking, error) {
	return l.transition(ctx, bookingID, mechanicID, domain.StatusPending, domain.StatusAccepted,
		domain.EventBookingAccepted, func(b *domain.Booking, now time.Time) { b.AcceptedAt = &now })
}

// Reject moves PENDING -> REJECTED on behalf of the assigned mechanic.
func (l *Ledger) Reject(ctx context.Context, bookingID, mechanicID uuid.UUID) (domain.Booking, error) {
	return l.transition(ctx, bookingID, mechanicID, domain.StatusPending, domain.StatusRejected,
		domain.EventBookingRejected, nil)
}

// Start moves ACCEPTED -> IN_PROGRESS on behalf of the assigned mechanic.
func (l *Ledger) Start(ctx context.Context, bookingID, mechanicID uuid.UUID) (domain.Booking, error) {
	return l.transition(ctx, bookingID, mechanicID, domain.StatusAccepted, domain.StatusInProgress,
		domain.EventBookingStarted, func(b *domain.Booking, now time.Time) { b.StartedAt = &now })
}

// Complete moves IN_PROGRESS -> COMPLETED and credits the mechanic's job
// counter.
func (l *Ledger) Complete(ctx context.Context, bookingID, mechanicID uuid.UUID, actualDuration time.Duration) (domain.Booking, error) {
	updated, err := l.transition(ctx, bookingID, mechanicID, domain.StatusInProgress, domain.StatusCompleted,
		domain.EventBookingCompleted, func(b *domain.Booking, now time.Time) {
			b.CompletedAt = &now
			if actualDuration > 0 {
				b.ActualDuration = &actualDuration
			}
		})
	if err != nil {
		return domain.Booking{}, err
	}
	// The booking CAS above is the serialization point; the counter update
	// cannot miss its mechanic because bookings only ever reference directory
	// entries and mechanics are never removed.
	if err := l.mechanics.RecordCompletion(ctx, mechanicID); err != nil {
		return domain.Booking{}, fmt.Errorf("record completion: %w", err)
	}
	return updated, nil
}

// Cancel moves PENDING or ACCEPTED to CANCELLED. Only the owning customer may
// cancel; mechanics reject instead.
func (l *Ledger) Cancel(ctx context.Context, bookingID, actorID uuid.UUID, role domain.Role) (domain.Booking, error) {
	if role != domain.RoleCustomer {
		return domain.Booking{}, fmt.Errorf("%w: only customers cancel bookings", domain.ErrUnauthorized)
	}
	booking, err := l.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if booking.CustomerID != actorID {
		return domain.Booking{}, fmt.Errorf("%w: booking belongs to another customer", domain.ErrUnauthorized)
	}
	if !booking.Status.CanTransitionTo(domain.StatusCancelled) {
		return domain.Booking{}, domain.ErrInvalidTransition
	}

	now := l.clock.Now()
	booking.Status = domain.StatusCancelled
	booking.CancelledAt = &now

	updated, err := l.repo.UpdateBooking(ctx, booking)
	if errors.Is(err, domain.ErrVersionConflict) {
		return domain.Booking{}, domain.ErrInvalidTransition
	}
	if err != nil {
		return domain.Booking{}, err
	}

	l.emit(ctx, updated, domain.EventBookingCancelled, map[string]any{"actor": string(role)})
	return updated, nil
}

// Rate attaches a one-shot rating to a completed booking and folds it into
// the mechanic's running average.
func (l *Ledger) Rate(ctx context.Context, bookingID, customerID uuid.UUID, rating int, feedback string) (domain.Booking, error) {
	if rating < 1 || rating > 5 {
		return domain.Booking{}, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}
	booking, err := l.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if booking.CustomerID != customerID {
		return domain.Booking{}, fmt.Errorf("%w: booking belongs to another customer", domain.ErrUnauthorized)
	}
	if booking.Status != domain.StatusCompleted {
		return domain.Booking{}, fmt.Errorf("%w: booking not completed", domain.ErrInvalidState)
	}
	if booking.Rating != nil {
		return domain.Booking{}, fmt.Errorf("%w: rating already set", domain.ErrInvalidState)
	}

	booking.Rating = &rating
	booking.Feedback = feedback

	updated, err := l.repo.UpdateBooking(ctx, booking)
	if errors.Is(err, domain.ErrVersionConflict) {
		// Someone rated concurrently; the booking carries their rating.
		return domain.Booking{}, fmt.Errorf("%w: rating already set", domain.ErrInvalidState)
	}
	if err != nil {
		return domain.Booking{}, err
	}

	// As in Complete: the rating CAS has committed, and the referenced
	// mechanic always exists, so the average update cannot be left behind.
	if _, err := l.mechanics.RecordRating(ctx, updated.MechanicID, rating); err != nil {
		return domain.Booking{}, fmt.Errorf("record rating: %w", err)
	}

	l.emit(ctx, updated, domain.EventBookingRated, map[string]any{"rating": rating})
	return updated, nil
}

// transition applies a single guarded edge of the state machine. The version
// check on the write makes concurrent transitions race safely: exactly one
// commits, the rest observe ErrInvalidTransition.
func (l *Ledger) transition(ctx context.Context, bookingID, mechanicID uuid.UUID,
	from, to domain.BookingStatus, event domain.BookingEventType,
	apply func(*domain.Booking, time.Time)) (domain.Booking, error) {

	booking, err := l.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if booking.MechanicID != mechanicID {
		return domain.Booking{}, fmt.Errorf("%w: booking assigned to another mechanic", domain.ErrUnauthorized)
	}
	if booking.Status != from {
		return domain.Booking{}, domain.ErrInvalidTransition
	}

	now := l.clock.Now()
	booking.Status = to
	if apply != nil {
		apply(&booking, now)
	}

	updated, err := l.repo.UpdateBooking(ctx, booking)
	if errors.Is(err, domain.ErrVersionConflict) {
		return domain.Booking{}, domain.ErrInvalidTransition
	}
	if err != nil {
		return domain.Booking{}, err
	}

	l.emit(ctx, updated, event, map[string]any{"mechanic_id": mechanicID.String()})
	return updated, nil
}

func (l *Ledger) emit(ctx context.Context, booking domain.Booking, eventType domain.BookingEventType, payload map[string]any) {
	event := domain.BookingEvent{
		BookingID: booking.ID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: l.clock.Now(),
	}
	_ = l.repo.AppendEvent(ctx, event)
	if l.events != nil {
		_ = l.events.Publish(ctx, event)
	}
}
