package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/wrenchly/internal/booking/domain"
)

// BookingView is the structured view-model handed to rendering layers.
type BookingView struct {
	ID                 string               `json:"id"`
	CustomerID         string               `json:"customer_id"`
	MechanicID         string               `json:"mechanic_id"`
	VehicleType        string               `json:"vehicle_type,omitempty"`
	VehicleModel       string               `json:"vehicle_model,omitempty"`
	ProblemDescription string               `json:"problem_description"`
	ServiceType        string               `json:"service_type,omitempty"`
	SubscriptionType   string               `json:"subscription_type"`
	Price              decimal.Decimal      `json:"price"`
	Status             domain.BookingStatus `json:"status"`
	ScheduledAt        time.Time            `json:"scheduled_at"`
	CreatedAt          time.Time            `json:"created_at"`
	AcceptedAt         *time.Time           `json:"accepted_at,omitempty"`
	StartedAt          *time.Time           `json:"started_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	ActualDurationMin  *int                 `json:"actual_duration_minutes,omitempty"`
	Rating             *int                 `json:"rating,omitempty"`
	Feedback           string               `json:"feedback,omitempty"`
}

func toView(b domain.Booking) BookingView {
	view := BookingView{
		ID:                 b.ID.String(),
		CustomerID:         b.CustomerID.String(),
		MechanicID:         b.MechanicID.String(),
		VehicleType:        b.VehicleType,
		VehicleModel:       b.VehicleModel,
		ProblemDescription: b.ProblemDescription,
		ServiceType:        b.ServiceType,
		SubscriptionType:   string(b.Subscription),
		Price:              b.Price,
		Status:             b.Status,
		ScheduledAt:        b.ScheduledAt,
		CreatedAt:          b.CreatedAt,
		AcceptedAt:         b.AcceptedAt,
		StartedAt:          b.StartedAt,
		CompletedAt:        b.CompletedAt,
		CancelledAt:        b.CancelledAt,
		Rating:             b.Rating,
		Feedback:           b.Feedback,
	}
	if b.ActualDuration != nil {
		minutes := int(b.ActualDuration.Minutes())
		view.ActualDurationMin = &minutes
	}
	return view
}

func toViews(bookings []domain.Booking) []BookingView {
	views := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, toView(b))
	}
	return views
}
