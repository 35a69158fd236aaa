package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/wrenchly/internal/api"
	"github.com/example/wrenchly/internal/auth"
	"github.com/example/wrenchly/internal/booking/domain"
	"github.com/example/wrenchly/internal/booking/service"
)

// HTTP exposes the booking endpoints. Mutations are PUT, creation POST, reads
// GET; every guarded route derives the actor from the bearer token rather
// than trusting ids in the body.
type HTTP struct {
	svc    *service.Ledger
	secret string
}

// NewHTTP constructs the handler.
func NewHTTP(svc *service.Ledger, secret string) *HTTP {
	return &HTTP{svc: svc, secret: secret}
}

// Router builds the booking routes.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.secret, domain.RoleCustomer))
		r.Post("/", h.create)
		r.Put("/{id}/cancel", h.cancel)
		r.Put("/{id}/rate", h.rate)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.secret, domain.RoleMechanic))
		r.Put("/{id}/accept", h.accept)
		r.Put("/{id}/reject", h.reject)
		r.Put("/{id}/start", h.start)
		r.Put("/{id}/complete", h.complete)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.secret, domain.RoleCustomer, domain.RoleMechanic))
		r.Get("/{id}", h.get)
		r.Get("/customer/{customerId}", h.listByCustomer)
		r.Get("/mechanic/{mechanicId}", h.listByMechanic)
	})

	return r
}

type createPayload struct {
	MechanicID         string     `json:"mechanic_id"`
	VehicleType        string     `json:"vehicle_type"`
	VehicleModel       string     `json:"vehicle_model"`
	ProblemDescription string     `json:"problem_description"`
	ServiceType        string     `json:"service_type"`
	SubscriptionType   string     `json:"subscription_type"`
	Latitude           float64    `json:"latitude"`
	Longitude          float64    `json:"longitude"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mechanicID, err := uuid.Parse(payload.MechanicID)
	if err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid mechanic_id")
		return
	}

	resp, err := h.svc.Create(r.Context(), r.Header.Get("Idempotency-Key"), service.CreateBookingRequest{
		CustomerID:         actorID,
		MechanicID:         mechanicID,
		VehicleType:        payload.VehicleType,
		VehicleModel:       payload.VehicleModel,
		ProblemDescription: payload.ProblemDescription,
		ServiceType:        payload.ServiceType,
		Subscription:       domain.SubscriptionType(payload.SubscriptionType),
		Location:           domain.GeoPoint{Lat: payload.Latitude, Lng: payload.Longitude},
		ScheduledAt:        payload.ScheduledAt,
	})
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusCreated, "booking created", resp)
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	booking, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "booking found", toView(booking))
}

func (h *HTTP) listByCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "customerId")
	if !ok {
		return
	}
	bookings, err := h.svc.ListByCustomer(r.Context(), id)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "customer bookings", toViews(bookings))
}

func (h *HTTP) listByMechanic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "mechanicId")
	if !ok {
		return
	}
	bookings, err := h.svc.ListByMechanic(r.Context(), id)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "mechanic bookings", toViews(bookings))
}

func (h *HTTP) accept(w http.ResponseWriter, r *http.Request) {
	h.mechanicTransition(w, r, "booking accepted", h.svc.Accept)
}

func (h *HTTP) reject(w http.ResponseWriter, r *http.Request) {
	h.mechanicTransition(w, r, "booking rejected", h.svc.Reject)
}

func (h *HTTP) start(w http.ResponseWriter, r *http.Request) {
	h.mechanicTransition(w, r, "booking started", h.svc.Start)
}

func (h *HTTP) complete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload struct {
		ActualDurationMinutes int `json:"actual_duration_minutes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.WriteFailure(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	booking, err := h.svc.Complete(r.Context(), id, actorID, time.Duration(payload.ActualDurationMinutes)*time.Minute)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "booking completed", toView(booking))
}

func (h *HTTP) cancel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	booking, err := h.svc.Cancel(r.Context(), id, actorID, domain.RoleCustomer)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "booking cancelled", toView(booking))
}

func (h *HTTP) rate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload struct {
		Rating   int    `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	booking, err := h.svc.Rate(r.Context(), id, actorID, payload.Rating, payload.Feedback)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "booking rated", toView(booking))
}

func (h *HTTP) mechanicTransition(w http.ResponseWriter, r *http.Request, message string,
	op func(ctx context.Context, bookingID, mechanicID uuid.UUID) (domain.Booking, error)) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	booking, err := op(r.Context(), id, actorID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, message, toView(booking))
}

func actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		api.WriteFailure(w, http.StatusUnauthorized, "missing token")
		return uuid.UUID{}, false
	}
	id, err := claims.ActorID()
	if err != nil {
		api.WriteFailure(w, http.StatusUnauthorized, "invalid token subject")
		return uuid.UUID{}, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid "+key)
		return uuid.UUID{}, false
	}
	return id, true
}
