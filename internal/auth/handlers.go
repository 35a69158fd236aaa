package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/example/wrenchly/internal/api"
	"github.com/example/wrenchly/internal/booking/domain"
)

// HTTP exposes the /v1/auth endpoints.
type HTTP struct {
	svc *Service
}

// NewHTTP constructs the handler.
func NewHTTP(svc *Service) *HTTP {
	return &HTTP{svc: svc}
}

// Router builds the auth routes.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	return r
}

type registerPayload struct {
	Role         string          `json:"role"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Password     string          `json:"password"`
	Phone        string          `json:"phone"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Specialty    string          `json:"specialty"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
}

func (h *HTTP) register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.svc.Register(r.Context(), RegisterRequest{
		Role:         domain.Role(payload.Role),
		Name:         payload.Name,
		Email:        payload.Email,
		Password:     payload.Password,
		Phone:        payload.Phone,
		Location:     domain.GeoPoint{Lat: payload.Latitude, Lng: payload.Longitude},
		Specialty:    payload.Specialty,
		HourlyRate:   payload.HourlyRate,
		MonthlyPrice: payload.MonthlyPrice,
		YearlyPrice:  payload.YearlyPrice,
	})
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusCreated, "registered", session)
}

type loginPayload struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HTTP) login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := h.svc.Login(r.Context(), domain.Role(payload.Role), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			api.WriteFailure(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "logged in", session)
}
