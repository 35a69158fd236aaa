package mechanic

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/wrenchly/internal/api"
	"github.com/example/wrenchly/internal/auth"
	"github.com/example/wrenchly/internal/booking/domain"
	"github.com/example/wrenchly/internal/matching"
)

// HTTP exposes the mechanic directory and nearby search. Reads are open to any
// authenticated role; availability is mechanic-only and restricted to the
// mechanic's own record.
type HTTP struct {
	directory domain.MechanicDirectory
	policy    *matching.Policy
	secret    string
}

// NewHTTP constructs the handler.
func NewHTTP(directory domain.MechanicDirectory, policy *matching.Policy, secret string) *HTTP {
	return &HTTP{directory: directory, policy: policy, secret: secret}
}

// Router builds the mechanic routes.
func (h *HTTP) Router() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.secret, domain.RoleCustomer, domain.RoleMechanic))
		r.Get("/", h.list)
		r.Get("/nearby", h.nearby)
		r.Get("/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.secret, domain.RoleMechanic))
		r.Put("/{id}/availability", h.setAvailability)
	})

	return r
}

// View omits credentials and keeps the wire shape stable.
type View struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone,omitempty"`
	Specialty    string          `json:"specialty"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Available    bool            `json:"available"`
	Rating       float64         `json:"rating"`
	RatingCount  int             `json:"rating_count"`
	TotalJobs    int             `json:"total_jobs"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
}

// NearbyView is a directory view plus the computed distance.
type NearbyView struct {
	View
	DistanceKM float64 `json:"distance_km"`
}

func toView(m domain.Mechanic) View {
	return View{
		ID:           m.ID.String(),
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		Specialty:    m.Specialty,
		Latitude:     m.Location.Lat,
		Longitude:    m.Location.Lng,
		Available:    m.Available,
		Rating:       m.Rating,
		RatingCount:  m.RatingCount,
		TotalJobs:    m.TotalJobs,
		HourlyRate:   m.HourlyRate,
		MonthlyPrice: m.MonthlyPrice,
		YearlyPrice:  m.YearlyPrice,
	}
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	mechanics, err := h.directory.ListMechanics(r.Context())
	if err != nil {
		api.WriteError(w, err)
		return
	}
	views := make([]View, 0, len(mechanics))
	for _, m := range mechanics {
		views = append(views, toView(m))
	}
	api.WriteData(w, http.StatusOK, "mechanics", views)
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid id")
		return
	}
	mechanic, err := h.directory.GetMechanic(r.Context(), id)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "mechanic found", toView(mechanic))
}

func (h *HTTP) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("latitude"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("longitude"), 64)
	if errLat != nil || errLng != nil {
		api.WriteFailure(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	radiusKM := 10.0
	if raw := q.Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			api.WriteFailure(w, http.StatusBadRequest, "invalid radius")
			return
		}
		radiusKM = parsed
	}

	candidates, err := h.policy.FindCandidates(r.Context(), domain.GeoPoint{Lat: lat, Lng: lng}, radiusKM, q.Get("specialty"))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	views := make([]NearbyView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, NearbyView{View: toView(c.Mechanic), DistanceKM: c.DistanceKM})
	}
	api.WriteData(w, http.StatusOK, "nearby mechanics", views)
}

type availabilityPayload struct {
	Available bool `json:"available"`
}

func (h *HTTP) setAvailability(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		api.WriteFailure(w, http.StatusUnauthorized, "missing token")
		return
	}
	actorID, err := claims.ActorID()
	if err != nil {
		api.WriteFailure(w, http.StatusUnauthorized, "invalid token subject")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid id")
		return
	}
	if id != actorID {
		api.WriteFailure(w, http.StatusForbidden, "cannot change another mechanic's availability")
		return
	}

	var payload availabilityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.WriteFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mechanic, err := h.directory.SetAvailability(r.Context(), id, payload.Available)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, "availability updated", toView(mechanic))
}
