package mechanic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/example/wrenchly/internal/auth"
	"github.com/example/wrenchly/internal/booking/domain"
	"github.com/example/wrenchly/internal/booking/repository"
	"github.com/example/wrenchly/internal/matching"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	router    http.Handler
	directory *repository.MemoryDirectory
	issuer    *auth.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	directory := repository.NewMemoryDirectory(domain.SystemClock{})
	policy := matching.NewPolicy(matching.NewMemoryGeoIndex(directory), directory)
	return &fixture{
		router:    NewHTTP(directory, policy, testSecret).Router(),
		directory: directory,
		issuer:    auth.NewIssuer(testSecret, time.Hour),
	}
}

func (f *fixture) addMechanic(t *testing.T, name, specialty string, lat, lng float64) domain.Mechanic {
	t.Helper()
	m, err := f.directory.CreateMechanic(context.Background(), domain.Mechanic{
		ID:         uuid.New(),
		Name:       name,
		Email:      name + "@example.com",
		Specialty:  specialty,
		Location:   domain.GeoPoint{Lat: lat, Lng: lng},
		Available:  true,
		HourlyRate: decimal.NewFromInt(40),
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) token(t *testing.T, id uuid.UUID, role domain.Role) string {
	t.Helper()
	token, err := f.issuer.Issue(id, role, time.Now())
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestNearbySearch(t *testing.T) {
	f := newFixture(t)
	near := f.addMechanic(t, "near", "Engine", 0, 0.05)
	f.addMechanic(t, "far", "Engine", 0, 1)
	f.addMechanic(t, "tires", "Tires", 0, 0.01)
	token := f.token(t, uuid.New(), domain.RoleCustomer)

	rec, env := f.do(t, http.MethodGet,
		fmt.Sprintf("/nearby?latitude=0&longitude=0&radius=10&specialty=%s", "Engine"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []NearbyView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	require.Equal(t, near.ID.String(), views[0].ID)
	require.Greater(t, views[0].DistanceKM, 0.0)
}

func TestNearbyRequiresCoordinates(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, uuid.New(), domain.RoleCustomer)

	rec, _ := f.do(t, http.MethodGet, "/nearby?latitude=0", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/nearby?latitude=0&longitude=0&radius=-1", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	m := f.addMechanic(t, "mo", "Engine", 0, 0)
	token := f.token(t, uuid.New(), domain.RoleCustomer)

	rec, env := f.do(t, http.MethodGet, "/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []View
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)

	rec, env = f.do(t, http.MethodGet, "/"+m.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, "mo", view.Name)

	rec, _ = f.do(t, http.MethodGet, "/"+uuid.NewString(), token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetAvailabilityOwnRecordOnly(t *testing.T) {
	f := newFixture(t)
	m := f.addMechanic(t, "mo", "Engine", 0, 0)
	other := f.addMechanic(t, "other", "Engine", 0, 0)

	ownToken := f.token(t, m.ID, domain.RoleMechanic)
	rec, env := f.do(t, http.MethodPut, "/"+m.ID.String()+"/availability", ownToken, map[string]any{"available": false})
	require.Equal(t, http.StatusOK, rec.Code)
	var view View
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.False(t, view.Available)

	rec, _ = f.do(t, http.MethodPut, "/"+other.ID.String()+"/availability", ownToken, map[string]any{"available": false})
	require.Equal(t, http.StatusForbidden, rec.Code)

	customerToken := f.token(t, uuid.New(), domain.RoleCustomer)
	rec, _ = f.do(t, http.MethodPut, "/"+m.ID.String()+"/availability", customerToken, map[string]any{"available": true})
	require.Equal(t, http.StatusForbidden, rec.Code)
}
