package handler

import (
	"bytes"
	"context"
	"encoding/json"
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
	"github.com/example/wrenchly/internal/booking/service"
	"github.com/example/wrenchly/internal/pricing"
)

const testSecret = "test-secret"

type dropPublisher struct{}

func (dropPublisher) Publish(context.Context, domain.BookingEvent) error { return nil }

type fixture struct {
	router        http.Handler
	customerID    uuid.UUID
	mechanicID    uuid.UUID
	customerToken string
	mechanicToken string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	directory := repository.NewMemoryDirectory(domain.SystemClock{})
	repo := repository.NewMemoryRepository()
	svc := service.NewLedger(repo, directory, directory, pricing.NewResolver(),
		dropPublisher{}, domain.SystemClock{}, repository.NewMemoryIdempotencyRepo())

	ctx := context.Background()
	customer, err := directory.CreateCustomer(ctx, domain.Customer{ID: uuid.New(), Name: "Dana", Email: "dana@example.com"})
	require.NoError(t, err)
	mechanic, err := directory.CreateMechanic(ctx, domain.Mechanic{
		ID:         uuid.New(),
		Name:       "Mo",
		Email:      "mo@example.com",
		Specialty:  "Engine",
		Available:  true,
		HourlyRate: decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	issuer := auth.NewIssuer(testSecret, time.Hour)
	customerToken, err := issuer.Issue(customer.ID, domain.RoleCustomer, time.Now())
	require.NoError(t, err)
	mechanicToken, err := issuer.Issue(mechanic.ID, domain.RoleMechanic, time.Now())
	require.NoError(t, err)

	return &fixture{
		router:        NewHTTP(svc, testSecret).Router(),
		customerID:    customer.ID,
		mechanicID:    mechanic.ID,
		customerToken: customerToken,
		mechanicToken: mechanicToken,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
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

func (f *fixture) createBooking(t *testing.T) uuid.UUID {
	t.Helper()
	rec, env := f.do(t, http.MethodPost, "/", f.customerToken, map[string]any{
		"mechanic_id":         f.mechanicID.String(),
		"problem_description": "engine rattle",
		"subscription_type":   "HOURLY",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)
	var resp service.CreateBookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.BookingID
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, http.MethodPost, "/", f.customerToken, map[string]any{
		"mechanic_id":         f.mechanicID.String(),
		"problem_description": "engine rattle",
		"subscription_type":   "HOURLY",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)

	var resp service.CreateBookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Equal(t, domain.StatusPending, resp.Status)
	require.True(t, resp.Price.Equal(decimal.NewFromInt(50)))
}

func TestCreateBookingRequiresCustomerRole(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodPost, "/", f.mechanicToken, map[string]any{})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/", "", map[string]any{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBookingRejectsBadPayload(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodPost, "/", f.customerToken, map[string]any{"mechanic_id": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, env.Success)

	rec, _ = f.do(t, http.MethodPost, "/", f.customerToken, map[string]any{
		"mechanic_id":       uuid.NewString(),
		"subscription_type": "HOURLY",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	rec, env := f.do(t, http.MethodPut, "/"+id.String()+"/accept", f.mechanicToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view BookingView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, domain.StatusAccepted, view.Status)

	rec, _ = f.do(t, http.MethodPut, "/"+id.String()+"/start", f.mechanicToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodPut, "/"+id.String()+"/complete", f.mechanicToken, map[string]any{"actual_duration_minutes": 90})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, domain.StatusCompleted, view.Status)
	require.NotNil(t, view.ActualDurationMin)
	require.Equal(t, 90, *view.ActualDurationMin)

	rec, env = f.do(t, http.MethodPut, "/"+id.String()+"/rate", f.customerToken, map[string]any{"rating": 5, "feedback": "quick fix"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotNil(t, view.Rating)
	require.Equal(t, 5, *view.Rating)
}

func TestTransitionConflictsMapTo409(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	rec, _ := f.do(t, http.MethodPut, "/"+id.String()+"/accept", f.mechanicToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := f.do(t, http.MethodPut, "/"+id.String()+"/accept", f.mechanicToken, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.False(t, env.Success)

	rec, _ = f.do(t, http.MethodPut, "/"+id.String()+"/rate", f.customerToken, map[string]any{"rating": 5})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelRoleGuards(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	// Mechanics reject, they do not cancel.
	rec, _ := f.do(t, http.MethodPut, "/"+id.String()+"/cancel", f.mechanicToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := f.do(t, http.MethodPut, "/"+id.String()+"/cancel", f.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view BookingView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, domain.StatusCancelled, view.Status)
}

func TestGetAndListEndpoints(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	rec, env := f.do(t, http.MethodGet, "/"+id.String(), f.mechanicToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view BookingView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, id.String(), view.ID)

	rec, env = f.do(t, http.MethodGet, "/customer/"+f.customerID.String(), f.customerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []BookingView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)

	rec, env = f.do(t, http.MethodGet, "/mechanic/"+f.mechanicID.String(), f.mechanicToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)

	rec, _ = f.do(t, http.MethodGet, "/not-a-uuid", f.customerToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/"+uuid.NewString(), f.customerToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
