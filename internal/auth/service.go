package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/wrenchly/internal/booking/domain"
)

// Service registers and authenticates customers and mechanics.
type Service struct {
	mechanics domain.MechanicDirectory
	customers domain.CustomerDirectory
	issuer    *Issuer
	clock     domain.Clock
}

// NewService constructs the auth service.
func NewService(mechanics domain.MechanicDirectory, customers domain.CustomerDirectory, issuer *Issuer, clock domain.Clock) *Service {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Service{mechanics: mechanics, customers: customers, issuer: issuer, clock: clock}
}

// RegisterRequest covers both roles; the mechanic-only fields are ignored for
// customers.
type RegisterRequest struct {
	Role     domain.Role
	Name     string
	Email    string
	Password string
	Phone    string
	Location domain.GeoPoint

	Specialty    string
	HourlyRate   decimal.Decimal
	MonthlyPrice decimal.Decimal
	YearlyPrice  decimal.Decimal
}

// Session is the issued token plus the actor it identifies. It replaces any
// client-side ambient session state: callers pass the token on every request.
type Session struct {
	Token     string      `json:"token"`
	ActorID   uuid.UUID   `json:"actor_id"`
	Role      domain.Role `json:"role"`
	Name      string      `json:"name"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Register creates the account and returns a fresh session.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return Session{}, fmt.Errorf("%w: name and email required", domain.ErrValidation)
	}
	if len(req.Password) < 6 {
		return Session{}, fmt.Errorf("%w: password too short", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.New()
	switch req.Role {
	case domain.RoleCustomer:
		_, err = s.customers.CreateCustomer(ctx, domain.Customer{
			ID:           id,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			Phone:        req.Phone,
			Location:     req.Location,
		})
	case domain.RoleMechanic:
		_, err = s.mechanics.CreateMechanic(ctx, domain.Mechanic{
			ID:           id,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			Phone:        req.Phone,
			Location:     req.Location,
			Specialty:    req.Specialty,
			Available:    true,
			HourlyRate:   req.HourlyRate,
			MonthlyPrice: req.MonthlyPrice,
			YearlyPrice:  req.YearlyPrice,
		})
	default:
		return Session{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, req.Role)
	}
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return Session{}, fmt.Errorf("%w: email already registered", domain.ErrValidation)
		}
		return Session{}, err
	}

	return s.session(id, req.Role, req.Name)
}

// Login verifies credentials and returns a fresh session.
func (s *Service) Login(ctx context.Context, role domain.Role, email, password string) (Session, error) {
	var (
		id   uuid.UUID
		name string
		hash string
	)
	switch role {
	case domain.RoleCustomer:
		customer, err := s.customers.GetCustomerByEmail(ctx, email)
		if err != nil {
			return Session{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		id, name, hash = customer.ID, customer.Name, customer.PasswordHash
	case domain.RoleMechanic:
		mechanic, err := s.mechanics.GetMechanicByEmail(ctx, email)
		if err != nil {
			return Session{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		id, name, hash = mechanic.ID, mechanic.Name, mechanic.PasswordHash
	default:
		return Session{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Session{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	return s.session(id, role, name)
}

func (s *Service) session(id uuid.UUID, role domain.Role, name string) (Session, error) {
	now := s.clock.Now()
	token, err := s.issuer.Issue(id, role, now)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, ActorID: id, Role: role, Name: name, ExpiresAt: now.Add(s.issuer.ttl)}, nil
}
