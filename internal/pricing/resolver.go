package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/wrenchly/internal/booking/domain"
)

// Resolver maps a mechanic and a subscription tier to a price. Pricing is
// mechanic-scoped: each mechanic carries an hourly rate and flat monthly and
// yearly prices. The resolved price is fixed on the booking at creation time;
// later changes to the mechanic's rates never reprice existing bookings.
type Resolver struct{}

// NewResolver constructs a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the price for the tier. A zero or negative configured price
// means the mechanic has not enabled that tier.
func (Resolver) Resolve(mechanic domain.Mechanic, tier domain.SubscriptionType) (decimal.Decimal, error) {
	var price decimal.Decimal
	switch tier {
	case domain.SubscriptionHourly:
		price = mechanic.HourlyRate
	case domain.SubscriptionMonthly:
		price = mechanic.MonthlyPrice
	case domain.SubscriptionYearly:
		price = mechanic.YearlyPrice
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unknown subscription type %q", domain.ErrValidation, tier)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s for mechanic %s", domain.ErrPricingUnavailable, tier, mechanic.ID)
	}
	return price, nil
}
