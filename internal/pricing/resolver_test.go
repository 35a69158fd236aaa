package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/example/wrenchly/internal/booking/domain"
	"github.com/example/wrenchly/internal/pricing"
)

func TestResolveHourlyUsesMechanicRate(t *testing.T) {
	mech := domain.Mechanic{
		HourlyRate:   decimal.NewFromInt(50),
		MonthlyPrice: decimal.NewFromInt(999),
		YearlyPrice:  decimal.NewFromInt(9999),
	}
	resolver := pricing.NewResolver()

	price, err := resolver.Resolve(mech, domain.SubscriptionHourly)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(50)), "got %s", price)

	price, err = resolver.Resolve(mech, domain.SubscriptionMonthly)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(999)))

	price, err = resolver.Resolve(mech, domain.SubscriptionYearly)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(9999)))
}

func TestResolveUnconfiguredTier(t *testing.T) {
	mech := domain.Mechanic{HourlyRate: decimal.NewFromInt(50)}
	resolver := pricing.NewResolver()

	_, err := resolver.Resolve(mech, domain.SubscriptionMonthly)
	require.ErrorIs(t, err, domain.ErrPricingUnavailable)
}

func TestResolveUnknownTier(t *testing.T) {
	resolver := pricing.NewResolver()
	_, err := resolver.Resolve(domain.Mechanic{}, domain.SubscriptionType("WEEKLY"))
	require.ErrorIs(t, err, domain.ErrValidation)
}
