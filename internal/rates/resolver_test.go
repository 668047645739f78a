package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"building-energy/internal/model"
)

func TestResolveOverrideWins(t *testing.T) {
	b := &model.Building{
		ID:    "b1",
		Rates: &model.Rates{DiscountRate: 2},
	}
	override := &model.Rates{DiscountRate: 8}

	r := Resolve(b, override, model.ContextNominal)
	assert.Equal(t, 8.0, r.DiscountRate)
}

func TestResolveContextFallback(t *testing.T) {
	b := &model.Building{
		ID:    "b1",
		Rates: &model.Rates{DiscountRate: 2},
	}

	// No override rate set: the alternate context prices with the
	// nominal rates.
	r := Resolve(b, nil, model.ContextWithRate)
	assert.Equal(t, 2.0, r.DiscountRate)

	b.RatesWithOverride = &model.Rates{DiscountRate: 5}
	r = Resolve(b, nil, model.ContextWithRate)
	assert.Equal(t, 5.0, r.DiscountRate)

	// Nominal never sees the override set.
	r = Resolve(b, nil, model.ContextNominal)
	assert.Equal(t, 2.0, r.DiscountRate)
}

func TestResolveNilBuilding(t *testing.T) {
	r := Resolve(nil, nil, model.ContextNominal)
	assert.Zero(t, r.DiscountRate)
	assert.Equal(t, DefaultInvestmentPeriod, r.InvestmentPeriod)
}

func TestResolveInvestmentPeriodDefault(t *testing.T) {
	b := &model.Building{ID: "b1", Rates: &model.Rates{DiscountRate: 2}}
	r := Resolve(b, nil, model.ContextNominal)
	assert.Equal(t, DefaultInvestmentPeriod, r.InvestmentPeriod)

	b.Rates.InvestmentPeriod = 25
	r = Resolve(b, nil, model.ContextNominal)
	assert.Equal(t, 25, r.InvestmentPeriod)
}

func TestEmissionFactor(t *testing.T) {
	b := &model.Building{
		ID: "b1",
		Rates: &model.Rates{
			EmissionFactors: map[model.Fuel]float64{model.FuelElectric: 0.001},
		},
	}

	assert.Equal(t, 0.001, EmissionFactor(b, model.FuelElectric, 0.000744))
	assert.Equal(t, 0.0053, EmissionFactor(b, model.FuelGas, 0.0053))
	assert.Equal(t, 0.000744, EmissionFactor(nil, model.FuelElectric, 0.000744))
}

func TestFractional(t *testing.T) {
	r := Fractional(model.Rates{
		DiscountRate:     2.5,
		FinanceRate:      4,
		InflationRate:    1,
		ReinvestmentRate: 3,
		InvestmentPeriod: 10,
	})

	assert.Equal(t, 0.025, r.DiscountRate)
	assert.Equal(t, 0.04, r.FinanceRate)
	assert.Equal(t, 0.01, r.InflationRate)
	assert.Equal(t, 0.03, r.ReinvestmentRate)
	// The period is a year count, not a percentage.
	assert.Equal(t, 10, r.InvestmentPeriod)
}
