// Package rates resolves the valuation rate context for a rollup:
// which discount/finance/inflation/reinvestment rates and per-fuel
// unit costs price a measure's savings.
package rates

import "building-energy/internal/model"

// DefaultInvestmentPeriod is assumed when neither the building nor a
// container override specifies one.
const DefaultInvestmentPeriod = 10

// Resolve produces the rate set for a rollup. Precedence: a container's
// own override wins outright; otherwise the building supplies the rates
// for the requested context, the alternate context falling back to the
// nominal set when no override rates exist. A nil building resolves to
// an empty rate set; missing rates are a valid state, not an error.
func Resolve(building *model.Building, override *model.Rates, vc model.ValuationContext) model.Rates {
	if override != nil {
		return withDefaults(*override)
	}
	if building == nil {
		return withDefaults(model.Rates{})
	}
	if vc == model.ContextWithRate && building.RatesWithOverride != nil {
		return withDefaults(*building.RatesWithOverride)
	}
	if building.Rates != nil {
		return withDefaults(*building.Rates)
	}
	return withDefaults(model.Rates{})
}

// EmissionFactor returns the building's per-fuel emission factor, or
// the platform default when the building does not define one.
func EmissionFactor(building *model.Building, fuel model.Fuel, defaultFactor float64) float64 {
	if building != nil && building.Rates != nil {
		if f, ok := building.Rates.EmissionFactors[fuel]; ok && f != 0 {
			return f
		}
	}
	return defaultFactor
}

// FuelCost returns the resolved unit cost for a fuel, zero when absent.
func FuelCost(r model.Rates, fuel model.Fuel) float64 {
	return r.FuelCosts[fuel]
}

// Fractional converts the percentage rate fields to fractions for the
// cash-flow service, which expects 0.025 rather than 2.5.
func Fractional(r model.Rates) model.Rates {
	r.DiscountRate /= 100
	r.FinanceRate /= 100
	r.InflationRate /= 100
	r.ReinvestmentRate /= 100
	return r
}

func withDefaults(r model.Rates) model.Rates {
	if r.InvestmentPeriod == 0 {
		r.InvestmentPeriod = DefaultInvestmentPeriod
	}
	return r
}
