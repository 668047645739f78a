// Package ghg converts a measure's energy savings into avoided
// greenhouse-gas emissions using building-specific or default
// emission factors.
package ghg

import (
	"math"

	"building-energy/internal/model"
	"building-energy/internal/rates"
	"building-energy/pkg/units"
)

// Default emission factors, in tCO2e per unit of fuel savings
// (kWh for electric, therms for gas). Used when a building does not
// define its own factors.
const (
	DefaultElectricFactor = 0.000744
	DefaultGasFactor      = 0.0053
)

// Recompute updates the stored GHG figures on every analysis-result
// entry the given measures carry for the building, in both valuation
// contexts. Measures without a result entry for the building are left
// untouched; missing data is a valid state here.
func Recompute(building *model.Building, measures []*model.Measure) {
	if building == nil {
		return
	}
	for _, m := range measures {
		for _, vc := range []model.ValuationContext{model.ContextNominal, model.ContextWithRate} {
			result := m.Result(building.ID, vc)
			if result == nil {
				continue
			}
			result.GHG = compute(building, m, result)
		}
		if m.IsComposite() {
			Recompute(building, m.Children)
		}
	}
}

func compute(building *model.Building, m *model.Measure, result *model.AnalysisResult) *model.GHGResult {
	electric := round2(rates.EmissionFactor(building, model.FuelElectric, DefaultElectricFactor) *
		fuelSavings(m, result, model.FuelElectric))
	gas := round2(rates.EmissionFactor(building, model.FuelGas, DefaultGasFactor) *
		fuelSavings(m, result, model.FuelGas))
	total := round2(electric + gas)

	// Division by zero savings is a defined outcome, not an error.
	cost := 0.0
	if total != 0 {
		cost = round2(m.InitialValues.ProjectCost / total)
	}

	return &model.GHGResult{
		Total:       total,
		Electric:    electric,
		Gas:         gas,
		SavingsCost: cost,
		Unit:        string(units.UnitTonsCO2e),
		CostUnit:    string(units.UnitDollarsPerTon),
	}
}

// fuelSavings extracts the scalar fuel savings a factor applies to:
// the per-fuel breakdown entry when present, else the total for a
// single-fuel measure whose only fuel matches.
func fuelSavings(m *model.Measure, result *model.AnalysisResult, fuel model.Fuel) float64 {
	if !m.HasFuel(fuel) {
		return 0
	}
	if q, ok := result.EnergySavings.ByFuel[fuel]; ok {
		return q.Sortable()
	}
	if len(m.Fuels) == 1 {
		return result.EnergySavings.Total.Sortable()
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
