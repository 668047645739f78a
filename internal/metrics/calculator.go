// Package metrics computes the flat financial and environmental
// outcome record for a single measure against one building. The
// calculation is pure: it only reads the analysis result already
// stored for the (measure, building) pair under the requested
// valuation context.
package metrics

import (
	"math"

	"building-energy/internal/model"
	"building-energy/pkg/units"
)

// Calculate derives a metric record from the stored analysis result
// for the measure and building. An absent building entry is a valid,
// silent state: every derived field resolves to zero or null rather
// than an error.
func Calculate(m *model.Measure, buildingID string, vc model.ValuationContext) model.MetricRecord {
	rec := model.MetricRecord{
		ProjectCost:        math.Ceil(m.InitialValues.ProjectCost),
		MaintenanceSavings: m.InitialValues.MaintenanceSavings,
		EUL:                m.MeasureLife,
	}

	result := m.Result(buildingID, vc)
	if result == nil {
		return rec
	}

	rec.CalculationType = result.CalculationType
	rec.Incentive = math.Ceil(result.UtilityIncentive)

	annual := annualSavings(result)
	rec.AnnualSavings = annual.Sortable()
	if annual.IsRange {
		rec.AnnualSavingsRange = annual.Display()
	}

	rec.ElectricSavings = fuelSavings(m, result, model.FuelElectric)
	rec.GasSavings = fuelSavings(m, result, model.FuelGas)
	rec.WaterSavings = fuelSavings(m, result, model.FuelWater)
	rec.EnergySavings = units.CombinedKBtu(rec.ElectricSavings, rec.GasSavings)
	rec.DemandSavings = result.EnergySavings.Demand

	if result.EnergySavings.EUL != nil {
		rec.EUL = *result.EnergySavings.EUL
	}

	if g := result.GHG; g != nil {
		rec.GHG = g.Total
		rec.GHGElectric = g.Electric
		rec.GHGGas = g.Gas
		rec.GHGSavingsCost = g.SavingsCost
	}

	// Ratio metrics are undefined for savings bands: there is no single
	// annual figure to amortize.
	if !result.IsRange() {
		rec.ROI = roi(rec.AnnualSavings, rec.MaintenanceSavings, rec.ProjectCost, rec.Incentive)
		if rec.AnnualSavings > 0 {
			rec.SimplePayback = result.SimplePayback
		}
		if last := lastCashFlow(result.CashFlows); last != nil {
			if rec.AnnualSavings > 0 && rec.ProjectCost > 0 {
				rec.NPV = model.Float64Ptr(math.Ceil(last.NPV))
			}
			if rec.AnnualSavings > 0 {
				rec.SIR = model.Float64Ptr(round2(last.SIR))
			}
		}
	}

	return rec
}

// annualSavings sums the per-fuel charge savings, preserving band
// arithmetic when either side is a range.
func annualSavings(result *model.AnalysisResult) model.Quantity {
	var total model.Quantity
	for _, fuel := range []model.Fuel{model.FuelElectric, model.FuelGas} {
		if q, ok := result.AnnualSavings[fuel]; ok {
			total = total.Add(q)
		}
	}
	return total
}

// fuelSavings returns the sortable energy savings for one fuel, zero
// unless the measure tracks that fuel.
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

// ROI is defined only for positive cost and savings, and must survive
// a zero net cost (cost equal to incentive) without going infinite.
func roi(annual, maintenance, cost, incentive float64) *float64 {
	if cost <= 0 || annual <= 0 {
		return nil
	}
	v := ((annual + maintenance) / (cost - incentive)) * 100
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return model.Float64Ptr(math.Round(v))
}

// Roi exposes the guarded ROI formula for package-level rollups, which
// compute it directly over summed financials.
func Roi(annual, maintenance, cost, incentive float64) *float64 {
	return roi(annual, maintenance, cost, incentive)
}

func lastCashFlow(entries []model.CashFlowEntry) *model.CashFlowEntry {
	if len(entries) == 0 {
		return nil
	}
	return &entries[len(entries)-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
