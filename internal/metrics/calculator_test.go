package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"building-energy/internal/model"
)

func leafMeasure() *model.Measure {
	return &model.Measure{
		ID:    "m1",
		Name:  "LED retrofit",
		Fuels: []model.Fuel{model.FuelElectric, model.FuelGas},
		InitialValues: model.InitialValues{
			ProjectCost: 10000,
		},
		RunResults: map[string]*model.AnalysisResult{
			"b1": {
				UtilityIncentive: 2000,
				AnnualSavings: map[model.Fuel]model.Quantity{
					model.FuelElectric: model.Point(1500),
					model.FuelGas:      model.Point(500),
				},
				EnergySavings: model.EnergySavings{
					ByFuel: map[model.Fuel]model.Quantity{
						model.FuelElectric: model.Point(12000),
						model.FuelGas:      model.Point(300),
					},
				},
			},
		},
	}
}

func TestCalculateBasics(t *testing.T) {
	m := leafMeasure()
	rec := Calculate(m, "b1", model.ContextNominal)

	assert.Equal(t, 10000.0, rec.ProjectCost)
	assert.Equal(t, 2000.0, rec.Incentive)
	assert.Equal(t, 2000.0, rec.AnnualSavings)
	assert.Equal(t, 12000.0, rec.ElectricSavings)
	assert.Equal(t, 300.0, rec.GasSavings)
	// 12000 kWh * 3.412 + 300 therms * 100
	assert.InDelta(t, 70944.0, rec.EnergySavings, 0.001)

	require.NotNil(t, rec.ROI)
	assert.Equal(t, 25.0, *rec.ROI) // round(((2000+0)/(10000-2000))*100)
}

func TestCalculateMissingResult(t *testing.T) {
	m := leafMeasure()
	rec := Calculate(m, "unknown-building", model.ContextNominal)

	// Missing data is a valid, silent state.
	assert.Equal(t, 10000.0, rec.ProjectCost)
	assert.Zero(t, rec.AnnualSavings)
	assert.Zero(t, rec.Incentive)
	assert.Nil(t, rec.ROI)
	assert.Nil(t, rec.SimplePayback)
	assert.Nil(t, rec.NPV)
	assert.Nil(t, rec.SIR)
}

func TestCalculateSavingsRange(t *testing.T) {
	m := leafMeasure()
	result := m.RunResults["b1"]
	result.CalculationType = model.CalculationTypeSavingsRange
	result.AnnualSavings = map[model.Fuel]model.Quantity{
		model.FuelElectric: model.Range(1000, 3000),
		model.FuelGas:      model.Range(200, 600),
	}
	result.SimplePayback = model.Float64Ptr(5)

	rec := Calculate(m, "b1", model.ContextNominal)

	assert.Equal(t, model.CalculationTypeSavingsRange, rec.CalculationType)
	// Sortable form is the min bound sum; the band survives for display.
	assert.Equal(t, 1200.0, rec.AnnualSavings)
	assert.Equal(t, "1200 - 3600", rec.AnnualSavingsRange)
	// Ratio metrics are disabled for bands regardless of other values.
	assert.Nil(t, rec.ROI)
	assert.Nil(t, rec.SimplePayback)
}

func TestCalculateCashFlowDerived(t *testing.T) {
	m := leafMeasure()
	result := m.RunResults["b1"]
	result.SimplePayback = model.Float64Ptr(4.2)
	result.CashFlows = []model.CashFlowEntry{
		{NPV: 1000.5, SIR: 1.111},
		{NPV: 2500.4, SIR: 1.257},
	}

	rec := Calculate(m, "b1", model.ContextNominal)

	require.NotNil(t, rec.SimplePayback)
	assert.Equal(t, 4.2, *rec.SimplePayback)
	require.NotNil(t, rec.NPV)
	assert.Equal(t, 2501.0, *rec.NPV) // ceil of last entry
	require.NotNil(t, rec.SIR)
	assert.Equal(t, 1.26, *rec.SIR) // last entry, 2 decimals
}

func TestCalculateEULFallback(t *testing.T) {
	m := leafMeasure()
	m.MeasureLife = 15
	rec := Calculate(m, "b1", model.ContextNominal)
	assert.Equal(t, 15.0, rec.EUL)

	eul := 9.0
	m.RunResults["b1"].EnergySavings.EUL = &eul
	rec = Calculate(m, "b1", model.ContextNominal)
	assert.Equal(t, 9.0, rec.EUL)
}

func TestCalculateDemandSavings(t *testing.T) {
	m := leafMeasure()
	demand := 42.5
	m.RunResults["b1"].EnergySavings.Demand = &demand

	rec := Calculate(m, "b1", model.ContextNominal)
	require.NotNil(t, rec.DemandSavings)
	assert.Equal(t, 42.5, *rec.DemandSavings)
}

func TestCalculateFuelGating(t *testing.T) {
	m := leafMeasure()
	m.Fuels = []model.Fuel{model.FuelElectric}

	rec := Calculate(m, "b1", model.ContextNominal)
	assert.Equal(t, 12000.0, rec.ElectricSavings)
	// Gas is reported in the result but the measure does not track it.
	assert.Zero(t, rec.GasSavings)
}

func TestRoiGuards(t *testing.T) {
	// Zero net cost must not produce an infinite ROI.
	assert.Nil(t, Roi(1000, 0, 5000, 5000))
	assert.Nil(t, Roi(0, 100, 5000, 0))
	assert.Nil(t, Roi(1000, 0, 0, 0))

	roi := Roi(2000, 0, 10000, 2000)
	if assert.NotNil(t, roi) {
		assert.Equal(t, 25.0, *roi)
	}
}
