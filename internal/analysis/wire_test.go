package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"building-energy/internal/model"
)

func decodeWire(t *testing.T, body string) *model.AnalysisResult {
	t.Helper()
	var w wireResult
	require.NoError(t, json.Unmarshal([]byte(body), &w))
	result, err := w.toModel()
	require.NoError(t, err)
	return result
}

func TestDecodePointResult(t *testing.T) {
	result := decodeWire(t, `{
		"calculation-type": "calculated",
		"energy-savings": 12000,
		"annual-savings": {"electric-charge": 1500, "gas-charge": 500},
		"utility-incentive": 2000,
		"simple_payback": 4.2
	}`)

	assert.Equal(t, "calculated", result.CalculationType)
	assert.Equal(t, 12000.0, result.EnergySavings.Total.Sortable())
	assert.Equal(t, 1500.0, result.AnnualSavings[model.FuelElectric].Sortable())
	assert.Equal(t, 500.0, result.AnnualSavings[model.FuelGas].Sortable())
	assert.Equal(t, 2000.0, result.UtilityIncentive)
	require.NotNil(t, result.SimplePayback)
	assert.Equal(t, 4.2, *result.SimplePayback)
}

func TestDecodeBandResult(t *testing.T) {
	result := decodeWire(t, `{
		"calculation-type": "savings-range",
		"energy-savings": {"min-savings": 8000, "max-savings": 15000},
		"annual-savings": {
			"electric-charge": {"min-savings": 1000, "max-savings": 3000}
		}
	}`)

	assert.Equal(t, model.CalculationTypeSavingsRange, result.CalculationType)
	assert.Equal(t, 8000.0, result.EnergySavings.Total.Sortable())
	assert.Equal(t, "8000 - 15000", result.EnergySavings.Total.Display())

	elec := result.AnnualSavings[model.FuelElectric]
	assert.Equal(t, 1000.0, elec.Sortable())
	// Gas was absent, not zero.
	_, ok := result.AnnualSavings[model.FuelGas]
	assert.False(t, ok)
}

func TestDecodeStructuredResult(t *testing.T) {
	result := decodeWire(t, `{
		"energy-savings": {
			"electric": 12000,
			"gas": {"min-savings": 200, "max-savings": 400},
			"demand": 42.5,
			"eul": 15,
			"total": 32000
		},
		"annual-savings": {"electric-charge": 1500}
	}`)

	es := result.EnergySavings
	assert.Equal(t, 12000.0, es.ByFuel[model.FuelElectric].Sortable())
	assert.Equal(t, 200.0, es.ByFuel[model.FuelGas].Sortable())
	require.NotNil(t, es.Demand)
	assert.Equal(t, 42.5, *es.Demand)
	require.NotNil(t, es.EUL)
	assert.Equal(t, 15.0, *es.EUL)
	assert.Equal(t, 32000.0, es.Total.Sortable())
}

func TestDecodeCashFlows(t *testing.T) {
	result := decodeWire(t, `{
		"energy-savings": 100,
		"annual-savings": {},
		"cash-flows": {
			"cash_flows": [
				{"NPV": 100.5, "SIR": 0.9},
				{"NPV": 2500.4, "SIR": 1.25}
			]
		}
	}`)

	require.Len(t, result.CashFlows, 2)
	assert.Equal(t, 2500.4, result.CashFlows[1].NPV)
	assert.Equal(t, 1.25, result.CashFlows[1].SIR)
}

func TestDecodeAbsentFields(t *testing.T) {
	result := decodeWire(t, `{}`)

	assert.Empty(t, result.CalculationType)
	assert.Zero(t, result.EnergySavings.Total.Sortable())
	assert.Empty(t, result.AnnualSavings)
	assert.Nil(t, result.SimplePayback)
	assert.Nil(t, result.CashFlows)
}

func TestDecodeNullQuantity(t *testing.T) {
	q, ok, err := decodeQuantity(json.RawMessage("null"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, q.Sortable())
}

func TestDecodeMalformedQuantity(t *testing.T) {
	_, _, err := decodeQuantity(json.RawMessage(`"not-a-number"`))
	assert.Error(t, err)
}
