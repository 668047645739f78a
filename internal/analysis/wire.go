package analysis

import (
	"encoding/json"
	"fmt"

	"building-energy/internal/model"
)

// wireResult mirrors the analysis service's response document. The
// energy-savings field is polymorphic on the wire: a bare number, a
// min/max band, or a structured object with per-fuel breakdown plus
// demand and EUL.
type wireResult struct {
	CalculationType  string          `json:"calculation-type"`
	EnergySavings    json.RawMessage `json:"energy-savings"`
	AnnualSavings    wireAnnual      `json:"annual-savings"`
	UtilityIncentive float64         `json:"utility-incentive"`
	SimplePayback    *float64        `json:"simple_payback"`
	CashFlows        *wireCashFlows  `json:"cash-flows"`
}

type wireAnnual struct {
	ElectricCharge json.RawMessage `json:"electric-charge"`
	GasCharge      json.RawMessage `json:"gas-charge"`
}

type wireCashFlows struct {
	CashFlows []model.CashFlowEntry `json:"cash_flows"`
}

func (w *wireResult) toModel() (*model.AnalysisResult, error) {
	result := &model.AnalysisResult{
		CalculationType:  w.CalculationType,
		UtilityIncentive: w.UtilityIncentive,
		SimplePayback:    w.SimplePayback,
	}
	if w.CashFlows != nil {
		result.CashFlows = w.CashFlows.CashFlows
	}

	es, err := decodeEnergySavings(w.EnergySavings)
	if err != nil {
		return nil, fmt.Errorf("failed to decode energy-savings: %w", err)
	}
	result.EnergySavings = es

	result.AnnualSavings = make(map[model.Fuel]model.Quantity)
	if q, ok, err := decodeQuantity(w.AnnualSavings.ElectricCharge); err != nil {
		return nil, fmt.Errorf("failed to decode electric-charge: %w", err)
	} else if ok {
		result.AnnualSavings[model.FuelElectric] = q
	}
	if q, ok, err := decodeQuantity(w.AnnualSavings.GasCharge); err != nil {
		return nil, fmt.Errorf("failed to decode gas-charge: %w", err)
	} else if ok {
		result.AnnualSavings[model.FuelGas] = q
	}

	return result, nil
}

// decodeQuantity accepts a number or a {min-savings, max-savings}
// object. Absent or null values decode to (zero, false, nil).
func decodeQuantity(raw json.RawMessage) (model.Quantity, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return model.Quantity{}, false, nil
	}
	var point float64
	if err := json.Unmarshal(raw, &point); err == nil {
		return model.Point(point), true, nil
	}
	var band struct {
		Min float64 `json:"min-savings"`
		Max float64 `json:"max-savings"`
	}
	if err := json.Unmarshal(raw, &band); err != nil {
		return model.Quantity{}, false, err
	}
	return model.Range(band.Min, band.Max), true, nil
}

// decodeEnergySavings accepts the three wire forms of energy-savings.
func decodeEnergySavings(raw json.RawMessage) (model.EnergySavings, error) {
	var es model.EnergySavings
	if len(raw) == 0 || string(raw) == "null" {
		return es, nil
	}

	var point float64
	if err := json.Unmarshal(raw, &point); err == nil {
		es.Total = model.Point(point)
		return es, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return es, err
	}

	// Band form
	if _, ok := obj["min-savings"]; ok {
		q, _, err := decodeQuantity(raw)
		if err != nil {
			return es, err
		}
		es.Total = q
		return es, nil
	}

	// Structured form: per-fuel breakdown plus optional demand and eul.
	es.ByFuel = make(map[model.Fuel]model.Quantity)
	for key, fuel := range map[string]model.Fuel{
		"electric": model.FuelElectric,
		"gas":      model.FuelGas,
		"water":    model.FuelWater,
	} {
		if fr, ok := obj[key]; ok {
			q, ok, err := decodeQuantity(fr)
			if err != nil {
				return es, err
			}
			if ok {
				es.ByFuel[fuel] = q
			}
		}
	}
	if dr, ok := obj["demand"]; ok {
		var d float64
		if err := json.Unmarshal(dr, &d); err == nil {
			es.Demand = &d
		}
	}
	if er, ok := obj["eul"]; ok {
		var e float64
		if err := json.Unmarshal(er, &e); err == nil {
			es.EUL = &e
		}
	}
	if tr, ok := obj["total"]; ok {
		if q, ok, err := decodeQuantity(tr); err == nil && ok {
			es.Total = q
		}
	}
	return es, nil
}
