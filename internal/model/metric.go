package model

import "fmt"

// Quantity is a savings value that is either a point estimate or a
// min/max band. Zero value means "absent".
type Quantity struct {
	Value   float64 `json:"value"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	IsRange bool    `json:"is_range,omitempty"`
}

// Point builds a point-estimate quantity.
func Point(v float64) Quantity { return Quantity{Value: v} }

// Range builds a banded quantity.
func Range(min, max float64) Quantity {
	return Quantity{Min: min, Max: max, IsRange: true}
}

// Sortable collapses the quantity to a single comparable scalar: the
// point value, or the min bound of a band.
func (q Quantity) Sortable() float64 {
	if q.IsRange {
		return q.Min
	}
	return q.Value
}

// Display renders the quantity for reporting: the point value, or the
// "min - max" band form.
func (q Quantity) Display() string {
	if q.IsRange {
		return fmt.Sprintf("%v - %v", q.Min, q.Max)
	}
	return fmt.Sprintf("%v", q.Value)
}

// Add sums two quantities. Adding any band produces a band; a point
// contributes its value to both bounds.
func (q Quantity) Add(o Quantity) Quantity {
	if !q.IsRange && !o.IsRange {
		return Quantity{Value: q.Value + o.Value}
	}
	min, max := q.Value, q.Value
	if q.IsRange {
		min, max = q.Min, q.Max
	}
	omin, omax := o.Value, o.Value
	if o.IsRange {
		omin, omax = o.Min, o.Max
	}
	return Quantity{Min: min + omin, Max: max + omax, IsRange: true}
}

// MetricRecord is the flat financial/environmental outcome for one
// measure, container, proposal, or scenario. Additive fields roll up
// by summation; the pointer fields are financial ratios that do not,
// and are nil when undefined (missing inputs, savings bands).
type MetricRecord struct {
	ProjectCost        float64 `json:"projectCost"`
	Incentive          float64 `json:"incentive"`
	AnnualSavings      float64 `json:"annualSavings"`
	AnnualSavingsRange string  `json:"annualSavingsRange,omitempty"`
	ElectricSavings    float64 `json:"electricSavings"`
	GasSavings         float64 `json:"gasSavings"`
	WaterSavings       float64 `json:"waterSavings"`
	MaintenanceSavings float64 `json:"maintenanceSavings"`
	EnergySavings      float64 `json:"energySavings"`

	DemandSavings *float64 `json:"demandSavings,omitempty"`
	EUL           float64  `json:"eul"`

	GHG            float64 `json:"ghg"`
	GHGElectric    float64 `json:"ghg-electric"`
	GHGGas         float64 `json:"ghg-gas"`
	GHGSavingsCost float64 `json:"ghgSavingsCost"`

	ROI           *float64 `json:"roi"`
	SimplePayback *float64 `json:"simplePayback"`
	NPV           *float64 `json:"npv"`
	SIR           *float64 `json:"sir"`

	CalculationType string `json:"calculationType,omitempty"`
}

// AddAdditive accumulates another record's additive fields into the
// receiver. Ratio fields are deliberately untouched; they are not
// linear under summation and are derived separately.
func (r *MetricRecord) AddAdditive(o *MetricRecord) {
	if o == nil {
		return
	}
	r.ProjectCost += o.ProjectCost
	r.Incentive += o.Incentive
	r.AnnualSavings += o.AnnualSavings
	r.ElectricSavings += o.ElectricSavings
	r.GasSavings += o.GasSavings
	r.WaterSavings += o.WaterSavings
	r.MaintenanceSavings += o.MaintenanceSavings
	r.EnergySavings += o.EnergySavings
	r.GHG += o.GHG
	r.GHGElectric += o.GHGElectric
	r.GHGGas += o.GHGGas
	r.GHGSavingsCost += o.GHGSavingsCost
	if o.DemandSavings != nil {
		v := *o.DemandSavings
		if r.DemandSavings != nil {
			v += *r.DemandSavings
		}
		r.DemandSavings = &v
	}
	if o.EUL > r.EUL {
		r.EUL = o.EUL
	}
	if r.CalculationType == "" {
		r.CalculationType = o.CalculationType
	}
}

// Float64Ptr is a convenience for the nullable ratio fields.
func Float64Ptr(v float64) *float64 { return &v }
