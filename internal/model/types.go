// Package model defines the core entities of the building-energy platform:
// buildings, measures, measure/project packages, proposals, and scenarios,
// plus the analysis results and metric records computed over them.
package model

// ValuationContext selects which rate set prices a measure's savings.
type ValuationContext int

const (
	// ContextNominal uses the building's own rates.
	ContextNominal ValuationContext = iota
	// ContextWithRate uses the alternate rate override.
	ContextWithRate
)

func (v ValuationContext) String() string {
	if v == ContextWithRate {
		return "with-rate"
	}
	return "nominal"
}

// ParseValuationContext maps the wire form back to a context.
// Unknown values fall back to nominal.
func ParseValuationContext(s string) ValuationContext {
	if s == "with-rate" {
		return ContextWithRate
	}
	return ContextNominal
}

// Fuel identifies an energy source tracked per measure.
type Fuel string

const (
	FuelElectric Fuel = "electric"
	FuelGas      Fuel = "gas"
	FuelWater    Fuel = "water"
)

// AnalysisType distinguishes how a measure's outcomes are produced.
type AnalysisType string

const (
	AnalysisPrescriptive AnalysisType = "prescriptive"
	AnalysisSimulation   AnalysisType = "simulation"
)

// CalculationTypeSavingsRange marks an analysis outcome expressed as a
// min/max band rather than a point estimate. Range outcomes disable
// ratio-metric computation (ROI, payback).
const CalculationTypeSavingsRange = "savings-range"

// Rates holds the financial rates and per-fuel unit costs and emission
// factors used to price a measure's savings. Rate fields are percentages
// (e.g. 2.5 means 2.5%).
type Rates struct {
	DiscountRate     float64 `json:"discount_rate"`
	FinanceRate      float64 `json:"finance_rate"`
	InflationRate    float64 `json:"inflation_rate"`
	ReinvestmentRate float64 `json:"reinvestment_rate"`
	InvestmentPeriod int     `json:"investment_period"`

	// FuelCosts maps fuel to unit cost ($/kWh, $/therm).
	FuelCosts map[Fuel]float64 `json:"fuel_costs,omitempty"`
	// EmissionFactors maps fuel to tCO2e per unit of savings. Fuels
	// without an entry fall back to platform defaults.
	EmissionFactors map[Fuel]float64 `json:"emission_factors,omitempty"`
}

// Building is the physical site measures are attached to. Its ID keys
// every measure's per-building analysis results.
type Building struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`

	Rates *Rates `json:"rates,omitempty"`
	// RatesWithOverride is the alternate valuation rate set. Nil means
	// the alternate context falls back to the nominal rates.
	RatesWithOverride *Rates `json:"rates_with_override,omitempty"`
}

// IncentiveConfig describes how a measure's utility incentive is set:
// a fixed amount, or deferred to the analysis service.
type IncentiveConfig struct {
	Type   string  `json:"type,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

// InitialValues carries a measure's engineering inputs. Only the cost
// fields are interpreted here; the rest pass through to the analysis
// service untouched.
type InitialValues struct {
	ProjectCost        float64                `json:"project_cost"`
	MaintenanceSavings float64                `json:"maintenance_savings"`
	Fields             map[string]interface{} `json:"fields,omitempty"`
}

// CashFlowEntry is one year of an amortization schedule.
type CashFlowEntry struct {
	NPV float64 `json:"NPV"`
	SIR float64 `json:"SIR"`
}

// CashFlowData caches the aggregate amortization for a composite
// measure with more than one child.
type CashFlowData struct {
	SimplePayback float64         `json:"simple_payback"`
	CashFlows     []CashFlowEntry `json:"cash_flows,omitempty"`
}

// GHGResult holds the avoided-emissions outcome written back into an
// analysis result by the GHG calculator.
type GHGResult struct {
	Total       float64 `json:"total"`
	Electric    float64 `json:"electric"`
	Gas         float64 `json:"gas"`
	SavingsCost float64 `json:"savings_cost"`
	Unit        string  `json:"unit"`
	CostUnit    string  `json:"cost_unit"`
}

// EnergySavings is the polymorphic savings outcome of an analysis run:
// a point total, a min/max band, and/or a per-fuel breakdown. Demand
// and EUL only appear in the structured form.
type EnergySavings struct {
	Total  Quantity          `json:"total"`
	ByFuel map[Fuel]Quantity `json:"by_fuel,omitempty"`
	Demand *float64          `json:"demand,omitempty"`
	EUL    *float64          `json:"eul,omitempty"`
}

// AnalysisResult is one prescriptive/simulation outcome for a
// (measure, building) pair under a single valuation context.
type AnalysisResult struct {
	CalculationType  string            `json:"calculation_type,omitempty"`
	EnergySavings    EnergySavings     `json:"energy_savings"`
	AnnualSavings    map[Fuel]Quantity `json:"annual_savings,omitempty"`
	UtilityIncentive float64           `json:"utility_incentive"`
	SimplePayback    *float64          `json:"simple_payback,omitempty"`
	CashFlows        []CashFlowEntry   `json:"cash_flows,omitempty"`
	GHG              *GHGResult        `json:"ghg,omitempty"`
}

// IsRange reports whether the outcome is a savings band.
func (r *AnalysisResult) IsRange() bool {
	return r != nil && r.CalculationType == CalculationTypeSavingsRange
}

// Measure is a single energy-conservation intervention. A composite
// measure carries child measures and is aggregated over them; its own
// run results are ignored in that case.
type Measure struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id,omitempty"`
	Name           string `json:"name"`

	Fuels         []Fuel          `json:"fuels,omitempty"`
	InitialValues InitialValues   `json:"initial_values"`
	Incentive     IncentiveConfig `json:"incentive"`
	AnalysisType  AnalysisType    `json:"analysis_type,omitempty"`
	// MeasureLife is the fallback estimated useful life, in years,
	// when the analysis result does not report one.
	MeasureLife float64 `json:"measure_life,omitempty"`

	// RunResults and RunResultsWithRate key analysis outcomes by
	// building ID, one map per valuation context. Absence of a key is
	// a valid state and degrades derived metrics to zero/null.
	RunResults         map[string]*AnalysisResult `json:"run_results,omitempty"`
	RunResultsWithRate map[string]*AnalysisResult `json:"run_results_with_rate,omitempty"`

	// Metric caches the last computed record for the nominal context.
	Metric *MetricRecord `json:"metric,omitempty"`

	Children     []*Measure    `json:"children,omitempty"`
	CashFlowData *CashFlowData `json:"cash_flow_data,omitempty"`
}

// IsComposite reports whether the measure delegates to child measures.
func (m *Measure) IsComposite() bool { return len(m.Children) > 0 }

// HasFuel reports whether the measure tracks the given fuel.
func (m *Measure) HasFuel(f Fuel) bool {
	for _, mf := range m.Fuels {
		if mf == f {
			return true
		}
	}
	return false
}

// Results returns the analysis-result map for the given context,
// allocating nothing; callers must treat the result as read-only.
func (m *Measure) Results(vc ValuationContext) map[string]*AnalysisResult {
	if vc == ContextWithRate {
		return m.RunResultsWithRate
	}
	return m.RunResults
}

// Result returns the analysis result for one building, or nil.
func (m *Measure) Result(buildingID string, vc ValuationContext) *AnalysisResult {
	return m.Results(vc)[buildingID]
}

// SetResult stores an analysis result under the given context,
// allocating the map on first write.
func (m *Measure) SetResult(buildingID string, vc ValuationContext, r *AnalysisResult) {
	if vc == ContextWithRate {
		if m.RunResultsWithRate == nil {
			m.RunResultsWithRate = make(map[string]*AnalysisResult)
		}
		m.RunResultsWithRate[buildingID] = r
		return
	}
	if m.RunResults == nil {
		m.RunResults = make(map[string]*AnalysisResult)
	}
	m.RunResults[buildingID] = r
}

// BuildingIDs lists every building the measure carries results for, in
// either context, without duplicates.
func (m *Measure) BuildingIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for id := range m.RunResults {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range m.RunResultsWithRate {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// ContainerKind distinguishes the two package levels.
type ContainerKind string

const (
	KindMeasurePackage ContainerKind = "measure-package"
	KindProjectPackage ContainerKind = "project-package"
)

// Container is a named grouping of measures (MeasurePackage) or of
// measures plus nested measure packages (ProjectPackage). Totals are
// cached per valuation context.
type Container struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id,omitempty"`
	Name           string        `json:"name"`
	Kind           ContainerKind `json:"kind"`

	Measures []*Measure   `json:"measures,omitempty"`
	Packages []*Container `json:"packages,omitempty"`

	// Rates overrides the building rates for this container's rollup.
	Rates *Rates `json:"rates,omitempty"`

	Total          *MetricRecord `json:"total,omitempty"`
	TotalWithRates *MetricRecord `json:"total_with_rates,omitempty"`
}

// MemberKind tags the variants of a container member.
type MemberKind string

const (
	MemberMeasure MemberKind = "measure"
	MemberPackage MemberKind = "package"
)

// Member is the tagged union the aggregation engine consumes: exactly
// one of Measure or Package is set, matching Kind.
type Member struct {
	Kind    MemberKind
	Measure *Measure
	Package *Container
}

// Members normalizes the container's heterogeneous contents into a
// homogeneous member list, measures first.
func (c *Container) Members() []Member {
	members := make([]Member, 0, len(c.Measures)+len(c.Packages))
	for _, m := range c.Measures {
		members = append(members, Member{Kind: MemberMeasure, Measure: m})
	}
	for _, p := range c.Packages {
		members = append(members, Member{Kind: MemberPackage, Package: p})
	}
	return members
}

// ReferencesMeasure reports whether the container (or a nested
// package) contains the given measure.
func (c *Container) ReferencesMeasure(measureID string) bool {
	for _, m := range c.Measures {
		if m.ID == measureID {
			return true
		}
	}
	for _, p := range c.Packages {
		if p.ReferencesMeasure(measureID) {
			return true
		}
	}
	return false
}

// ProposalMode says which reference list a proposal uses. The lists are
// mutually exclusive by mode.
type ProposalMode string

const (
	ModeMeasures        ProposalMode = "measures"
	ModeMeasurePackages ProposalMode = "measure-packages"
	ModeProjectPackages ProposalMode = "project-packages"
)

// Proposal is a client-facing selection of measures or packages with a
// single cached total computed over the referenced set.
type Proposal struct {
	ID             string       `json:"id"`
	OrganizationID string       `json:"organization_id,omitempty"`
	Name           string       `json:"name"`
	Mode           ProposalMode `json:"mode"`

	Measures []*Measure   `json:"measures,omitempty"`
	Packages []*Container `json:"packages,omitempty"`

	BuildingID string        `json:"building_id,omitempty"`
	Total      *MetricRecord `json:"total,omitempty"`
}

// Members returns the proposal's referenced set as aggregation members
// according to its mode.
func (p *Proposal) Members() []Member {
	if p.Mode == ModeMeasures {
		members := make([]Member, 0, len(p.Measures))
		for _, m := range p.Measures {
			members = append(members, Member{Kind: MemberMeasure, Measure: m})
		}
		return members
	}
	members := make([]Member, 0, len(p.Packages))
	for _, pkg := range p.Packages {
		members = append(members, Member{Kind: MemberPackage, Package: pkg})
	}
	return members
}

// Scenario evaluates a set of measures/packages against a set of
// buildings as a cross product and carries one aggregate metric.
type Scenario struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id,omitempty"`
	Name           string `json:"name"`

	Measures    []*Measure   `json:"measures,omitempty"`
	Packages    []*Container `json:"packages,omitempty"`
	BuildingIDs []string     `json:"building_ids,omitempty"`

	Metric *MetricRecord `json:"metric,omitempty"`
}
