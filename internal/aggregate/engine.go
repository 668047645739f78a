// Package aggregate rolls metric records up the containment hierarchy:
// measure -> measure package -> project package -> proposal/scenario.
// Additive fields sum member-by-member; financial ratios do not. They
// are cardinality-dependent and, for multi-member containers, come
// from a single cash-flow run over the summed financials.
package aggregate

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"building-energy/internal/analysis"
	"building-energy/internal/metrics"
	"building-energy/internal/model"
	"building-energy/internal/rates"
)

// Engine performs hierarchy rollups.
type Engine struct {
	cashFlow analysis.CashFlowService
	log      zerolog.Logger
}

func NewEngine(cashFlow analysis.CashFlowService, log zerolog.Logger) *Engine {
	return &Engine{cashFlow: cashFlow, log: log}
}

// MeasureMetric computes a single measure's record. Composite measures
// delegate to their children; the composite's own run results are
// ignored.
func (e *Engine) MeasureMetric(ctx context.Context, m *model.Measure, buildingID string, vc model.ValuationContext, r model.Rates) model.MetricRecord {
	if !m.IsComposite() {
		return metrics.Calculate(m, buildingID, vc)
	}

	children := make([]model.MetricRecord, 0, len(m.Children))
	for _, child := range m.Children {
		children = append(children, e.MeasureMetric(ctx, child, buildingID, vc, r))
	}

	var total model.MetricRecord
	for i := range children {
		total.AddAdditive(&children[i])
	}

	switch {
	case len(children) == 1:
		copyRatios(&total, &children[0])
	case m.CashFlowData != nil:
		// A precomputed aggregate cash flow takes precedence over the
		// per-child fallbacks.
		total.ROI = metrics.Roi(total.AnnualSavings, total.MaintenanceSavings, total.ProjectCost, total.Incentive)
		total.SimplePayback = model.Float64Ptr(m.CashFlowData.SimplePayback)
		if last := lastEntry(m.CashFlowData.CashFlows); last != nil {
			if total.AnnualSavings > 0 && total.ProjectCost > 0 {
				total.NPV = model.Float64Ptr(math.Ceil(last.NPV))
			}
			if total.AnnualSavings > 0 {
				total.SIR = model.Float64Ptr(round2(last.SIR))
			}
		}
	default:
		// No aggregate cash flow cached: the composite's payback is
		// the longest of its children's.
		total.ROI = metrics.Roi(total.AnnualSavings, total.MaintenanceSavings, total.ProjectCost, total.Incentive)
		total.SimplePayback = maxPayback(children)
	}
	return total
}

// Aggregate rolls up a member list under one rate context.
func (e *Engine) Aggregate(ctx context.Context, members []model.Member, buildingID string, vc model.ValuationContext, r model.Rates) model.MetricRecord {
	records := make([]model.MetricRecord, 0, len(members))
	for _, member := range members {
		switch member.Kind {
		case model.MemberMeasure:
			records = append(records, e.MeasureMetric(ctx, member.Measure, buildingID, vc, r))
		case model.MemberPackage:
			memberRates := r
			if member.Package.Rates != nil {
				memberRates = rates.Resolve(nil, member.Package.Rates, vc)
			}
			records = append(records, e.Aggregate(ctx, member.Package.Members(), buildingID, vc, memberRates))
		}
	}

	var total model.MetricRecord
	for i := range records {
		total.AddAdditive(&records[i])
	}

	switch len(records) {
	case 0:
		// Empty container: additive fields zero, ratios undefined.
	case 1:
		copyRatios(&total, &records[0])
	default:
		e.deriveRatios(ctx, &total, r)
	}
	return total
}

// deriveRatios fills the ratio fields of a multi-member rollup from a
// single cash-flow run over the summed financials. Per-member ratios
// are never combined directly; they are not linear under summation.
func (e *Engine) deriveRatios(ctx context.Context, total *model.MetricRecord, r model.Rates) {
	total.ROI = metrics.Roi(total.AnnualSavings, total.MaintenanceSavings, total.ProjectCost, total.Incentive)
	if total.AnnualSavings <= 0 {
		return
	}

	fractional := rates.Fractional(r)
	resp, err := e.cashFlow.Compute(ctx, analysis.CashFlowRequest{
		ProjectCost:        total.ProjectCost,
		Incentive:          total.Incentive,
		AnnualSavings:      total.AnnualSavings,
		MaintenanceSavings: total.MaintenanceSavings,
		DiscountRate:       fractional.DiscountRate,
		FinanceRate:        fractional.FinanceRate,
		InflationRate:      fractional.InflationRate,
		ReinvestmentRate:   fractional.ReinvestmentRate,
		InvestmentPeriod:   fractional.InvestmentPeriod,
	})
	if err != nil {
		// Degrade to missing-data defaults; the rollup still reports
		// its additive totals.
		e.log.Warn().Err(err).Msg("cash-flow call failed, ratio metrics left unset")
		return
	}

	total.SimplePayback = model.Float64Ptr(resp.SimplePayback)
	if last := lastEntry(resp.CashFlows); last != nil {
		if total.ProjectCost > 0 {
			total.NPV = model.Float64Ptr(math.Ceil(last.NPV))
		}
		total.SIR = model.Float64Ptr(round2(last.SIR))
	}
}

// ContainerTotal computes a container's rollup for one context and
// caches it on the container. The caller persists the container.
func (e *Engine) ContainerTotal(ctx context.Context, c *model.Container, building *model.Building, buildingID string, vc model.ValuationContext) model.MetricRecord {
	r := rates.Resolve(building, c.Rates, vc)
	total := e.Aggregate(ctx, c.Members(), buildingID, vc, r)
	if vc == model.ContextWithRate {
		c.TotalWithRates = &total
	} else {
		c.Total = &total
	}
	return total
}

// ProposalTotal computes a proposal's single total over its referenced
// set and caches it.
func (e *Engine) ProposalTotal(ctx context.Context, p *model.Proposal, building *model.Building) model.MetricRecord {
	r := rates.Resolve(building, nil, model.ContextNominal)
	total := e.Aggregate(ctx, p.Members(), p.BuildingID, model.ContextNominal, r)
	p.Total = &total
	return total
}

// ScenarioMetric evaluates the cross product of the scenario's members
// and buildings into one aggregate record.
func (e *Engine) ScenarioMetric(ctx context.Context, sc *model.Scenario, buildings []*model.Building) model.MetricRecord {
	members := make([]model.Member, 0, len(sc.Measures)+len(sc.Packages))
	for _, m := range sc.Measures {
		members = append(members, model.Member{Kind: model.MemberMeasure, Measure: m})
	}
	for _, p := range sc.Packages {
		members = append(members, model.Member{Kind: model.MemberPackage, Package: p})
	}

	buildingsByID := make(map[string]*model.Building, len(buildings))
	for _, b := range buildings {
		buildingsByID[b.ID] = b
	}

	var cells []model.MetricRecord
	var scenarioRates model.Rates
	ratesSet := false
	for _, buildingID := range sc.BuildingIDs {
		b := buildingsByID[buildingID]
		r := rates.Resolve(b, nil, model.ContextNominal)
		if !ratesSet && b != nil && b.Rates != nil {
			scenarioRates = r
			ratesSet = true
		}
		for _, member := range members {
			switch member.Kind {
			case model.MemberMeasure:
				cells = append(cells, e.MeasureMetric(ctx, member.Measure, buildingID, model.ContextNominal, r))
			case model.MemberPackage:
				cells = append(cells, e.Aggregate(ctx, member.Package.Members(), buildingID, model.ContextNominal, r))
			}
		}
	}

	var total model.MetricRecord
	for i := range cells {
		total.AddAdditive(&cells[i])
	}
	switch len(cells) {
	case 0:
	case 1:
		copyRatios(&total, &cells[0])
	default:
		e.deriveRatios(ctx, &total, scenarioRates)
	}
	sc.Metric = &total
	return total
}

func copyRatios(dst, src *model.MetricRecord) {
	dst.ROI = src.ROI
	dst.SimplePayback = src.SimplePayback
	dst.NPV = src.NPV
	dst.SIR = src.SIR
}

func maxPayback(records []model.MetricRecord) *float64 {
	var max *float64
	for i := range records {
		p := records[i].SimplePayback
		if p == nil {
			continue
		}
		if max == nil || *p > *max {
			v := *p
			max = &v
		}
	}
	return max
}

func lastEntry(entries []model.CashFlowEntry) *model.CashFlowEntry {
	if len(entries) == 0 {
		return nil
	}
	return &entries[len(entries)-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
