package pipeline

import (
	"context"
	"fmt"

	"building-energy/internal/analysis"
	"building-energy/internal/model"
	"building-energy/internal/rates"
)

// Analyzer is the analysis-service boundary; *analysis.Client
// implements it and tests substitute a stub.
type Analyzer interface {
	RunPrescriptive(ctx context.Context, req analysis.Request) (*model.AnalysisResult, error)
	RunSimulation(ctx context.Context, req analysis.Request) (*model.AnalysisResult, error)
}

// WithAnalyzer enables RunMeasure on the propagator.
func (p *Propagator) WithAnalyzer(a Analyzer) *Propagator {
	p.analyzer = a
	return p
}

// RunMeasure (re-)runs a measure's analysis against one building for
// both valuation contexts, overwriting the stored result entries, then
// runs the recompute pipeline. The analysis call blocks; simulation
// runs long-poll to a bounded ceiling.
func (p *Propagator) RunMeasure(ctx context.Context, measureID, buildingID string) error {
	if p.analyzer == nil {
		return fmt.Errorf("no analyzer configured")
	}
	m, err := p.store.Measure(ctx, measureID)
	if err != nil {
		return fmt.Errorf("failed to load measure %s: %w", measureID, err)
	}
	b, err := p.store.Building(ctx, buildingID)
	if err != nil {
		return fmt.Errorf("failed to load building %s: %w", buildingID, err)
	}

	contexts := []model.ValuationContext{model.ContextNominal}
	if b.RatesWithOverride != nil {
		contexts = append(contexts, model.ContextWithRate)
	}

	for _, vc := range contexts {
		result, err := p.runAnalysis(ctx, m, b, vc)
		if err != nil {
			// Degrade: the stale entry stays, the pipeline still runs.
			p.log.Error().Err(err).
				Str("measure", measureID).
				Str("building", buildingID).
				Str("context", vc.String()).
				Msg("analysis run failed, keeping previous result")
			continue
		}
		m.SetResult(buildingID, vc, result)
	}

	if err := p.store.SaveMeasure(ctx, m); err != nil {
		return fmt.Errorf("failed to persist analysis results: %w", err)
	}
	return p.RecomputeMeasure(ctx, measureID, []string{buildingID})
}

func (p *Propagator) runAnalysis(ctx context.Context, m *model.Measure, b *model.Building, vc model.ValuationContext) (*model.AnalysisResult, error) {
	r := rates.Fractional(rates.Resolve(b, nil, vc))

	utility := make(map[string]float64, len(r.FuelCosts))
	for fuel, cost := range r.FuelCosts {
		utility[string(fuel)] = cost
	}

	req := analysis.Request{
		Measure:   m.InitialValues.Fields,
		Incentive: m.Incentive,
		Finance: analysis.FinanceInputs{
			DiscountRate:       r.DiscountRate,
			FinanceRate:        r.FinanceRate,
			InflationRate:      r.InflationRate,
			ReinvestmentRate:   r.ReinvestmentRate,
			InvestmentPeriod:   r.InvestmentPeriod,
			ProjectCost:        m.InitialValues.ProjectCost,
			MaintenanceSavings: m.InitialValues.MaintenanceSavings,
		},
		Utility: utility,
	}

	if m.AnalysisType == model.AnalysisSimulation {
		return p.analyzer.RunSimulation(ctx, req)
	}
	return p.analyzer.RunPrescriptive(ctx, req)
}
