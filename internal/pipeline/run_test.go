package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"building-energy/internal/analysis"
	"building-energy/internal/model"
)

type stubAnalyzer struct {
	prescriptive int
	simulation   int
	err          error
	requests     []analysis.Request
}

func (s *stubAnalyzer) result() *model.AnalysisResult {
	return &model.AnalysisResult{
		UtilityIncentive: 500,
		AnnualSavings: map[model.Fuel]model.Quantity{
			model.FuelElectric: model.Point(800),
		},
	}
}

func (s *stubAnalyzer) RunPrescriptive(_ context.Context, req analysis.Request) (*model.AnalysisResult, error) {
	s.prescriptive++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.result(), nil
}

func (s *stubAnalyzer) RunSimulation(_ context.Context, req analysis.Request) (*model.AnalysisResult, error) {
	s.simulation++
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.result(), nil
}

func TestRunMeasureNominalOnly(t *testing.T) {
	f := newFixture(t)
	m1, _ := f.seed(t)
	az := &stubAnalyzer{}
	f.prop.WithAnalyzer(az)

	require.NoError(t, f.prop.RunMeasure(context.Background(), "m1", "b1"))

	// No override rate set on the building: one context, one call.
	assert.Equal(t, 1, az.prescriptive)
	assert.Zero(t, az.simulation)
	result := m1.RunResults["b1"]
	require.NotNil(t, result)
	assert.Equal(t, 500.0, result.UtilityIncentive)
	assert.Nil(t, m1.RunResultsWithRate["b1"])
	require.NotNil(t, m1.Metric)
}

func TestRunMeasureBothContexts(t *testing.T) {
	f := newFixture(t)
	m1, _ := f.seed(t)
	az := &stubAnalyzer{}
	f.prop.WithAnalyzer(az)

	ctx := context.Background()
	b, err := f.store.Building(ctx, "b1")
	require.NoError(t, err)
	b.Rates = &model.Rates{DiscountRate: 2.5}
	b.RatesWithOverride = &model.Rates{DiscountRate: 6}

	require.NoError(t, f.prop.RunMeasure(ctx, "m1", "b1"))

	require.Equal(t, 2, az.prescriptive)
	require.NotNil(t, m1.RunResultsWithRate["b1"])
	// Rates reach the service in fractional form.
	assert.Equal(t, 0.025, az.requests[0].Finance.DiscountRate)
	assert.Equal(t, 0.06, az.requests[1].Finance.DiscountRate)
}

func TestRunMeasureSimulation(t *testing.T) {
	f := newFixture(t)
	m1, _ := f.seed(t)
	m1.AnalysisType = model.AnalysisSimulation
	az := &stubAnalyzer{}
	f.prop.WithAnalyzer(az)

	require.NoError(t, f.prop.RunMeasure(context.Background(), "m1", "b1"))
	assert.Equal(t, 1, az.simulation)
	assert.Zero(t, az.prescriptive)
}

func TestRunMeasureAnalysisFailureKeepsPrevious(t *testing.T) {
	f := newFixture(t)
	m1, _ := f.seed(t)
	previous := m1.RunResults["b1"]
	az := &stubAnalyzer{err: errors.New("service down")}
	f.prop.WithAnalyzer(az)

	require.NoError(t, f.prop.RunMeasure(context.Background(), "m1", "b1"))

	// The stale entry survives and the pipeline still produced a metric.
	assert.Same(t, previous, m1.RunResults["b1"])
	require.NotNil(t, m1.Metric)
}

func TestRunMeasureNoAnalyzer(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	err := f.prop.RunMeasure(context.Background(), "m1", "b1")
	assert.Error(t, err)
}
