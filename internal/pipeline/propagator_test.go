package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"building-energy/db/clickhouse"
	"building-energy/internal/aggregate"
	"building-energy/internal/analysis"
	"building-energy/internal/model"
	"building-energy/internal/store"
)

type stubAnalytics struct {
	deleteErr error
	insertErr error
	deleted   []string
	rows      []clickhouse.MeasureRow
}

func (s *stubAnalytics) DeleteMeasureRows(_ context.Context, measureID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, measureID)
	return nil
}

func (s *stubAnalytics) BulkInsertRows(_ context.Context, rows []clickhouse.MeasureRow) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.rows = append(s.rows, rows...)
	return nil
}

type stubCashFlow struct {
	calls int
}

func (s *stubCashFlow) Compute(_ context.Context, _ analysis.CashFlowRequest) (*analysis.CashFlowResponse, error) {
	s.calls++
	return &analysis.CashFlowResponse{
		SimplePayback: 6,
		CashFlows:     []model.CashFlowEntry{{NPV: 1000, SIR: 1.1}},
	}, nil
}

type fixture struct {
	store     *store.Memory
	analytics *stubAnalytics
	prop      *Propagator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	analytics := &stubAnalytics{}
	engine := aggregate.NewEngine(&stubCashFlow{}, zerolog.Nop())
	prop := NewPropagator(mem, analytics, engine, zerolog.Nop())
	return &fixture{store: mem, analytics: analytics, prop: prop}
}

func seedMeasure(id string, cost, elecSavings float64) *model.Measure {
	return &model.Measure{
		ID:             id,
		OrganizationID: "org1",
		Name:           "measure " + id,
		Fuels:          []model.Fuel{model.FuelElectric},
		InitialValues:  model.InitialValues{ProjectCost: cost},
		RunResults: map[string]*model.AnalysisResult{
			"b1": {
				AnnualSavings: map[model.Fuel]model.Quantity{
					model.FuelElectric: model.Point(elecSavings),
				},
				EnergySavings: model.EnergySavings{
					ByFuel: map[model.Fuel]model.Quantity{
						model.FuelElectric: model.Point(elecSavings * 10),
					},
				},
			},
		},
	}
}

func (f *fixture) seed(t *testing.T) (*model.Measure, *model.Container) {
	t.Helper()
	ctx := context.Background()
	b := &model.Building{ID: "b1", OrganizationID: "org1"}
	require.NoError(t, f.store.SaveBuilding(ctx, b))

	m1 := seedMeasure("m1", 10000, 500)
	m2 := seedMeasure("m2", 4000, 200)
	require.NoError(t, f.store.SaveMeasure(ctx, m1))
	require.NoError(t, f.store.SaveMeasure(ctx, m2))

	c := &model.Container{
		ID:             "pkg1",
		OrganizationID: "org1",
		Kind:           model.KindMeasurePackage,
		Measures:       []*model.Measure{m1, m2},
	}
	require.NoError(t, f.store.SaveContainer(ctx, c))
	return m1, c
}

func TestRecomputeMeasureIdempotent(t *testing.T) {
	f := newFixture(t)
	m1, c := f.seed(t)
	ctx := context.Background()

	require.NoError(t, f.prop.RecomputeMeasure(ctx, "m1", nil))
	require.NotNil(t, m1.Metric)
	require.NotNil(t, c.Total)
	firstMetric, err := json.Marshal(m1.Metric)
	require.NoError(t, err)
	firstTotal, err := json.Marshal(c.Total)
	require.NoError(t, err)
	firstRows := len(f.analytics.rows)

	require.NoError(t, f.prop.RecomputeMeasure(ctx, "m1", nil))
	secondMetric, err := json.Marshal(m1.Metric)
	require.NoError(t, err)
	secondTotal, err := json.Marshal(c.Total)
	require.NoError(t, err)

	// Re-running over unchanged inputs reproduces the same outputs.
	assert.Equal(t, string(firstMetric), string(secondMetric))
	assert.Equal(t, string(firstTotal), string(secondTotal))
	// Resync replaced the rows rather than stacking a second copy.
	assert.Equal(t, []string{"m1", "m1"}, f.analytics.deleted)
	assert.Equal(t, firstRows*2, len(f.analytics.rows))
}

func TestRecomputeMeasureStepFailureContainment(t *testing.T) {
	f := newFixture(t)
	m1, c := f.seed(t)
	f.analytics.deleteErr = errors.New("clickhouse unavailable")

	err := f.prop.RecomputeMeasure(context.Background(), "m1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analytical-resync")

	// The failed resync did not block the earlier steps.
	require.NotNil(t, m1.Metric)
	assert.Equal(t, 10000.0, m1.Metric.ProjectCost)
	require.NotNil(t, c.Total)
	assert.Equal(t, 14000.0, c.Total.ProjectCost)
	require.NotNil(t, m1.RunResults["b1"].GHG)
}

func TestRecomputeMeasureMissingBuilding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := seedMeasure("m1", 10000, 500)
	require.NoError(t, f.store.SaveMeasure(ctx, m))

	// No building document exists: GHG is skipped, the rest proceeds.
	require.NoError(t, f.prop.RecomputeMeasure(ctx, "m1", nil))
	assert.Nil(t, m.RunResults["b1"].GHG)
	require.NotNil(t, m.Metric)
	assert.Equal(t, 10000.0, m.Metric.ProjectCost)
}

func TestRecomputeMeasureGHG(t *testing.T) {
	f := newFixture(t)
	m1, _ := f.seed(t)

	require.NoError(t, f.prop.RecomputeMeasure(context.Background(), "m1", []string{"b1"}))

	g := m1.RunResults["b1"].GHG
	require.NotNil(t, g)
	// 0.000744 tCO2e/kWh * 5000 kWh
	assert.Equal(t, 3.72, g.Electric)
}

func TestRecomputeMeasureNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.prop.RecomputeMeasure(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResyncMeasuresBothContexts(t *testing.T) {
	f := newFixture(t)
	m1, _ := f.seed(t)
	m1.RunResultsWithRate = map[string]*model.AnalysisResult{
		"b1": {
			AnnualSavings: map[model.Fuel]model.Quantity{
				model.FuelElectric: model.Point(650),
			},
		},
	}

	require.NoError(t, f.prop.ResyncMeasures(context.Background(), []string{"m1"}))

	require.Len(t, f.analytics.rows, 2)
	contexts := map[string]bool{}
	for _, row := range f.analytics.rows {
		contexts[row.ValuationContext] = true
		assert.Equal(t, "m1", row.MeasureID)
		assert.Equal(t, "b1", row.BuildingID)
		assert.Equal(t, "org1", row.OrganizationID)
	}
	assert.True(t, contexts["nominal"])
	assert.True(t, contexts["with-rate"])
}

func TestResyncMeasuresSkipsMissing(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	err := f.prop.ResyncMeasures(context.Background(), []string{"missing", "m1"})
	require.Error(t, err)
	// The missing id did not stop the rest of the set.
	assert.Equal(t, []string{"m1"}, f.analytics.deleted)
	assert.NotEmpty(t, f.analytics.rows)
}

func TestDeleteMeasureCascade(t *testing.T) {
	f := newFixture(t)
	_, c := f.seed(t)
	ctx := context.Background()

	require.NoError(t, f.prop.DeleteMeasure(ctx, "m1"))

	_, err := f.store.Measure(ctx, "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, []string{"m1"}, f.analytics.deleted)

	// The container dropped the member and its total was rebuilt over
	// the survivors.
	require.Len(t, c.Measures, 1)
	assert.Equal(t, "m2", c.Measures[0].ID)
	require.NotNil(t, c.Total)
	assert.Equal(t, 4000.0, c.Total.ProjectCost)
}

func TestDeleteMeasureCascadeContinuesOnFailure(t *testing.T) {
	f := newFixture(t)
	_, c := f.seed(t)
	f.analytics.deleteErr = errors.New("clickhouse unavailable")
	ctx := context.Background()

	err := f.prop.DeleteMeasure(ctx, "m1")
	require.Error(t, err)

	// The analytical failure is surfaced but the document deletion and
	// the container recompute still ran.
	_, getErr := f.store.Measure(ctx, "m1")
	assert.ErrorIs(t, getErr, store.ErrNotFound)
	require.Len(t, c.Measures, 1)
	require.NotNil(t, c.Total)
	assert.Equal(t, 4000.0, c.Total.ProjectCost)
}

func TestRecomputeGHGForBuildings(t *testing.T) {
	f := newFixture(t)
	m1, _ := f.seed(t)

	require.NoError(t, f.prop.RecomputeGHGForBuildings(context.Background(), []string{"b1"}))

	require.NotNil(t, m1.RunResults["b1"].GHG)
}

func TestRecomputeOrganization(t *testing.T) {
	f := newFixture(t)
	m1, c := f.seed(t)

	require.NoError(t, f.prop.RecomputeOrganization(context.Background(), "org1"))

	require.NotNil(t, m1.Metric)
	require.NotNil(t, c.Total)
	assert.Equal(t, 14000.0, c.Total.ProjectCost)
	// Every measure in the organization got analytical rows.
	assert.ElementsMatch(t, []string{"m1", "m2"}, f.analytics.deleted)
}
