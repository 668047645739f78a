// Package pipeline orchestrates the recompute pipeline triggered by a
// mutation of a measure's inputs, a container's membership, or a rate:
// GHG recompute, metric recompute, container total recompute, and
// analytical resync. The steps form an explicit ordered list; each is
// idempotent, failures are logged and do not block later steps, and
// the whole pipeline is safe to re-run as a reconciliation batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"building-energy/db/clickhouse"
	"building-energy/internal/aggregate"
	"building-energy/internal/ghg"
	"building-energy/internal/model"
	"building-energy/internal/rates"
	"building-energy/internal/store"
	platformerrors "building-energy/pkg/errors"
)

// Analytics is the denormalized-store boundary, implemented by
// db/clickhouse. Delete-then-insert gives resync its drop-and-recreate
// semantics.
type Analytics interface {
	DeleteMeasureRows(ctx context.Context, measureID string) error
	BulkInsertRows(ctx context.Context, rows []clickhouse.MeasureRow) error
}

// Propagator runs the recompute pipeline.
type Propagator struct {
	store     store.Store
	analytics Analytics
	engine    *aggregate.Engine
	analyzer  Analyzer
	log       zerolog.Logger
}

func NewPropagator(st store.Store, analytics Analytics, engine *aggregate.Engine, log zerolog.Logger) *Propagator {
	return &Propagator{store: st, analytics: analytics, engine: engine, log: log}
}

type step struct {
	name string
	run  func(ctx context.Context) error
}

// runSteps executes the ordered step list best-effort: a failed step is
// logged and recorded but never blocks the steps after it.
func (p *Propagator) runSteps(ctx context.Context, entityID string, steps []step) error {
	var errs []error
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			p.log.Error().Err(err).Str("step", s.name).Str("entity", entityID).Msg("pipeline step failed, continuing")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// RecomputeMeasure runs the full pipeline for one measure against the
// given buildings. The returned error aggregates step failures; the
// pipeline always runs to the end.
func (p *Propagator) RecomputeMeasure(ctx context.Context, measureID string, buildingIDs []string) error {
	m, err := p.store.Measure(ctx, measureID)
	if err != nil {
		return platformerrors.NewMeasureNotFoundError(measureID, err)
	}
	if len(buildingIDs) == 0 {
		buildingIDs = m.BuildingIDs()
	}

	steps := []step{
		{name: "ghg-recompute", run: func(ctx context.Context) error {
			return p.recomputeGHG(ctx, m, buildingIDs)
		}},
		{name: "metric-recompute", run: func(ctx context.Context) error {
			return p.recomputeMetric(ctx, m, buildingIDs)
		}},
		{name: "container-totals", run: func(ctx context.Context) error {
			return p.recomputeContainers(ctx, m, buildingIDs)
		}},
		{name: "analytical-resync", run: func(ctx context.Context) error {
			return p.resyncMeasure(ctx, m)
		}},
	}
	return p.runSteps(ctx, measureID, steps)
}

func (p *Propagator) recomputeGHG(ctx context.Context, m *model.Measure, buildingIDs []string) error {
	var errs []error
	for _, buildingID := range buildingIDs {
		b, err := p.store.Building(ctx, buildingID)
		if err != nil {
			// A missing building is missing data, not a failure.
			p.log.Warn().Str("building", buildingID).Msg("building not found, skipping GHG recompute")
			continue
		}
		ghg.Recompute(b, []*model.Measure{m})
	}
	if err := p.store.SaveMeasure(ctx, m); err != nil {
		errs = append(errs, fmt.Errorf("failed to persist GHG results: %w", err))
	}
	return errors.Join(errs...)
}

func (p *Propagator) recomputeMetric(ctx context.Context, m *model.Measure, buildingIDs []string) error {
	buildingID := primaryBuilding(m, buildingIDs)
	b, _ := p.store.Building(ctx, buildingID)
	r := rates.Resolve(b, nil, model.ContextNominal)
	rec := p.engine.MeasureMetric(ctx, m, buildingID, model.ContextNominal, r)
	m.Metric = &rec
	if m.MeasureLife == 0 && rec.EUL > 0 {
		m.MeasureLife = rec.EUL
	}
	if err := p.store.SaveMeasure(ctx, m); err != nil {
		return fmt.Errorf("failed to persist metric: %w", err)
	}
	return nil
}

func (p *Propagator) recomputeContainers(ctx context.Context, m *model.Measure, buildingIDs []string) error {
	buildingID := primaryBuilding(m, buildingIDs)
	b, _ := p.store.Building(ctx, buildingID)

	containers, err := p.store.ContainersWithMeasure(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("failed to find containers for measure %s: %w", m.ID, err)
	}

	var errs []error
	for _, c := range containers {
		p.engine.ContainerTotal(ctx, c, b, buildingID, model.ContextNominal)
		if len(m.RunResultsWithRate) > 0 {
			p.engine.ContainerTotal(ctx, c, b, buildingID, model.ContextWithRate)
		}
		if err := p.store.SaveContainer(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("failed to save container %s: %w", c.ID, err))
		}
	}

	proposals, err := p.store.ProposalsWithMeasure(ctx, m.ID)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to find proposals for measure %s: %w", m.ID, err))
		return errors.Join(errs...)
	}
	for _, prop := range proposals {
		p.engine.ProposalTotal(ctx, prop, b)
		if err := p.store.SaveProposal(ctx, prop); err != nil {
			errs = append(errs, fmt.Errorf("failed to save proposal %s: %w", prop.ID, err))
		}
	}
	return errors.Join(errs...)
}

// resyncMeasure rebuilds the measure's denormalized analytical rows:
// delete whatever is there, then reinsert from the canonical record.
func (p *Propagator) resyncMeasure(ctx context.Context, m *model.Measure) error {
	if err := p.analytics.DeleteMeasureRows(ctx, m.ID); err != nil {
		return platformerrors.NewResyncError(m.ID, err)
	}
	if err := p.analytics.BulkInsertRows(ctx, p.analyticsRows(ctx, m)); err != nil {
		return platformerrors.NewResyncError(m.ID, err)
	}
	return nil
}

// analyticsRows flattens a measure into one row per (building,
// context) pair that has an analysis result, stripping the heavy raw
// payloads.
func (p *Propagator) analyticsRows(ctx context.Context, m *model.Measure) []clickhouse.MeasureRow {
	var rows []clickhouse.MeasureRow
	for _, vc := range []model.ValuationContext{model.ContextNominal, model.ContextWithRate} {
		for buildingID := range m.Results(vc) {
			b, _ := p.store.Building(ctx, buildingID)
			r := rates.Resolve(b, nil, vc)
			rec := p.engine.MeasureMetric(ctx, m, buildingID, vc, r)
			rows = append(rows, clickhouse.MeasureRow{
				ID:               uuid.New(),
				MeasureID:        m.ID,
				BuildingID:       buildingID,
				OrganizationID:   m.OrganizationID,
				Name:             m.Name,
				ValuationContext: vc.String(),
				ProjectCost:      decimal.NewFromFloat(rec.ProjectCost),
				Incentive:        decimal.NewFromFloat(rec.Incentive),
				AnnualSavings:    decimal.NewFromFloat(rec.AnnualSavings),
				MaintenanceSav:   decimal.NewFromFloat(rec.MaintenanceSavings),
				ElectricSavings:  rec.ElectricSavings,
				GasSavings:       rec.GasSavings,
				WaterSavings:     rec.WaterSavings,
				EnergySavings:    rec.EnergySavings,
				GHG:              rec.GHG,
				GHGCost:          rec.GHGSavingsCost,
				EUL:              rec.EUL,
				ROI:              rec.ROI,
				SimplePayback:    rec.SimplePayback,
				NPV:              rec.NPV,
				SIR:              rec.SIR,
				UpdatedAt:        time.Now(),
			})
		}
	}
	return rows
}

// primaryBuilding picks the building the cached metric and container
// totals are computed against: the first requested building, else the
// first one the measure carries results for.
func primaryBuilding(m *model.Measure, buildingIDs []string) string {
	if len(buildingIDs) > 0 {
		return buildingIDs[0]
	}
	if ids := m.BuildingIDs(); len(ids) > 0 {
		return ids[0]
	}
	return ""
}
