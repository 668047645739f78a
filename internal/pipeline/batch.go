package pipeline

import (
	"context"
	"errors"
	"fmt"

	"building-energy/internal/ghg"
	"building-energy/internal/model"
	platformerrors "building-energy/pkg/errors"
)

// Batch entry points for external schedulers and the CLI. Each is
// idempotent and safe to re-run; a failed entity never stops its
// siblings.

// RecomputeGHGForBuildings recomputes avoided emissions for every
// measure attached to each building in the set.
func (p *Propagator) RecomputeGHGForBuildings(ctx context.Context, buildingIDs []string) error {
	var errs []error
	for _, buildingID := range buildingIDs {
		b, err := p.store.Building(ctx, buildingID)
		if err != nil {
			p.log.Error().Err(err).Str("building", buildingID).Msg("failed to load building, skipping")
			errs = append(errs, fmt.Errorf("building %s: %w", buildingID, err))
			continue
		}
		measures, err := p.store.MeasuresForOrganization(ctx, b.OrganizationID)
		if err != nil {
			errs = append(errs, fmt.Errorf("building %s: %w", buildingID, err))
			continue
		}
		attached := attachedMeasures(measures, buildingID)
		ghg.Recompute(b, attached)
		for _, m := range attached {
			if err := p.store.SaveMeasure(ctx, m); err != nil {
				p.log.Error().Err(err).Str("measure", m.ID).Msg("failed to persist GHG recompute, continuing")
				errs = append(errs, fmt.Errorf("measure %s: %w", m.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// RecomputeOrganization runs the full pipeline for every measure in
// the organization's buildings.
func (p *Propagator) RecomputeOrganization(ctx context.Context, orgID string) error {
	measures, err := p.store.MeasuresForOrganization(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to list measures for organization %s: %w", orgID, err)
	}
	var errs []error
	for _, m := range measures {
		if err := p.RecomputeMeasure(ctx, m.ID, nil); err != nil {
			errs = append(errs, fmt.Errorf("measure %s: %w", m.ID, err))
		}
	}
	return errors.Join(errs...)
}

// ResyncMeasures rebuilds the analytical copies for a measure id set.
func (p *Propagator) ResyncMeasures(ctx context.Context, measureIDs []string) error {
	var errs []error
	for _, id := range measureIDs {
		m, err := p.store.Measure(ctx, id)
		if err != nil {
			p.log.Error().Err(err).Str("measure", id).Msg("failed to load measure for resync, skipping")
			errs = append(errs, fmt.Errorf("measure %s: %w", id, err))
			continue
		}
		if err := p.resyncMeasure(ctx, m); err != nil {
			p.log.Error().Err(err).Str("measure", id).Msg("analytical resync failed, continuing")
			errs = append(errs, fmt.Errorf("measure %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// DeleteMeasure cascades a measure deletion: remove the measure from
// every containing package and proposal, drop its analytical rows,
// delete the canonical document, and recompute every former container.
// Partial failures are logged and surfaced, but the cascade runs to
// the end.
func (p *Propagator) DeleteMeasure(ctx context.Context, measureID string) error {
	m, err := p.store.Measure(ctx, measureID)
	if err != nil {
		return platformerrors.NewMeasureNotFoundError(measureID, err)
	}
	buildingID := primaryBuilding(m, nil)
	b, _ := p.store.Building(ctx, buildingID)

	var errs []error

	containers, err := p.store.ContainersWithMeasure(ctx, measureID)
	if err != nil {
		errs = append(errs, err)
		containers = nil
	}
	for _, c := range containers {
		removeFromContainer(c, measureID)
	}

	proposals, err := p.store.ProposalsWithMeasure(ctx, measureID)
	if err != nil {
		errs = append(errs, err)
		proposals = nil
	}
	for _, prop := range proposals {
		prop.Measures = filterMeasures(prop.Measures, measureID)
	}

	if err := p.analytics.DeleteMeasureRows(ctx, measureID); err != nil {
		p.log.Error().Err(err).Str("measure", measureID).Msg("failed to delete analytical rows, continuing")
		errs = append(errs, err)
	}
	if err := p.store.DeleteMeasure(ctx, measureID); err != nil {
		p.log.Error().Err(err).Str("measure", measureID).Msg("failed to delete measure document, continuing")
		errs = append(errs, err)
	}

	for _, c := range containers {
		p.engine.ContainerTotal(ctx, c, b, buildingID, model.ContextNominal)
		p.engine.ContainerTotal(ctx, c, b, buildingID, model.ContextWithRate)
		if err := p.store.SaveContainer(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("container %s: %w", c.ID, err))
		}
	}
	for _, prop := range proposals {
		p.engine.ProposalTotal(ctx, prop, b)
		if err := p.store.SaveProposal(ctx, prop); err != nil {
			errs = append(errs, fmt.Errorf("proposal %s: %w", prop.ID, err))
		}
	}
	return errors.Join(errs...)
}

func attachedMeasures(measures []*model.Measure, buildingID string) []*model.Measure {
	var out []*model.Measure
	for _, m := range measures {
		for _, id := range m.BuildingIDs() {
			if id == buildingID {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func removeFromContainer(c *model.Container, measureID string) {
	c.Measures = filterMeasures(c.Measures, measureID)
	for _, p := range c.Packages {
		removeFromContainer(p, measureID)
	}
}

func filterMeasures(measures []*model.Measure, measureID string) []*model.Measure {
	out := measures[:0]
	for _, m := range measures {
		if m.ID != measureID {
			out = append(out, m)
		}
	}
	return out
}
