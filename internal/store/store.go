// Package store defines the persistence boundary for the engine.
// Entities are opaque documents: the engine only needs get-by-id,
// save, and reference lookups. Updates are last-write-wins; there is
// no optimistic-concurrency check.
package store

import (
	"context"
	"errors"

	"building-energy/internal/model"
)

// ErrNotFound is returned for missing documents.
var ErrNotFound = errors.New("document not found")

// Store is the document-store boundary.
type Store interface {
	Building(ctx context.Context, id string) (*model.Building, error)
	SaveBuilding(ctx context.Context, b *model.Building) error
	BuildingsForOrganization(ctx context.Context, orgID string) ([]*model.Building, error)

	Measure(ctx context.Context, id string) (*model.Measure, error)
	SaveMeasure(ctx context.Context, m *model.Measure) error
	MeasuresForOrganization(ctx context.Context, orgID string) ([]*model.Measure, error)
	DeleteMeasure(ctx context.Context, id string) error

	Container(ctx context.Context, id string) (*model.Container, error)
	SaveContainer(ctx context.Context, c *model.Container) error
	// ContainersWithMeasure returns every container that references the
	// measure, directly or through a nested package.
	ContainersWithMeasure(ctx context.Context, measureID string) ([]*model.Container, error)

	Proposal(ctx context.Context, id string) (*model.Proposal, error)
	SaveProposal(ctx context.Context, p *model.Proposal) error
	ProposalsWithMeasure(ctx context.Context, measureID string) ([]*model.Proposal, error)

	Scenario(ctx context.Context, id string) (*model.Scenario, error)
	SaveScenario(ctx context.Context, sc *model.Scenario) error
}
