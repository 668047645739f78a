package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"building-energy/internal/model"
)

// Postgres stores entities as jsonb documents. Each measure-bearing
// table carries a denormalized measure_refs array so reference lookups
// do not need to walk documents.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection pool against the given DSN.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates the document tables if they do not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS buildings (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL DEFAULT '',
			doc JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS measures (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL DEFAULT '',
			doc JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS containers (
			id TEXT PRIMARY KEY,
			measure_refs TEXT[] NOT NULL DEFAULT '{}',
			doc JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS proposals (
			id TEXT PRIMARY KEY,
			measure_refs TEXT[] NOT NULL DEFAULT '{}',
			doc JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scenarios (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_containers_refs ON containers USING GIN (measure_refs)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_refs ON proposals USING GIN (measure_refs)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Postgres) Close() error                   { return s.db.Close() }

func (s *Postgres) Building(ctx context.Context, id string) (*model.Building, error) {
	var b model.Building
	if err := s.getDoc(ctx, "buildings", id, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Postgres) SaveBuilding(ctx context.Context, b *model.Building) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal building: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO buildings (id, organization_id, doc) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET organization_id = $2, doc = $3
	`, b.ID, b.OrganizationID, doc)
	if err != nil {
		return fmt.Errorf("failed to save building: %w", err)
	}
	return nil
}

func (s *Postgres) BuildingsForOrganization(ctx context.Context, orgID string) ([]*model.Building, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM buildings WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	defer rows.Close()

	var out []*model.Building
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		var b model.Building
		if err := json.Unmarshal(doc, &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal building: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (s *Postgres) Measure(ctx context.Context, id string) (*model.Measure, error) {
	var m model.Measure
	if err := s.getDoc(ctx, "measures", id, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Postgres) SaveMeasure(ctx context.Context, m *model.Measure) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal measure: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO measures (id, organization_id, doc) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET organization_id = $2, doc = $3
	`, m.ID, m.OrganizationID, doc)
	if err != nil {
		return fmt.Errorf("failed to save measure: %w", err)
	}
	return nil
}

func (s *Postgres) MeasuresForOrganization(ctx context.Context, orgID string) ([]*model.Measure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM measures WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list measures: %w", err)
	}
	defer rows.Close()

	var out []*model.Measure
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan measure: %w", err)
		}
		var m model.Measure
		if err := json.Unmarshal(doc, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal measure: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteMeasure(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM measures WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete measure: %w", err)
	}
	return nil
}

func (s *Postgres) Container(ctx context.Context, id string) (*model.Container, error) {
	var c model.Container
	if err := s.getDoc(ctx, "containers", id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Postgres) SaveContainer(ctx context.Context, c *model.Container) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal container: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO containers (id, measure_refs, doc) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET measure_refs = $2, doc = $3
	`, c.ID, pq.Array(containerMeasureIDs(c)), doc)
	if err != nil {
		return fmt.Errorf("failed to save container: %w", err)
	}
	return nil
}

func (s *Postgres) ContainersWithMeasure(ctx context.Context, measureID string) ([]*model.Container, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM containers WHERE $1 = ANY(measure_refs)`, measureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	defer rows.Close()

	var out []*model.Container
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan container: %w", err)
		}
		var c model.Container
		if err := json.Unmarshal(doc, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal container: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *Postgres) Proposal(ctx context.Context, id string) (*model.Proposal, error) {
	var p model.Proposal
	if err := s.getDoc(ctx, "proposals", id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) SaveProposal(ctx context.Context, p *model.Proposal) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal: %w", err)
	}
	refs := make([]string, 0, len(p.Measures))
	for _, m := range p.Measures {
		refs = append(refs, m.ID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO proposals (id, measure_refs, doc) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET measure_refs = $2, doc = $3
	`, p.ID, pq.Array(refs), doc)
	if err != nil {
		return fmt.Errorf("failed to save proposal: %w", err)
	}
	return nil
}

func (s *Postgres) ProposalsWithMeasure(ctx context.Context, measureID string) ([]*model.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM proposals WHERE $1 = ANY(measure_refs)`, measureID)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var out []*model.Proposal
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		var p model.Proposal
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal proposal: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Postgres) Scenario(ctx context.Context, id string) (*model.Scenario, error) {
	var sc model.Scenario
	if err := s.getDoc(ctx, "scenarios", id, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Postgres) SaveScenario(ctx context.Context, sc *model.Scenario) error {
	doc, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenarios (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = $2
	`, sc.ID, doc)
	if err != nil {
		return fmt.Errorf("failed to save scenario: %w", err)
	}
	return nil
}

func (s *Postgres) getDoc(ctx context.Context, table, id string, out interface{}) error {
	var doc []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table), id).Scan(&doc)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s document: %w", table, err)
	}
	return json.Unmarshal(doc, out)
}

// containerMeasureIDs flattens every measure reference in a container,
// including measures inside nested packages.
func containerMeasureIDs(c *model.Container) []string {
	var ids []string
	for _, m := range c.Measures {
		ids = append(ids, m.ID)
	}
	for _, p := range c.Packages {
		ids = append(ids, containerMeasureIDs(p)...)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}
