package store

import (
	"context"
	"sync"

	"building-energy/internal/model"
)

// Memory is an in-process Store used by tests and local tooling.
type Memory struct {
	mu        sync.RWMutex
	buildings map[string]*model.Building
	measures  map[string]*model.Measure
	packages  map[string]*model.Container
	proposals map[string]*model.Proposal
	scenarios map[string]*model.Scenario
}

func NewMemory() *Memory {
	return &Memory{
		buildings: make(map[string]*model.Building),
		measures:  make(map[string]*model.Measure),
		packages:  make(map[string]*model.Container),
		proposals: make(map[string]*model.Proposal),
		scenarios: make(map[string]*model.Scenario),
	}
}

func (s *Memory) Building(_ context.Context, id string) (*model.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buildings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *Memory) SaveBuilding(_ context.Context, b *model.Building) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildings[b.ID] = b
	return nil
}

func (s *Memory) BuildingsForOrganization(_ context.Context, orgID string) ([]*model.Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Building
	for _, b := range s.buildings {
		if b.OrganizationID == orgID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Memory) Measure(_ context.Context, id string) (*model.Measure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.measures[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *Memory) SaveMeasure(_ context.Context, m *model.Measure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.measures[m.ID] = m
	return nil
}

func (s *Memory) MeasuresForOrganization(_ context.Context, orgID string) ([]*model.Measure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Measure
	for _, m := range s.measures {
		if m.OrganizationID == orgID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Memory) DeleteMeasure(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.measures, id)
	return nil
}

func (s *Memory) Container(_ context.Context, id string) (*model.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.packages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Memory) SaveContainer(_ context.Context, c *model.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[c.ID] = c
	return nil
}

func (s *Memory) ContainersWithMeasure(_ context.Context, measureID string) ([]*model.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Container
	for _, c := range s.packages {
		if c.ReferencesMeasure(measureID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Memory) Proposal(_ context.Context, id string) (*model.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Memory) SaveProposal(_ context.Context, p *model.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = p
	return nil
}

func (s *Memory) ProposalsWithMeasure(_ context.Context, measureID string) ([]*model.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Proposal
	for _, p := range s.proposals {
		for _, m := range p.Measures {
			if m.ID == measureID {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (s *Memory) Scenario(_ context.Context, id string) (*model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scenarios[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sc, nil
}

func (s *Memory) SaveScenario(_ context.Context, sc *model.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[sc.ID] = sc
	return nil
}
