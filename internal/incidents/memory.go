package incidents

import (
	"context"
	"sort"
	"sync"
	"time"
)

type MemoryStore struct {
	mu        sync.RWMutex
	incidents map[string]*Incident
	order     []string
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		incidents: make(map[string]*Incident),
		now:       time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, inc *Incident) error {
	if err := prepareNew(inc, s.now().UTC()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *inc
	s.incidents[inc.ID] = &stored
	s.order = append(s.order, inc.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *inc
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, f ListFilter) ([]Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := []Incident{}
	// Walk newest insertion first so equal timestamps still list newest first.
	for i := len(s.order) - 1; i >= 0; i-- {
		inc := s.incidents[s.order[i]]
		if f.Status != "" && inc.Status != f.Status {
			continue
		}
		if f.Severity != "" && inc.Severity != f.Severity {
			continue
		}
		res = append(res, *inc)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	if limit := f.limit(); limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, p Patch) (*Incident, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !p.Empty() {
		p.Apply(inc)
		inc.UpdatedAt = s.now().UTC()
	}
	out := *inc
	return &out, nil
}
