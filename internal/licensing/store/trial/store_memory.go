package trial

import (
	"context"
	"sync"

	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	"keygate/pkg/platform/sentinel"
)

// InMemoryStore keeps trials in process for development and unit tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	trials map[domain.TrialKey]*models.Trial
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{trials: make(map[domain.TrialKey]*models.Trial)}
}

func (s *InMemoryStore) Create(_ context.Context, tr *models.Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trials[tr.Key]; ok {
		return sentinel.ErrConflict
	}
	cp := *tr
	s.trials[tr.Key] = &cp
	return nil
}

func (s *InMemoryStore) FindByKey(_ context.Context, key domain.TrialKey) (*models.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tr, ok := s.trials[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *tr
	return &cp, nil
}

func (s *InMemoryStore) Execute(
	_ context.Context,
	key domain.TrialKey,
	validate func(*models.Trial) error,
	mutate func(*models.Trial),
) (*models.Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.trials[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(tr); err != nil {
		return nil, err
	}
	mutate(tr)
	cp := *tr
	return &cp, nil
}
