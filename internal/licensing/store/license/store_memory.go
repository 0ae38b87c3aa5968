package license

import (
	"context"
	"sync"

	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	"keygate/pkg/platform/sentinel"
)

// InMemoryStore keeps licenses in process for development and unit tests.
// One mutex serializes all mutation: correctness over throughput. Execute
// holds the lock across validate and mutate, so two concurrent activations
// can never both observe "unbound".
type InMemoryStore struct {
	mu       sync.RWMutex
	licenses map[domain.LicenseKey]*models.License
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{licenses: make(map[domain.LicenseKey]*models.License)}
}

func (s *InMemoryStore) Create(_ context.Context, l *models.License) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.licenses[l.Key]; ok {
		return sentinel.ErrConflict
	}
	cp := *l
	s.licenses[l.Key] = &cp
	return nil
}

func (s *InMemoryStore) FindByKey(_ context.Context, key domain.LicenseKey) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.licenses[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := copyLicense(l)
	return &cp, nil
}

// Execute runs validate-then-mutate atomically for one key and returns the
// updated license. Validation failures leave the record untouched.
func (s *InMemoryStore) Execute(
	_ context.Context,
	key domain.LicenseKey,
	validate func(*models.License) error,
	mutate func(*models.License),
) (*models.License, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.licenses[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(l); err != nil {
		return nil, err
	}
	mutate(l)
	cp := copyLicense(l)
	return &cp, nil
}

// CountBound counts licenses currently holding a live binding. Replaced and
// revoked records are excluded even when their binding is retained for
// forensics.
func (s *InMemoryStore) CountBound(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.licenses {
		if l.IsActive() && l.IsBound() {
			n++
		}
	}
	return n, nil
}

func copyLicense(l *models.License) models.License {
	cp := *l
	if l.Binding != nil {
		b := *l.Binding
		cp.Binding = &b
	}
	return cp
}
