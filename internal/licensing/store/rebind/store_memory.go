package rebind

import (
	"context"
	"sync"

	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/requestcontext"
)

// InMemoryStore keeps rebind exceptions in process. Expiry is enforced lazily
// on read against the request-scoped clock, matching the Redis store's TTL
// behavior.
type InMemoryStore struct {
	mu         sync.Mutex
	exceptions map[domain.LicenseKey]*models.RebindException
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		exceptions: make(map[domain.LicenseKey]*models.RebindException),
	}
}

// Put stores the exception, overwriting any existing one for the key.
func (s *InMemoryStore) Put(_ context.Context, e *models.RebindException) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.exceptions[e.Key] = &cp
	return nil
}

// Get returns the active exception for the key, or sentinel.ErrNotFound when
// none exists or the stored one has expired.
func (s *InMemoryStore) Get(ctx context.Context, key domain.LicenseKey) (*models.RebindException, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exceptions[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !e.ActiveAt(requestcontext.Now(ctx)) {
		delete(s.exceptions, key)
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// Delete consumes the exception. Deleting an absent key is not an error.
func (s *InMemoryStore) Delete(_ context.Context, key domain.LicenseKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.exceptions, key)
	return nil
}
