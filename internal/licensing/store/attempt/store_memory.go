package attempt

import (
	"context"
	"sync"

	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
)

// InMemoryStore keeps activation attempts in process for development and unit
// tests. Append-only, newest first on read.
type InMemoryStore struct {
	mu       sync.RWMutex
	attempts []models.ActivationAttempt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, a models.ActivationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, a)
	return nil
}

func (s *InMemoryStore) ListByLicenseKey(_ context.Context, key domain.LicenseKey, limit int) ([]models.ActivationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ActivationAttempt
	for i := len(s.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.attempts[i].LicenseKey == key {
			out = append(out, s.attempts[i])
		}
	}
	return out, nil
}
