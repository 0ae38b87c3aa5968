package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists audit entries. Append-only by contract.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Publisher captures structured audit entries. It uses the storage layer for
// persistence so tests can swap sinks easily. When the caller runs inside a
// store transaction, the entry joins it: mutation and audit commit together.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return p.store.Append(ctx, entry)
}

func (p *Publisher) ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error) {
	return p.store.ListByEntity(ctx, entityType, entityID)
}

func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	return p.store.ListRecent(ctx, limit)
}
