// Package consumer materializes audit payloads from Kafka into the
// audit_entries table that the support dashboard queries. Materialization is
// idempotent, so at-least-once delivery is fine.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"keygate/internal/platform/kafka"
	auditpg "keygate/pkg/platform/audit/store/postgres"
)

type Consumer struct {
	store  *auditpg.Store
	logger *slog.Logger
}

func New(store *auditpg.Store, logger *slog.Logger) *Consumer {
	return &Consumer{store: store, logger: logger}
}

// Handle processes one Kafka message. Malformed payloads are logged and
// skipped: they would never parse on redelivery either.
func (c *Consumer) Handle(ctx context.Context, msg *kafka.Message) error {
	var payload auditpg.Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		c.logger.ErrorContext(ctx, "skipping malformed audit payload",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	entry, err := payload.ToEntry()
	if err != nil {
		c.logger.ErrorContext(ctx, "skipping unparseable audit payload",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}
	return c.store.AppendWithID(ctx, entry.ID, entry)
}
