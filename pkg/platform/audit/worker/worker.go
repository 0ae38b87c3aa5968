// Package worker drains the audit outbox into Kafka. Rows are claimed with
// FOR UPDATE SKIP LOCKED so multiple replicas can run the worker safely;
// a row is deleted only after its record is acknowledged by the broker.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Producer publishes one audit payload. Satisfied by the kafka platform
// producer; tests use a recording fake.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

type OutboxWorker struct {
	db       *sql.DB
	producer Producer
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

type Option func(*OutboxWorker)

// WithInterval overrides the poll interval (default 1s).
func WithInterval(d time.Duration) Option {
	return func(w *OutboxWorker) { w.interval = d }
}

// WithBatchSize overrides how many rows are claimed per poll (default 100).
func WithBatchSize(n int) Option {
	return func(w *OutboxWorker) { w.batch = n }
}

func New(db *sql.DB, producer Producer, logger *slog.Logger, opts ...Option) *OutboxWorker {
	w := &OutboxWorker{
		db:       db,
		producer: producer,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is canceled. Publish errors are logged and
// retried on the next tick; the outbox row survives until publish succeeds.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

// Drain publishes one batch of outbox rows. Exported for tests and for
// flushing on shutdown.
func (w *OutboxWorker) Drain(ctx context.Context) error {
	dbTx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	rows, err := dbTx.QueryContext(ctx, `
		SELECT id, payload FROM audit_outbox
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batch)
	if err != nil {
		return fmt.Errorf("claim outbox rows: %w", err)
	}

	type row struct {
		id      string
		payload []byte
	}
	var claimed []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		claimed = append(claimed, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	for _, r := range claimed {
		if err := w.producer.Produce(ctx, []byte(r.id), r.payload); err != nil {
			return fmt.Errorf("publish outbox row %s: %w", r.id, err)
		}
		if _, err := dbTx.ExecContext(ctx, `DELETE FROM audit_outbox WHERE id = $1`, r.id); err != nil {
			return fmt.Errorf("delete outbox row %s: %w", r.id, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit outbox batch: %w", err)
	}
	w.logger.DebugContext(ctx, "audit outbox batch published", "count", len(claimed))
	return nil
}
