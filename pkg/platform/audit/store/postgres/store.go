// Package postgres implements audit.Store using the transactional outbox
// pattern. Append writes to the outbox table inside the caller's transaction,
// so a lifecycle mutation and its audit entry commit or roll back together.
// The outbox worker publishes rows to Kafka; the consumer materializes them
// into audit_entries for querying. Deployments without a broker use NewDirect,
// which materializes on Append with the same transactional guarantee.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	audit "keygate/pkg/platform/audit"
	txcontext "keygate/pkg/platform/tx"
)

const Schema = `
CREATE TABLE IF NOT EXISTS audit_outbox (
	id         UUID PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_entries (
	id          UUID PRIMARY KEY,
	category    TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	reason      TEXT NOT NULL,
	decision    TEXT NOT NULL,
	request_id  TEXT NOT NULL DEFAULT '',
	before      JSONB,
	after       JSONB
);

CREATE INDEX IF NOT EXISTS audit_entries_entity_idx
	ON audit_entries (entity_type, entity_id, occurred_at DESC);
`

type Store struct {
	db *sql.DB
	// direct skips the outbox and materializes entries on Append. Used when
	// no broker is configured to drain the outbox table.
	direct bool
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// NewDirect returns a store whose Append writes straight to audit_entries,
// still inside the caller's transaction. Reads behave identically to the
// outbox-backed store.
func NewDirect(db *sql.DB) *Store {
	return &Store{db: db, direct: true}
}

// EnsureSchema creates the audit tables if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if dbTx, ok := txcontext.From(ctx); ok {
		return dbTx
	}
	return s.db
}

// Payload is the JSON structure published to Kafka. Field names match
// audit.Entry for deserialization by the consumer.
type Payload struct {
	ID         string         `json:"ID"`
	Category   string         `json:"Category"`
	Timestamp  string         `json:"Timestamp"`
	Actor      string         `json:"Actor"`
	Action     string         `json:"Action"`
	EntityType string         `json:"EntityType"`
	EntityID   string         `json:"EntityID"`
	Reason     string         `json:"Reason"`
	Decision   string         `json:"Decision"`
	RequestID  string         `json:"RequestID,omitempty"`
	Before     map[string]any `json:"Before,omitempty"`
	After      map[string]any `json:"After,omitempty"`
}

// ToEntry converts a Kafka payload back into an audit entry.
func (p Payload) ToEntry() (audit.Entry, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("parse entry id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("parse entry timestamp: %w", err)
	}
	return audit.Entry{
		ID:         id,
		Timestamp:  ts,
		Actor:      p.Actor,
		Action:     audit.Action(p.Action),
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		Reason:     p.Reason,
		Decision:   p.Decision,
		RequestID:  p.RequestID,
		Before:     p.Before,
		After:      p.After,
	}, nil
}

// Append writes an audit entry to the outbox table for Kafka publishing, or
// directly to audit_entries in direct mode.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	if s.direct {
		return s.insertEntry(ctx, s.execer(ctx), entry.ID, entry)
	}
	payload := Payload{
		ID:         entry.ID.String(),
		Category:   string(entry.Action.Category()),
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Actor:      entry.Actor,
		Action:     string(entry.Action),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Reason:     entry.Reason,
		Decision:   entry.Decision,
		RequestID:  entry.RequestID,
		Before:     entry.Before,
		After:      entry.After,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx,
		`INSERT INTO audit_outbox (id, payload, created_at) VALUES ($1, $2, $3)`,
		entry.ID, payloadBytes, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// AppendWithID inserts a materialized audit entry with a specific ID. Used by
// the Kafka consumer; idempotent via ON CONFLICT DO NOTHING so redelivery is
// safe.
func (s *Store) AppendWithID(ctx context.Context, entryID uuid.UUID, entry audit.Entry) error {
	return s.insertEntry(ctx, s.db, entryID, entry)
}

func (s *Store) insertEntry(ctx context.Context, exec dbExecutor, entryID uuid.UUID, entry audit.Entry) error {
	before, err := marshalDetail(entry.Before)
	if err != nil {
		return err
	}
	after, err := marshalDetail(entry.After)
	if err != nil {
		return err
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO audit_entries (
			id, category, occurred_at, actor, action,
			entity_type, entity_id, reason, decision, request_id, before, after
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`,
		entryID,
		string(entry.Action.Category()),
		entry.Timestamp,
		entry.Actor,
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		entry.Reason,
		entry.Decision,
		entry.RequestID,
		before,
		after,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func marshalDetail(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal audit detail: %w", err)
	}
	return b, nil
}

const selectColumns = `
	id, occurred_at, actor, action, entity_type, entity_id,
	reason, decision, request_id, before, after
`

// ListByEntity returns materialized entries for one license or trial,
// oldest first.
func (s *Store) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY occurred_at ASC
	`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRecent returns the most recent entries across all entities.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM audit_entries
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var out []audit.Entry
	for rows.Next() {
		var (
			e             audit.Entry
			action        string
			before, after []byte
		)
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Actor, &action, &e.EntityType, &e.EntityID,
			&e.Reason, &e.Decision, &e.RequestID, &before, &after,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Action = audit.Action(action)
		if len(before) > 0 {
			if err := json.Unmarshal(before, &e.Before); err != nil {
				return nil, fmt.Errorf("unmarshal before detail: %w", err)
			}
		}
		if len(after) > 0 {
			if err := json.Unmarshal(after, &e.After); err != nil {
				return nil, fmt.Errorf("unmarshal after detail: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
