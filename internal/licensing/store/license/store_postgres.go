package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	"keygate/pkg/platform/sentinel"
	txcontext "keygate/pkg/platform/tx"
)

const Schema = `
CREATE TABLE IF NOT EXISTS licenses (
	key              TEXT PRIMARY KEY,
	product          TEXT NOT NULL,
	plan_type        TEXT NOT NULL,
	customer_email   TEXT NOT NULL,
	status           TEXT NOT NULL,
	fingerprint      TEXT,
	bound_at         TIMESTAMPTZ,
	activation_count INT NOT NULL DEFAULT 0,
	last_attempt     TIMESTAMPTZ,
	replaced_by      TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS licenses_email_idx ON licenses (customer_email);
`

// PostgresStore is the durable license store. Execute serializes per key with
// SELECT ... FOR UPDATE, so the validate-then-mutate window is covered by a
// row lock and joins the caller's transaction when one is in context.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure licenses schema: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) querier {
	if dbTx, ok := txcontext.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, l *models.License) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO licenses (
			key, product, plan_type, customer_email, status,
			fingerprint, bound_at, activation_count, last_attempt,
			replaced_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, licenseArgs(l)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert license: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByKey(ctx context.Context, key domain.LicenseKey) (*models.License, error) {
	row := s.querier(ctx).QueryRowContext(ctx, selectLicense+` WHERE key = $1`, string(key))
	return scanLicense(row)
}

// Execute locks the row, runs validate, applies mutate, and writes the result
// back. With a transaction in context the lock holds until that transaction
// commits, covering the paired audit write.
func (s *PostgresStore) Execute(
	ctx context.Context,
	key domain.LicenseKey,
	validate func(*models.License) error,
	mutate func(*models.License),
) (*models.License, error) {
	dbTx, external := txcontext.From(ctx)
	if !external {
		var err error
		dbTx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin license tx: %w", err)
		}
		defer func() { _ = dbTx.Rollback() }()
	}

	row := dbTx.QueryRowContext(ctx, selectLicense+` WHERE key = $1 FOR UPDATE`, string(key))
	l, err := scanLicense(row)
	if err != nil {
		return nil, err
	}
	if err := validate(l); err != nil {
		return nil, err
	}
	mutate(l)

	if _, err := dbTx.ExecContext(ctx, `
		UPDATE licenses SET
			product = $2, plan_type = $3, customer_email = $4, status = $5,
			fingerprint = $6, bound_at = $7, activation_count = $8,
			last_attempt = $9, replaced_by = $10, created_at = $11, updated_at = $12
		WHERE key = $1
	`, licenseArgs(l)...); err != nil {
		return nil, fmt.Errorf("update license: %w", err)
	}

	if !external {
		if err := dbTx.Commit(); err != nil {
			return nil, fmt.Errorf("commit license tx: %w", err)
		}
	}
	return l, nil
}

func (s *PostgresStore) CountBound(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM licenses
		WHERE status = $1 AND fingerprint IS NOT NULL
	`, string(models.StatusActive)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bound licenses: %w", err)
	}
	return n, nil
}

const selectLicense = `
	SELECT key, product, plan_type, customer_email, status,
	       fingerprint, bound_at, activation_count, last_attempt,
	       replaced_by, created_at, updated_at
	FROM licenses
`

func licenseArgs(l *models.License) []any {
	var fingerprint sql.NullString
	var boundAt sql.NullTime
	if l.Binding != nil {
		fingerprint = sql.NullString{String: l.Binding.Fingerprint, Valid: true}
		boundAt = sql.NullTime{Time: l.Binding.BoundAt, Valid: true}
	}
	var lastAttempt sql.NullTime
	if !l.LastActivationAttempt.IsZero() {
		lastAttempt = sql.NullTime{Time: l.LastActivationAttempt, Valid: true}
	}
	var replacedBy sql.NullString
	if l.ReplacedBy != "" {
		replacedBy = sql.NullString{String: string(l.ReplacedBy), Valid: true}
	}
	return []any{
		string(l.Key), l.Product, l.PlanType, l.CustomerEmail, string(l.Status),
		fingerprint, boundAt, l.ActivationCount, lastAttempt,
		replacedBy, l.CreatedAt, l.UpdatedAt,
	}
}

func scanLicense(row *sql.Row) (*models.License, error) {
	var (
		l           models.License
		key, status string
		fingerprint sql.NullString
		boundAt     sql.NullTime
		lastAttempt sql.NullTime
		replacedBy  sql.NullString
	)
	err := row.Scan(
		&key, &l.Product, &l.PlanType, &l.CustomerEmail, &status,
		&fingerprint, &boundAt, &l.ActivationCount, &lastAttempt,
		&replacedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan license: %w", err)
	}
	l.Key = domain.LicenseKey(key)
	l.Status = models.LicenseStatus(status)
	if fingerprint.Valid {
		l.Binding = &models.Binding{
			Fingerprint: fingerprint.String,
			BoundAt:     boundAt.Time.UTC(),
		}
	}
	if lastAttempt.Valid {
		l.LastActivationAttempt = lastAttempt.Time.UTC()
	}
	if replacedBy.Valid {
		l.ReplacedBy = domain.LicenseKey(replacedBy.String)
	}
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	return &l, nil
}
