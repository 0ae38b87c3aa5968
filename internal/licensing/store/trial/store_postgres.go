package trial

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
CREATE TABLE IF NOT EXISTS trials (
	key            TEXT PRIMARY KEY,
	customer_email TEXT NOT NULL,
	is_active      BOOLEAN NOT NULL,
	end_date       TIMESTAMPTZ NOT NULL,
	activated_at   TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
`

// PostgresStore is the durable trial store. It follows the same row-lock
// Execute discipline as the license store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure trials schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, tr *models.Trial) error {
	var runner interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if dbTx, ok := txcontext.From(ctx); ok {
		runner = dbTx
	}
	_, err := runner.ExecContext(ctx, `
		INSERT INTO trials (key, customer_email, is_active, end_date, activated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, string(tr.Key), tr.CustomerEmail, tr.IsActive, tr.EndDate, tr.ActivatedAt, tr.CreatedAt, tr.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert trial: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByKey(ctx context.Context, key domain.TrialKey) (*models.Trial, error) {
	var runner interface {
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	} = s.db
	if dbTx, ok := txcontext.From(ctx); ok {
		runner = dbTx
	}
	row := runner.QueryRowContext(ctx, selectTrial+` WHERE key = $1`, string(key))
	return scanTrial(row)
}

func (s *PostgresStore) Execute(
	ctx context.Context,
	key domain.TrialKey,
	validate func(*models.Trial) error,
	mutate func(*models.Trial),
) (*models.Trial, error) {
	dbTx, external := txcontext.From(ctx)
	if !external {
		var err error
		dbTx, err = s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin trial tx: %w", err)
		}
		defer func() { _ = dbTx.Rollback() }()
	}

	row := dbTx.QueryRowContext(ctx, selectTrial+` WHERE key = $1 FOR UPDATE`, string(key))
	tr, err := scanTrial(row)
	if err != nil {
		return nil, err
	}
	if err := validate(tr); err != nil {
		return nil, err
	}
	mutate(tr)

	if _, err := dbTx.ExecContext(ctx, `
		UPDATE trials SET customer_email = $2, is_active = $3, end_date = $4,
			activated_at = $5, created_at = $6, updated_at = $7
		WHERE key = $1
	`, string(tr.Key), tr.CustomerEmail, tr.IsActive, tr.EndDate, tr.ActivatedAt, tr.CreatedAt, tr.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update trial: %w", err)
	}

	if !external {
		if err := dbTx.Commit(); err != nil {
			return nil, fmt.Errorf("commit trial tx: %w", err)
		}
	}
	return tr, nil
}

const selectTrial = `
	SELECT key, customer_email, is_active, end_date, activated_at, created_at, updated_at
	FROM trials
`

func scanTrial(row *sql.Row) (*models.Trial, error) {
	var (
		tr  models.Trial
		key string
	)
	err := row.Scan(&key, &tr.CustomerEmail, &tr.IsActive, &tr.EndDate, &tr.ActivatedAt, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan trial: %w", err)
	}
	tr.Key = domain.TrialKey(key)
	tr.EndDate = tr.EndDate.UTC()
	tr.ActivatedAt = tr.ActivatedAt.UTC()
	tr.CreatedAt = tr.CreatedAt.UTC()
	tr.UpdatedAt = tr.UpdatedAt.UTC()
	return &tr, nil
}
