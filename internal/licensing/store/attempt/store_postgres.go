package attempt

import (
	"context"
	"database/sql"
	"fmt"

	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	txcontext "keygate/pkg/platform/tx"
)

const Schema = `
CREATE TABLE IF NOT EXISTS activation_attempts (
	id          UUID PRIMARY KEY,
	license_key TEXT,
	trial_key   TEXT,
	ts          TIMESTAMPTZ NOT NULL,
	result      TEXT NOT NULL,
	error_id    TEXT,
	fingerprint TEXT NOT NULL,
	device_name TEXT
);

CREATE INDEX IF NOT EXISTS activation_attempts_license_idx
	ON activation_attempts (license_key, ts DESC);
`

// PostgresStore is the durable append-only attempt log.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure attempts schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, a models.ActivationAttempt) error {
	var runner interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if dbTx, ok := txcontext.From(ctx); ok {
		runner = dbTx
	}
	_, err := runner.ExecContext(ctx, `
		INSERT INTO activation_attempts (id, license_key, trial_key, ts, result, error_id, fingerprint, device_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		a.ID, nullable(string(a.LicenseKey)), nullable(string(a.TrialKey)),
		a.Timestamp, string(a.Result), nullable(a.ErrorID), a.Fingerprint, nullable(a.DeviceName),
	)
	if err != nil {
		return fmt.Errorf("insert activation attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByLicenseKey(ctx context.Context, key domain.LicenseKey, limit int) ([]models.ActivationAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, license_key, trial_key, ts, result, error_id, fingerprint, device_name
		FROM activation_attempts
		WHERE license_key = $1
		ORDER BY ts DESC
		LIMIT $2
	`, string(key), limit)
	if err != nil {
		return nil, fmt.Errorf("list activation attempts: %w", err)
	}
	defer rows.Close()

	var out []models.ActivationAttempt
	for rows.Next() {
		var (
			a                   models.ActivationAttempt
			licenseKey          sql.NullString
			trialKey            sql.NullString
			errorID, deviceName sql.NullString
		)
		if err := rows.Scan(&a.ID, &licenseKey, &trialKey, &a.Timestamp, &a.Result, &errorID, &a.Fingerprint, &deviceName); err != nil {
			return nil, fmt.Errorf("scan activation attempt: %w", err)
		}
		a.LicenseKey = domain.LicenseKey(licenseKey.String)
		a.TrialKey = domain.TrialKey(trialKey.String)
		a.Timestamp = a.Timestamp.UTC()
		a.ErrorID = errorID.String
		a.DeviceName = deviceName.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
