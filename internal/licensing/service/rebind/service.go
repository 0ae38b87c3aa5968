// Package rebind grants time-boxed exceptions allowing a bound license to
// move to a new device without a full binding reset.
package rebind

import (
	"context"
	"errors"
	"log/slog"

	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/requestcontext"
)

// LicenseReader confirms the key exists before a grant.
type LicenseReader interface {
	FindByKey(ctx context.Context, key domain.LicenseKey) (*models.License, error)
}

// ExceptionStore holds exceptions with lazy expiry. Put overwrites.
type ExceptionStore interface {
	Put(ctx context.Context, e *models.RebindException) error
	Get(ctx context.Context, key domain.LicenseKey) (*models.RebindException, error)
}

type Service struct {
	licenses   LicenseReader
	exceptions ExceptionStore
	logger     *slog.Logger
}

func NewService(licenses LicenseReader, exceptions ExceptionStore, logger *slog.Logger) *Service {
	return &Service{licenses: licenses, exceptions: exceptions, logger: logger}
}

// Grant creates an exception expiring hours from now. A grant while another
// exception is active overwrites it; windows never stack.
func (s *Service) Grant(ctx context.Context, key domain.LicenseKey, reason string, hours int) (*models.RebindException, error) {
	now := requestcontext.Now(ctx)

	l, err := s.licenses.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "license key not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up license")
	}
	if !l.IsActive() {
		return nil, dErrors.NewWithDetail(dErrors.CodeInvariantViolation,
			"rebind exceptions apply only to active licenses", l.StatusDetail())
	}

	exc, err := models.NewRebindException(key, reason, hours, now)
	if err != nil {
		return nil, err
	}
	if err := s.exceptions.Put(ctx, exc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not store rebind exception")
	}

	s.logger.InfoContext(ctx, "rebind exception granted",
		"key", key.Masked(), "expires_at", exc.ExpiresAt,
		"request_id", requestcontext.RequestID(ctx))
	return exc, nil
}

// Active returns the current exception for the key, or nil when none applies.
func (s *Service) Active(ctx context.Context, key domain.LicenseKey) (*models.RebindException, error) {
	exc, err := s.exceptions.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up rebind exception")
	}
	if !exc.ActiveAt(requestcontext.Now(ctx)) {
		return nil, nil
	}
	return exc, nil
}
