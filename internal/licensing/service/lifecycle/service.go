// Package lifecycle implements the license state transitions behind the admin
// remediation gateway: binding reset, reissue, revoke, and comp issuance.
//
// Callers are expected to wrap each method in a transaction (tx.Runner) so
// the mutation commits atomically with its audit entry. The methods return
// before/after snapshots for that entry.
package lifecycle

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

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// LicenseStore is the store surface lifecycle transitions need.
type LicenseStore interface {
	Create(ctx context.Context, l *models.License) error
	Execute(ctx context.Context, key domain.LicenseKey,
		validate func(*models.License) error, mutate func(*models.License)) (*models.License, error)
}

// Change describes one applied transition for the audit trail.
type Change struct {
	Before map[string]any
	After  map[string]any
	// NewKey is set by Reissue and Comp, which create a license.
	NewKey domain.LicenseKey
}

type Service struct {
	licenses LicenseStore
	logger   *slog.Logger
}

func NewService(licenses LicenseStore, logger *slog.Logger) *Service {
	return &Service{licenses: licenses, logger: logger}
}

// ResetBinding clears the device binding so the license can activate on any
// device again.
func (s *Service) ResetBinding(ctx context.Context, key domain.LicenseKey) (*Change, error) {
	now := requestcontext.Now(ctx)
	change := &Change{}

	updated, err := s.licenses.Execute(ctx, key,
		func(l *models.License) error {
			change.Before = l.Snapshot()
			return l.CanResetBinding()
		},
		func(l *models.License) { l.ApplyBindingReset(now) },
	)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	change.After = updated.Snapshot()
	return change, nil
}

// Revoke moves the license to its terminal revoked state. The recorded
// binding stays for forensics. Already-activated offline installs keep
// working until their local artifact is separately invalidated; revocation
// only stops future activations.
func (s *Service) Revoke(ctx context.Context, key domain.LicenseKey) (*Change, error) {
	now := requestcontext.Now(ctx)
	change := &Change{}

	updated, err := s.licenses.Execute(ctx, key,
		func(l *models.License) error {
			change.Before = l.Snapshot()
			return l.CanRevoke()
		},
		func(l *models.License) { l.ApplyRevocation(now) },
	)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	change.After = updated.Snapshot()
	return change, nil
}

// Reissue replaces the license: the old key becomes terminally replaced and a
// new active key carrying the same product, plan, and customer is created.
// Calling it again on the old key fails, replaced is terminal.
func (s *Service) Reissue(ctx context.Context, key domain.LicenseKey) (*Change, error) {
	now := requestcontext.Now(ctx)
	newKey := domain.GenerateLicenseKey()
	change := &Change{NewKey: newKey}

	var product, planType, customerEmail string
	updated, err := s.licenses.Execute(ctx, key,
		func(l *models.License) error {
			change.Before = l.Snapshot()
			product, planType, customerEmail = l.Product, l.PlanType, l.CustomerEmail
			return l.CanReplace()
		},
		func(l *models.License) { l.ApplyReplacement(newKey, now) },
	)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	successor, err := models.NewLicense(newKey, product, planType, customerEmail, now)
	if err != nil {
		return nil, err
	}
	if err := s.licenses.Create(ctx, successor); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create replacement license")
	}

	change.After = updated.Snapshot()
	s.logger.InfoContext(ctx, "license reissued",
		"old_key", key.Masked(), "new_key", newKey.Masked(),
		"request_id", requestcontext.RequestID(ctx))
	return change, nil
}

// Comp issues a goodwill license. It carries the comp plan label so reporting
// can separate these grants from revenue.
func (s *Service) Comp(ctx context.Context, customerEmail, product string) (*Change, error) {
	now := requestcontext.Now(ctx)
	key := domain.GenerateLicenseKey()

	l, err := models.NewLicense(key, product, models.PlanComp, customerEmail, now)
	if err != nil {
		return nil, err
	}
	if err := s.licenses.Create(ctx, l); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create comp license")
	}
	return &Change{NewKey: key, After: l.Snapshot()}, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "license key not found")
	}
	return err
}
