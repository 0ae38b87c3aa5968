// Package trial manages time-boxed evaluation keys: issuance, extension, and
// validity checks.
package trial

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

// Store is the trial store surface.
type Store interface {
	Create(ctx context.Context, tr *models.Trial) error
	FindByKey(ctx context.Context, key domain.TrialKey) (*models.Trial, error)
	Execute(ctx context.Context, key domain.TrialKey,
		validate func(*models.Trial) error, mutate func(*models.Trial)) (*models.Trial, error)
}

// Change describes an applied extension for the audit trail.
type Change struct {
	Before map[string]any
	After  map[string]any
	Trial  *models.Trial
}

type Service struct {
	trials Store
	logger *slog.Logger
}

func NewService(trials Store, logger *slog.Logger) *Service {
	return &Service{trials: trials, logger: logger}
}

// Create issues a new trial key with the standard window.
func (s *Service) Create(ctx context.Context, customerEmail string) (*models.Trial, error) {
	now := requestcontext.Now(ctx)
	tr, err := models.NewTrial(domain.GenerateTrialKey(), customerEmail, now)
	if err != nil {
		return nil, err
	}
	if err := s.trials.Create(ctx, tr); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create trial")
	}
	s.logger.InfoContext(ctx, "trial created",
		"key", tr.Key.Masked(), "end_date", tr.EndDate,
		"request_id", requestcontext.RequestID(ctx))
	return tr, nil
}

// Extend pushes the end date out by days, measured from the later of now and
// the current end date so a live trial never loses remaining time.
func (s *Service) Extend(ctx context.Context, key domain.TrialKey, days int) (*Change, error) {
	now := requestcontext.Now(ctx)
	change := &Change{}

	updated, err := s.trials.Execute(ctx, key,
		func(tr *models.Trial) error {
			change.Before = tr.Snapshot()
			return tr.CanExtend(days)
		},
		func(tr *models.Trial) { tr.ApplyExtension(days, now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "trial key not found")
		}
		return nil, err
	}
	change.After = updated.Snapshot()
	change.Trial = updated
	return change, nil
}

// Valid reports whether the trial is usable right now.
func (s *Service) Valid(ctx context.Context, key domain.TrialKey) (bool, *models.Trial, error) {
	tr, err := s.trials.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil, dErrors.New(dErrors.CodeInvalidKey, "trial key not found")
		}
		return false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not look up trial")
	}
	return tr.Valid(requestcontext.Now(ctx)), tr, nil
}
