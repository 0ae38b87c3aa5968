// Package activation orchestrates first-time and repeat binding of a license
// key to a device, and issues the signed artifact the desktop stores for
// offline verification.
package activation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"keygate/internal/device"
	"keygate/internal/licensing/metrics"
	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

const tracerName = "keygate/licensing/activation"

// LicenseStore is the subset of the license store activation needs. Execute
// runs validate-then-mutate under a per-key exclusive critical section, so
// two concurrent activations can never both observe an unbound license.
type LicenseStore interface {
	Execute(ctx context.Context, key domain.LicenseKey,
		validate func(*models.License) error, mutate func(*models.License)) (*models.License, error)
}

// RebindStore reads and consumes time-boxed rebind exceptions. Get returns
// sentinel.ErrNotFound for absent or expired exceptions.
type RebindStore interface {
	Get(ctx context.Context, key domain.LicenseKey) (*models.RebindException, error)
	Delete(ctx context.Context, key domain.LicenseKey) error
}

// AttemptStore appends activation attempt records. Append-only.
type AttemptStore interface {
	Append(ctx context.Context, a models.ActivationAttempt) error
}

// ArtifactIssuer signs the offline license artifact.
type ArtifactIssuer interface {
	Issue(key domain.LicenseKey, fingerprint, product, planType string, boundAt time.Time) (string, error)
}

// Result is returned to the client on successful activation. Artifact is the
// signed file content the desktop stores locally.
type Result struct {
	Key      domain.LicenseKey
	Product  string
	PlanType string
	BoundAt  time.Time
	Artifact string
}

type Service struct {
	licenses LicenseStore
	rebinds  RebindStore
	attempts AttemptStore
	issuer   ArtifactIssuer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(licenses LicenseStore, rebinds RebindStore, attempts AttemptStore, issuer ArtifactIssuer, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		licenses: licenses,
		rebinds:  rebinds,
		attempts: attempts,
		issuer:   issuer,
		metrics:  m,
		logger:   logger,
	}
}

// Activate binds the key to the device fingerprint and returns the signed
// artifact.
//
// Outcomes:
//   - unknown key: INVALID_KEY
//   - revoked or replaced key: KEY_NOT_ACTIVATABLE, with the which in Detail
//   - already bound to this fingerprint: idempotent success, artifact reissued
//   - bound to another fingerprint with an active rebind exception: rebind
//     succeeds and the exception is consumed
//   - bound to another fingerprint otherwise: DEVICE_MISMATCH
//
// Every call, success or failure, appends exactly one activation attempt.
func (s *Service) Activate(ctx context.Context, key domain.LicenseKey, fingerprint string) (*Result, error) {
	started := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "licensing.activate",
		trace.WithAttributes(attribute.String("license.key_masked", key.Masked())))
	defer span.End()
	defer func() { s.metrics.ObserveActivateLatency(time.Since(started)) }()

	if fingerprint == "" {
		return nil, s.fail(ctx, span, key, fingerprint, dErrors.New(dErrors.CodeValidation, "device fingerprint is required"))
	}

	now := requestcontext.Now(ctx)

	// Exception lookup happens before the critical section; consumption after
	// a successful rebind. A stale read here only means a DEVICE_MISMATCH the
	// client can retry, never a double bind.
	exceptionActive := false
	if exc, err := s.rebinds.Get(ctx, key); err == nil && exc.ActiveAt(now) {
		exceptionActive = true
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "activation unavailable")
	}

	var rebound bool
	updated, err := s.licenses.Execute(ctx, key,
		func(l *models.License) error {
			if !l.IsActive() {
				return dErrors.NewWithDetail(dErrors.CodeKeyNotActivatable,
					"this license can no longer be activated", l.StatusDetail())
			}
			if l.IsBound() && !l.BoundTo(fingerprint) && !exceptionActive {
				return dErrors.New(dErrors.CodeDeviceMismatch,
					"this license is already active on another device")
			}
			rebound = l.IsBound() && !l.BoundTo(fingerprint)
			return nil
		},
		func(l *models.License) {
			if rebound {
				l.ApplyBindingReset(now)
			}
			l.ApplyBinding(fingerprint, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeInvalidKey, "license key not found")
		}
		return nil, s.fail(ctx, span, key, fingerprint, err)
	}

	if rebound {
		if err := s.rebinds.Delete(ctx, key); err != nil {
			// The license is already rebound; a leftover exception only
			// expires on its own. Log and move on.
			s.logger.WarnContext(ctx, "failed to consume rebind exception",
				"key", key.Masked(), "error", err)
		}
	}

	artifact, err := s.issuer.Issue(updated.Key, fingerprint, updated.Product, updated.PlanType, updated.Binding.BoundAt)
	if err != nil {
		return nil, s.fail(ctx, span, key, fingerprint, dErrors.Wrap(err, dErrors.CodeInternal, "could not issue license artifact"))
	}
	s.metrics.IncrementArtifactIssued()

	s.appendAttempt(ctx, key, fingerprint, models.AttemptSuccess, "", now)
	s.metrics.IncrementActivation(string(models.AttemptSuccess), "")
	span.SetAttributes(attribute.Bool("license.rebound", rebound))
	s.logger.InfoContext(ctx, "license activated",
		"key", key.Masked(),
		"rebound", rebound,
		"activation_count", updated.ActivationCount,
		"request_id", requestcontext.RequestID(ctx))

	return &Result{
		Key:      updated.Key,
		Product:  updated.Product,
		PlanType: updated.PlanType,
		BoundAt:  updated.Binding.BoundAt,
		Artifact: artifact,
	}, nil
}

// fail records the failed attempt and counts it before returning err.
func (s *Service) fail(ctx context.Context, span trace.Span, key domain.LicenseKey, fingerprint string, err error) error {
	code := dErrors.CodeOf(err)
	now := requestcontext.Now(ctx)

	s.appendAttempt(ctx, key, fingerprint, models.AttemptFail, string(code), now)
	s.metrics.IncrementActivation(string(models.AttemptFail), string(code))
	if code == dErrors.CodeDeviceMismatch {
		s.metrics.IncrementDeviceMismatch()
		// Touch the record so support sees when the mismatch happened.
		_, _ = s.licenses.Execute(ctx, key,
			func(*models.License) error { return nil },
			func(l *models.License) { l.RecordAttempt(now) })
	}

	span.SetAttributes(attribute.String("license.error", string(code)))
	s.logger.InfoContext(ctx, "activation rejected",
		"key", key.Masked(),
		"error", string(code),
		"request_id", requestcontext.RequestID(ctx))
	return err
}

func (s *Service) appendAttempt(ctx context.Context, key domain.LicenseKey, fingerprint string, result models.AttemptResult, errorID string, now time.Time) {
	attempt := models.NewLicenseAttempt(key, fingerprint,
		device.DisplayName(requestcontext.UserAgent(ctx)), result, errorID, now)
	if err := s.attempts.Append(ctx, attempt); err != nil {
		s.logger.ErrorContext(ctx, "failed to append activation attempt",
			"key", key.Masked(), "error", err)
	}
}
