package lifecycle

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"keygate/internal/licensing/models"
	licenseStore "keygate/internal/licensing/store/license"
	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/requestcontext"
)

type LifecycleSuite struct {
	suite.Suite

	licenses *licenseStore.InMemoryStore
	svc      *Service

	now time.Time
	ctx context.Context
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.licenses = licenseStore.NewInMemoryStore()
	s.svc = NewService(s.licenses, slog.Default())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *LifecycleSuite) seedBound(fingerprint string) domain.LicenseKey {
	key := domain.GenerateLicenseKey()
	l, err := models.NewLicense(key, "desktop-studio", models.PlanStandard, "customer@example.com", s.now)
	s.Require().NoError(err)
	if fingerprint != "" {
		l.ApplyBinding(fingerprint, s.now)
	}
	s.Require().NoError(s.licenses.Create(s.ctx, l))
	return key
}

func (s *LifecycleSuite) TestResetBinding() {
	key := s.seedBound("fp-a")

	change, err := s.svc.ResetBinding(s.ctx, key)
	s.Require().NoError(err)
	s.Equal("fp-a", change.Before["fingerprint"])
	s.NotContains(change.After, "fingerprint")

	l, err := s.licenses.FindByKey(s.ctx, key)
	s.Require().NoError(err)
	s.False(l.IsBound())
	s.NoError(l.CanBind("fp-b"))
}

func (s *LifecycleSuite) TestResetUnknownKey() {
	_, err := s.svc.ResetBinding(s.ctx, domain.GenerateLicenseKey())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LifecycleSuite) TestRevoke() {
	key := s.seedBound("fp-a")

	change, err := s.svc.Revoke(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(string(models.StatusRevoked), change.After["status"])

	s.Run("binding retained for forensics", func() {
		l, err := s.licenses.FindByKey(s.ctx, key)
		s.Require().NoError(err)
		s.True(l.BoundTo("fp-a"))
	})

	s.Run("second revoke fails", func() {
		_, err := s.svc.Revoke(s.ctx, key)
		s.Require().Error(err)
	})
}

func (s *LifecycleSuite) TestReissue() {
	key := s.seedBound("fp-a")

	change, err := s.svc.Reissue(s.ctx, key)
	s.Require().NoError(err)
	s.NotEmpty(change.NewKey)
	s.NotEqual(key, change.NewKey)

	s.Run("old record is terminally replaced and linked", func() {
		old, err := s.licenses.FindByKey(s.ctx, key)
		s.Require().NoError(err)
		s.Equal(models.StatusReplaced, old.Status)
		s.Equal(change.NewKey, old.ReplacedBy)
	})

	s.Run("successor copies product, plan, and customer", func() {
		successor, err := s.licenses.FindByKey(s.ctx, change.NewKey)
		s.Require().NoError(err)
		s.Equal("desktop-studio", successor.Product)
		s.Equal(models.PlanStandard, successor.PlanType)
		s.Equal("customer@example.com", successor.CustomerEmail)
		s.True(successor.IsActive())
		s.False(successor.IsBound())
	})

	s.Run("reissue is not idempotent", func() {
		_, err := s.svc.Reissue(s.ctx, key)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeKeyNotActivatable))
		s.Contains(dErrors.DetailOf(err), "replaced")
	})
}

func (s *LifecycleSuite) TestComp() {
	change, err := s.svc.Comp(s.ctx, "vip@example.com", "desktop-studio")
	s.Require().NoError(err)

	l, err := s.licenses.FindByKey(s.ctx, change.NewKey)
	s.Require().NoError(err)
	s.Equal(models.PlanComp, l.PlanType)
	s.Equal("vip@example.com", l.CustomerEmail)
	s.True(l.IsActive())
}

func (s *LifecycleSuite) TestRevokedNeverReturnsToActive() {
	key := s.seedBound("fp-a")
	_, err := s.svc.Revoke(s.ctx, key)
	s.Require().NoError(err)

	_, err = s.svc.ResetBinding(s.ctx, key)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeKeyNotActivatable))
	_, err = s.svc.Reissue(s.ctx, key)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeKeyNotActivatable))

	l, err := s.licenses.FindByKey(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, l.Status)
}
