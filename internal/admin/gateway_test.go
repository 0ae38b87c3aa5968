package admin

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"keygate/internal/licensing/models"
	"keygate/internal/licensing/service/lifecycle"
	"keygate/internal/licensing/service/rebind"
	"keygate/internal/licensing/service/trial"
	licenseStore "keygate/internal/licensing/store/license"
	rebindStore "keygate/internal/licensing/store/rebind"
	trialStore "keygate/internal/licensing/store/trial"
	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/audit"
	auditMemory "keygate/pkg/platform/audit/store/memory"
	"keygate/pkg/platform/tx"
	"keygate/pkg/requestcontext"
)

type GatewaySuite struct {
	suite.Suite

	licenses *licenseStore.InMemoryStore
	trials   *trialStore.InMemoryStore
	audits   *auditMemory.InMemoryStore
	gateway  *Gateway

	now time.Time
	ctx context.Context
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	logger := slog.Default()
	s.licenses = licenseStore.NewInMemoryStore()
	s.trials = trialStore.NewInMemoryStore()
	s.audits = auditMemory.NewInMemoryStore()

	s.gateway = NewGateway(
		lifecycle.NewService(s.licenses, logger),
		rebind.NewService(s.licenses, rebindStore.NewInMemoryStore(), logger),
		trial.NewService(s.trials, logger),
		audit.NewPublisher(s.audits),
		tx.NoopRunner{},
		nil,
		logger,
	)

	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithActor(
		requestcontext.WithTime(context.Background(), s.now), "support:jordan")
}

func (s *GatewaySuite) seedLicense(fingerprint string) domain.LicenseKey {
	key := domain.GenerateLicenseKey()
	l, err := models.NewLicense(key, "desktop-studio", models.PlanStandard, "customer@example.com", s.now)
	s.Require().NoError(err)
	if fingerprint != "" {
		l.ApplyBinding(fingerprint, s.now)
	}
	s.Require().NoError(s.licenses.Create(s.ctx, l))
	return key
}

func (s *GatewaySuite) lastEntry() audit.Entry {
	entries := s.audits.All()
	s.Require().NotEmpty(entries)
	return entries[len(entries)-1]
}

func (s *GatewaySuite) TestEveryCallAuditsExactlyOnce() {
	key := s.seedLicense("fp-a")

	cases := []struct {
		name string
		cmd  Command
		ok   bool
	}{
		{"applied reset", ResetBinding{Key: key, Reason: "support ticket 4411"}, true},
		{"missing reason", ResetBinding{Key: key}, false},
		{"wrong confirmation", RevokeLicense{Key: key, Reason: "chargeback", Confirmation: "revoke"}, false},
		{"unknown key", ResetBinding{Key: domain.GenerateLicenseKey(), Reason: "ticket"}, false},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			before := len(s.audits.All())
			_, err := s.gateway.Execute(s.ctx, tc.cmd)
			if tc.ok {
				s.Require().NoError(err)
			} else {
				s.Require().Error(err)
			}
			s.Equal(before+1, len(s.audits.All()))

			entry := s.lastEntry()
			s.Equal("support:jordan", entry.Actor)
			if tc.ok {
				s.Equal(audit.DecisionApplied, entry.Decision)
			} else {
				s.Equal(audit.DecisionRejected, entry.Decision)
			}
		})
	}
}

func (s *GatewaySuite) TestConfirmationIsCaseSensitive() {
	key := s.seedLicense("fp-a")

	for _, phrase := range []string{"", "revoke", "Revoke", "REVOKE "} {
		_, err := s.gateway.Execute(s.ctx, RevokeLicense{Key: key, Reason: "fraud", Confirmation: phrase})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConfirmationMismatch))
	}

	s.Run("state untouched by rejected confirmations", func() {
		l, err := s.licenses.FindByKey(s.ctx, key)
		s.Require().NoError(err)
		s.True(l.IsActive())
	})

	s.Run("exact phrase applies", func() {
		_, err := s.gateway.Execute(s.ctx, RevokeLicense{Key: key, Reason: "fraud", Confirmation: ConfirmRevoke})
		s.Require().NoError(err)
		l, err := s.licenses.FindByKey(s.ctx, key)
		s.Require().NoError(err)
		s.Equal(models.StatusRevoked, l.Status)
	})
}

func (s *GatewaySuite) TestReissueFlow() {
	key := s.seedLicense("fp-a")

	outcome, err := s.gateway.Execute(s.ctx, ReissueLicense{Key: key, Reason: "lost key", Confirmation: ConfirmReissue})
	s.Require().NoError(err)
	s.NotEmpty(outcome.NewLicenseKey)

	entry := s.lastEntry()
	s.Equal(audit.ActionLicenseReissued, entry.Action)
	s.Equal(key.Masked(), entry.EntityID)
	s.Equal("lost key", entry.Reason)
	s.NotEmpty(entry.Before)
	s.NotEmpty(entry.After)

	s.Run("second reissue on the old key is rejected and audited", func() {
		before := len(s.audits.All())
		_, err := s.gateway.Execute(s.ctx, ReissueLicense{Key: key, Reason: "again", Confirmation: ConfirmReissue})
		s.Require().Error(err)
		s.Equal(before+1, len(s.audits.All()))
		s.Equal(audit.DecisionRejected, s.lastEntry().Decision)
	})
}

func (s *GatewaySuite) TestRebindExceptionGrant() {
	key := s.seedLicense("fp-a")

	outcome, err := s.gateway.Execute(s.ctx, GrantRebindException{Key: key, Reason: "replacement laptop", Hours: 48})
	s.Require().NoError(err)
	s.Equal(s.now.Add(48*time.Hour), outcome.ExpiresAt)

	s.Run("hours out of range rejected", func() {
		_, err := s.gateway.Execute(s.ctx, GrantRebindException{Key: key, Reason: "r", Hours: 0})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.gateway.Execute(s.ctx, GrantRebindException{Key: key, Reason: "r", Hours: 169})
		s.Require().Error(err)
	})
}

func (s *GatewaySuite) TestCompLicense() {
	outcome, err := s.gateway.Execute(s.ctx, CompLicense{
		CustomerEmail: "vip@example.com",
		Product:       "desktop-studio",
		Reason:        "conference giveaway",
		Confirmation:  ConfirmComp,
	})
	s.Require().NoError(err)

	l, err := s.licenses.FindByKey(s.ctx, outcome.NewLicenseKey)
	s.Require().NoError(err)
	s.Equal(models.PlanComp, l.PlanType)

	entry := s.lastEntry()
	s.Equal(audit.ActionLicenseComped, entry.Action)
	s.Equal("vip@example.com", entry.EntityID)
}

func (s *GatewaySuite) TestExtendTrial() {
	tr, err := trial.NewService(s.trials, slog.Default()).Create(s.ctx, "eval@example.com")
	s.Require().NoError(err)

	outcome, err := s.gateway.Execute(s.ctx, ExtendTrial{Key: tr.Key, Reason: "needs more time", Days: 7})
	s.Require().NoError(err)
	s.Equal(tr.EndDate.AddDate(0, 0, 7), outcome.NewEndDate)

	entry := s.lastEntry()
	s.Equal(audit.ActionTrialExtended, entry.Action)
	s.Equal(audit.EntityTrial, entry.EntityType)
}
