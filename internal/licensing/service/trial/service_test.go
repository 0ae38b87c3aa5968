package trial

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	trialStore "keygate/internal/licensing/store/trial"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/requestcontext"
)

type TrialSuite struct {
	suite.Suite

	trials *trialStore.InMemoryStore
	svc    *Service

	now time.Time
	ctx context.Context
}

func TestTrialSuite(t *testing.T) {
	suite.Run(t, new(TrialSuite))
}

func (s *TrialSuite) SetupTest() {
	s.trials = trialStore.NewInMemoryStore()
	s.svc = NewService(s.trials, slog.Default())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *TrialSuite) TestCreate() {
	tr, err := s.svc.Create(s.ctx, "eval@example.com")
	s.Require().NoError(err)
	s.Equal(s.now.Add(14*24*time.Hour), tr.EndDate)
	s.True(tr.IsActive)

	valid, _, err := s.svc.Valid(s.ctx, tr.Key)
	s.Require().NoError(err)
	s.True(valid)
}

func (s *TrialSuite) TestExtendLiveTrial() {
	tr, err := s.svc.Create(s.ctx, "eval@example.com")
	s.Require().NoError(err)

	change, err := s.svc.Extend(s.ctx, tr.Key, 7)
	s.Require().NoError(err)
	s.Equal(tr.EndDate.AddDate(0, 0, 7), change.Trial.EndDate)
}

func (s *TrialSuite) TestExtendExpiredTrialRestartsFromNow() {
	tr, err := s.svc.Create(s.ctx, "eval@example.com")
	s.Require().NoError(err)

	// A month past expiry.
	later := tr.EndDate.AddDate(0, 1, 0)
	laterCtx := requestcontext.WithTime(context.Background(), later)

	valid, _, err := s.svc.Valid(laterCtx, tr.Key)
	s.Require().NoError(err)
	s.False(valid)

	change, err := s.svc.Extend(laterCtx, tr.Key, 7)
	s.Require().NoError(err)
	s.Equal(later.AddDate(0, 0, 7), change.Trial.EndDate)

	valid, _, err = s.svc.Valid(laterCtx, tr.Key)
	s.Require().NoError(err)
	s.True(valid)
}

func (s *TrialSuite) TestExtendBounds() {
	tr, err := s.svc.Create(s.ctx, "eval@example.com")
	s.Require().NoError(err)

	for _, days := range []int{0, -1, 91} {
		_, err := s.svc.Extend(s.ctx, tr.Key, days)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	}

	// Rejected extensions never move the end date.
	_, current, err := s.svc.Valid(s.ctx, tr.Key)
	s.Require().NoError(err)
	s.Equal(tr.EndDate, current.EndDate)
}

func (s *TrialSuite) TestInvalidEmail() {
	_, err := s.svc.Create(s.ctx, "not-an-email")
	s.Require().Error(err)
}
