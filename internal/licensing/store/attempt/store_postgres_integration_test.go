//go:build integration

package attempt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"keygate/internal/licensing/models"
	"keygate/internal/licensing/store/attempt"
	"keygate/pkg/domain"
	"keygate/pkg/testutil/containers"
)

type PostgresAttemptSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *attempt.PostgresStore
}

func TestPostgresAttemptSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAttemptSuite))
}

func (s *PostgresAttemptSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = attempt.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresAttemptSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "activation_attempts"))
}

func (s *PostgresAttemptSuite) TestAppendAndListNewestFirst() {
	ctx := context.Background()
	key := domain.GenerateLicenseKey()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 3; i++ {
		a := models.NewLicenseAttempt(key, "fp-1", "Chrome on Mac OS X",
			models.AttemptSuccess, "", base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.Append(ctx, a))
	}

	got, err := s.store.ListByLicenseKey(ctx, key, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.WithinDuration(base.Add(2*time.Second), got[0].Timestamp, time.Microsecond)
	s.WithinDuration(base, got[2].Timestamp, time.Microsecond)
}

func (s *PostgresAttemptSuite) TestListHonorsLimit() {
	ctx := context.Background()
	key := domain.GenerateLicenseKey()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		a := models.NewLicenseAttempt(key, "fp-1", "",
			models.AttemptFail, "DEVICE_MISMATCH", base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.Append(ctx, a))
	}

	got, err := s.store.ListByLicenseKey(ctx, key, 2)
	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *PostgresAttemptSuite) TestFailureFieldsRoundTrip() {
	ctx := context.Background()
	key := domain.GenerateLicenseKey()
	now := time.Now().UTC().Truncate(time.Microsecond)

	a := models.NewLicenseAttempt(key, "fp-x", "Firefox on Windows",
		models.AttemptFail, "ERR-1234", now)
	s.Require().NoError(s.store.Append(ctx, a))

	got, err := s.store.ListByLicenseKey(ctx, key, 1)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(a.ID, got[0].ID)
	s.Equal(models.AttemptFail, got[0].Result)
	s.Equal("ERR-1234", got[0].ErrorID)
	s.Equal("fp-x", got[0].Fingerprint)
	s.Equal("Firefox on Windows", got[0].DeviceName)
}

func (s *PostgresAttemptSuite) TestListIsScopedToKey() {
	ctx := context.Background()
	keyA := domain.GenerateLicenseKey()
	keyB := domain.GenerateLicenseKey()
	now := time.Now().UTC()

	s.Require().NoError(s.store.Append(ctx, models.NewLicenseAttempt(keyA, "fp-a", "", models.AttemptSuccess, "", now)))
	s.Require().NoError(s.store.Append(ctx, models.NewLicenseAttempt(keyB, "fp-b", "", models.AttemptSuccess, "", now)))

	got, err := s.store.ListByLicenseKey(ctx, keyA, 10)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(keyA, got[0].LicenseKey)
}
