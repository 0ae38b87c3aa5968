//go:build integration

package license_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"keygate/internal/licensing/models"
	"keygate/internal/licensing/store/license"
	"keygate/pkg/domain"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/platform/tx"
	"keygate/pkg/testutil/containers"
)

type PostgresLicenseSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *license.PostgresStore
}

func TestPostgresLicenseSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLicenseSuite))
}

func (s *PostgresLicenseSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = license.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresLicenseSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "licenses"))
}

func (s *PostgresLicenseSuite) newLicense(now time.Time) *models.License {
	l, err := models.NewLicense(domain.GenerateLicenseKey(), "studio", models.PlanPro, "buyer@example.com", now)
	s.Require().NoError(err)
	return l
}

func (s *PostgresLicenseSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	l := s.newLicense(now)

	s.Require().NoError(s.store.Create(ctx, l))

	got, err := s.store.FindByKey(ctx, l.Key)
	s.Require().NoError(err)
	s.Equal(l.Key, got.Key)
	s.Equal("studio", got.Product)
	s.Equal(models.PlanPro, got.PlanType)
	s.Equal(models.StatusActive, got.Status)
	s.Nil(got.Binding)
	s.WithinDuration(now, got.CreatedAt, time.Microsecond)
}

func (s *PostgresLicenseSuite) TestCreateDuplicateKeyConflicts() {
	ctx := context.Background()
	l := s.newLicense(time.Now().UTC())

	s.Require().NoError(s.store.Create(ctx, l))
	err := s.store.Create(ctx, l)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresLicenseSuite) TestFindUnknownKey() {
	_, err := s.store.FindByKey(context.Background(), domain.GenerateLicenseKey())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLicenseSuite) TestExecutePersistsMutation() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	l := s.newLicense(now)
	s.Require().NoError(s.store.Create(ctx, l))

	updated, err := s.store.Execute(ctx, l.Key,
		func(cur *models.License) error { return cur.CanBind("fp-1") },
		func(cur *models.License) { cur.ApplyBinding("fp-1", now) },
	)
	s.Require().NoError(err)
	s.Equal(1, updated.ActivationCount)

	got, err := s.store.FindByKey(ctx, l.Key)
	s.Require().NoError(err)
	s.Require().NotNil(got.Binding)
	s.Equal("fp-1", got.Binding.Fingerprint)
	s.WithinDuration(now, got.Binding.BoundAt, time.Microsecond)
	s.Equal(1, got.ActivationCount)
}

func (s *PostgresLicenseSuite) TestExecuteValidationFailureLeavesRowUntouched() {
	ctx := context.Background()
	now := time.Now().UTC()
	l := s.newLicense(now)
	l.ApplyBinding("fp-original", now)
	s.Require().NoError(s.store.Create(ctx, l))

	_, err := s.store.Execute(ctx, l.Key,
		func(cur *models.License) error { return cur.CanBind("fp-intruder") },
		func(cur *models.License) { cur.ApplyBinding("fp-intruder", now) },
	)
	s.Require().Error(err)

	got, err := s.store.FindByKey(ctx, l.Key)
	s.Require().NoError(err)
	s.Equal("fp-original", got.Binding.Fingerprint)
	s.Equal(1, got.ActivationCount)
}

func (s *PostgresLicenseSuite) TestExecuteUnknownKey() {
	_, err := s.store.Execute(context.Background(), domain.GenerateLicenseKey(),
		func(*models.License) error { return nil },
		func(*models.License) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Concurrent activations of the same key must serialize on the row lock: the
// final activation count equals the number of successful calls.
func (s *PostgresLicenseSuite) TestConcurrentExecuteSerializes() {
	ctx := context.Background()
	now := time.Now().UTC()
	l := s.newLicense(now)
	s.Require().NoError(s.store.Create(ctx, l))

	const goroutines = 20
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, l.Key,
				func(cur *models.License) error { return cur.CanBind("fp-same") },
				func(cur *models.License) { cur.ApplyBinding("fp-same", now) },
			)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.store.FindByKey(ctx, l.Key)
	s.Require().NoError(err)
	s.Equal(goroutines, got.ActivationCount)
}

// Two devices racing to bind an unbound license: exactly one wins the row
// lock and binds; the loser observes the winner's binding and is rejected.
func (s *PostgresLicenseSuite) TestConcurrentBindDifferentFingerprints() {
	ctx := context.Background()
	now := time.Now().UTC()
	l := s.newLicense(now)
	s.Require().NoError(s.store.Create(ctx, l))

	fingerprints := []string{"fp-a", "fp-b"}
	results := make(chan error, len(fingerprints))
	var wg sync.WaitGroup
	for _, fp := range fingerprints {
		wg.Add(1)
		go func(fp string) {
			defer wg.Done()
			_, err := s.store.Execute(ctx, l.Key,
				func(cur *models.License) error { return cur.CanBind(fp) },
				func(cur *models.License) { cur.ApplyBinding(fp, now) },
			)
			results <- err
		}(fp)
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			failures++
		}
	}
	s.Equal(1, successes)
	s.Equal(1, failures)

	got, err := s.store.FindByKey(ctx, l.Key)
	s.Require().NoError(err)
	s.Require().NotNil(got.Binding)
	s.Contains(fingerprints, got.Binding.Fingerprint)
	s.Equal(1, got.ActivationCount)
}

// A mutation inside a runner transaction must roll back with it, matching the
// gateway's rule that an unaudited change never commits.
func (s *PostgresLicenseSuite) TestExecuteRollsBackWithEnclosingTransaction() {
	ctx := context.Background()
	now := time.Now().UTC()
	l := s.newLicense(now)
	s.Require().NoError(s.store.Create(ctx, l))

	runner := tx.NewSQLRunner(s.postgres.DB)
	sentinelErr := errors.New("audit failed")
	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		_, execErr := s.store.Execute(txCtx, l.Key,
			func(cur *models.License) error { return cur.CanRevoke() },
			func(cur *models.License) { cur.ApplyRevocation(now) },
		)
		s.Require().NoError(execErr)
		return sentinelErr
	})
	s.ErrorIs(err, sentinelErr)

	got, err := s.store.FindByKey(ctx, l.Key)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
}

func (s *PostgresLicenseSuite) TestCountBoundExcludesTerminalStates() {
	ctx := context.Background()
	now := time.Now().UTC()

	active := s.newLicense(now)
	active.ApplyBinding("fp-a", now)
	s.Require().NoError(s.store.Create(ctx, active))

	revoked := s.newLicense(now)
	revoked.ApplyBinding("fp-b", now)
	revoked.ApplyRevocation(now)
	s.Require().NoError(s.store.Create(ctx, revoked))

	unbound := s.newLicense(now)
	s.Require().NoError(s.store.Create(ctx, unbound))

	n, err := s.store.CountBound(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}
