//go:build integration

package rebind_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"keygate/internal/licensing/models"
	"keygate/internal/licensing/store/rebind"
	"keygate/pkg/domain"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/testutil/containers"
)

type RedisRebindSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *rebind.RedisStore
}

func TestRedisRebindSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisRebindSuite))
}

func (s *RedisRebindSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = rebind.NewRedisStore(s.redis.Client)
}

func (s *RedisRebindSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisRebindSuite) TestPutGetRoundTrip() {
	ctx := context.Background()
	key := domain.GenerateLicenseKey()
	e, err := models.NewRebindException(key, "laptop stolen", 48, time.Now())
	s.Require().NoError(err)

	s.Require().NoError(s.store.Put(ctx, e))

	got, err := s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.Equal(key, got.Key)
	s.Equal("laptop stolen", got.Reason)
	s.WithinDuration(e.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func (s *RedisRebindSuite) TestGetMissingKey() {
	_, err := s.store.Get(context.Background(), domain.GenerateLicenseKey())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Regranting overwrites: windows never stack.
func (s *RedisRebindSuite) TestPutOverwritesExisting() {
	ctx := context.Background()
	key := domain.GenerateLicenseKey()
	now := time.Now()

	first, err := models.NewRebindException(key, "first grant", 24, now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(ctx, first))

	second, err := models.NewRebindException(key, "second grant", 72, now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(ctx, second))

	got, err := s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.Equal("second grant", got.Reason)
	s.WithinDuration(second.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func (s *RedisRebindSuite) TestDeleteIsIdempotent() {
	ctx := context.Background()
	key := domain.GenerateLicenseKey()
	e, err := models.NewRebindException(key, "consumed", 24, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Put(ctx, e))

	s.Require().NoError(s.store.Delete(ctx, key))
	s.Require().NoError(s.store.Delete(ctx, key))

	_, err = s.store.Get(ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// Redis TTL is the expiry mechanism: an exception simply stops existing.
func (s *RedisRebindSuite) TestExceptionExpiresViaTTL() {
	ctx := context.Background()
	key := domain.GenerateLicenseKey()
	e := &models.RebindException{
		Key:       key,
		GrantedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Second),
		Reason:    "short window",
	}
	s.Require().NoError(s.store.Put(ctx, e))

	_, err := s.store.Get(ctx, key)
	s.Require().NoError(err)

	time.Sleep(1500 * time.Millisecond)

	_, err = s.store.Get(ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisRebindSuite) TestPutAlreadyExpired() {
	e := &models.RebindException{
		Key:       domain.GenerateLicenseKey(),
		GrantedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
		Reason:    "stale",
	}
	s.ErrorIs(s.store.Put(context.Background(), e), sentinel.ErrExpired)
}
