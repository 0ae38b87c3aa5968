package rebind

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"keygate/internal/licensing/models"
	"keygate/internal/platform/redis"
	"keygate/pkg/domain"
	"keygate/pkg/platform/sentinel"
)

const keyPrefix = "rebind-exception:"

// RedisStore holds rebind exceptions with a TTL equal to the grant window.
// Expiry is Redis's problem: an expired exception simply stops existing, which
// is exactly the read-time semantics the activation path wants.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, e *models.RebindException) error {
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal rebind exception: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+string(e.Key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store rebind exception: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key domain.LicenseKey) (*models.RebindException, error) {
	payload, err := s.client.Get(ctx, keyPrefix+string(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("fetch rebind exception: %w", err)
	}
	var e models.RebindException
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decode rebind exception: %w", err)
	}
	return &e, nil
}

func (s *RedisStore) Delete(ctx context.Context, key domain.LicenseKey) error {
	if err := s.client.Del(ctx, keyPrefix+string(key)).Err(); err != nil {
		return fmt.Errorf("delete rebind exception: %w", err)
	}
	return nil
}
