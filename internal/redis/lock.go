package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireBillingLock attempts to acquire the weekly billing run lock
// for the given period. Returns true if acquired, false if another
// instance is already running the aggregation for that period.
func (s *LockStore) AcquireBillingLock(ctx context.Context, periodKey string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:billing:%s", periodKey)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseBillingLock releases the billing run lock.
func (s *LockStore) ReleaseBillingLock(ctx context.Context, periodKey string) error {
	key := fmt.Sprintf("lock:billing:%s", periodKey)

	return s.client.Del(ctx, key).Err()
}
