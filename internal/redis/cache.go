package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"taxirural/internal/domain"
)

const (
	tariffCacheKey  = "cache:tariff:global"
	zonesCacheKey   = "cache:tariff:zones"
	billingCacheKey = "cache:billing:settings"
	settingsTTL     = 5 * time.Minute
)

// CacheStore caches admin-owned configuration documents. Tariffs are
// read on every fare estimate and every ride creation; a short TTL
// keeps admin edits visible within minutes without a read per request.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetTariff returns the cached global tariff, or nil on miss.
func (s *CacheStore) GetTariff(ctx context.Context) (*domain.TariffConfig, error) {
	var t domain.TariffConfig
	ok, err := s.get(ctx, tariffCacheKey, &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

// SetTariff caches the global tariff.
func (s *CacheStore) SetTariff(ctx context.Context, t *domain.TariffConfig) error {
	return s.set(ctx, tariffCacheKey, t)
}

// GetZones returns the cached zone list, or nil on miss.
func (s *CacheStore) GetZones(ctx context.Context) ([]*domain.Zone, error) {
	var zones []*domain.Zone
	ok, err := s.get(ctx, zonesCacheKey, &zones)
	if err != nil || !ok {
		return nil, err
	}
	return zones, nil
}

// SetZones caches the zone list.
func (s *CacheStore) SetZones(ctx context.Context, zones []*domain.Zone) error {
	return s.set(ctx, zonesCacheKey, zones)
}

// GetBillingSettings returns the cached billing settings, or nil on miss.
func (s *CacheStore) GetBillingSettings(ctx context.Context) (*domain.BillingSettings, error) {
	var b domain.BillingSettings
	ok, err := s.get(ctx, billingCacheKey, &b)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

// SetBillingSettings caches the billing settings.
func (s *CacheStore) SetBillingSettings(ctx context.Context, b *domain.BillingSettings) error {
	return s.set(ctx, billingCacheKey, b)
}

// InvalidateSettings drops all cached configuration. Called after any
// admin write so the next read goes to the store.
func (s *CacheStore) InvalidateSettings(ctx context.Context) error {
	return s.client.Del(ctx, tariffCacheKey, zonesCacheKey, billingCacheKey).Err()
}

func (s *CacheStore) get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheStore) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, settingsTTL).Err()
}
