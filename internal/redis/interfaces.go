package redis

import (
	"context"
	"time"

	"taxirural/internal/domain"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireBillingLock(ctx context.Context, periodKey string, ttl time.Duration) (bool, error)
	ReleaseBillingLock(ctx context.Context, periodKey string) error
}

// RideFeedInterface defines the interface for the ride change feed.
type RideFeedInterface interface {
	Publish(ctx context.Context, event RideEvent) error
	Subscribe(ctx context.Context) (<-chan RideEvent, error)
}

// CacheStoreInterface defines the interface for settings caching.
type CacheStoreInterface interface {
	GetTariff(ctx context.Context) (*domain.TariffConfig, error)
	SetTariff(ctx context.Context, t *domain.TariffConfig) error
	GetZones(ctx context.Context) ([]*domain.Zone, error)
	SetZones(ctx context.Context, zones []*domain.Zone) error
	GetBillingSettings(ctx context.Context) (*domain.BillingSettings, error)
	SetBillingSettings(ctx context.Context, b *domain.BillingSettings) error
	InvalidateSettings(ctx context.Context) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ RideFeedInterface      = (*RideFeed)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)
