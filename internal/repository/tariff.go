package repository

import (
	"context"

	"taxirural/internal/domain"
)

// TariffRepository defines the persistence operations for the global
// tariff, zone overrides and billing settings. These are admin-owned
// configuration documents; the engine treats them as trusted input.
type TariffRepository interface {
	// GetGlobal retrieves the global tariff configuration.
	GetGlobal(ctx context.Context) (*domain.TariffConfig, error)

	// SaveGlobal replaces the global tariff configuration.
	SaveGlobal(ctx context.Context, tariff domain.TariffConfig) error

	// ListZones retrieves all zone overrides.
	ListZones(ctx context.Context) ([]*domain.Zone, error)

	// SaveZone creates or replaces a named zone override.
	SaveZone(ctx context.Context, zone *domain.Zone) error

	// GetBilling retrieves the weekly billing settings.
	GetBilling(ctx context.Context) (*domain.BillingSettings, error)

	// SaveBilling replaces the weekly billing settings.
	SaveBilling(ctx context.Context, settings domain.BillingSettings) error
}
