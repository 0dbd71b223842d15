package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/repository"
)

// TariffRepository is a PostgreSQL implementation of repository.TariffRepository.
// The global tariff and billing settings live in single-row tables
// keyed by a fixed id; zones are rows keyed by name.
type TariffRepository struct {
	q Querier
}

// NewTariffRepository creates a new PostgreSQL tariff repository.
func NewTariffRepository(db *sql.DB) *TariffRepository {
	return &TariffRepository{q: db}
}

const tariffColumns = `base_fare, per_km, per_min, min_fare, night_multiplier,
	night_start, night_end, service_fee, cancel_after_min, cancel_fee`

// GetGlobal retrieves the global tariff configuration.
func (r *TariffRepository) GetGlobal(ctx context.Context) (*domain.TariffConfig, error) {
	query := `SELECT ` + tariffColumns + ` FROM tariff_settings WHERE id = 1`

	var t domain.TariffConfig
	err := r.q.QueryRowContext(ctx, query).Scan(
		&t.BaseFare, &t.PerKm, &t.PerMin, &t.MinFare, &t.NightMultiplier,
		&t.NightStart, &t.NightEnd, &t.ServiceFee, &t.CancelAfterMin, &t.CancelFee,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// SaveGlobal replaces the global tariff configuration.
func (r *TariffRepository) SaveGlobal(ctx context.Context, t domain.TariffConfig) error {
	query := `
		INSERT INTO tariff_settings (id, ` + tariffColumns + `)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			base_fare = EXCLUDED.base_fare,
			per_km = EXCLUDED.per_km,
			per_min = EXCLUDED.per_min,
			min_fare = EXCLUDED.min_fare,
			night_multiplier = EXCLUDED.night_multiplier,
			night_start = EXCLUDED.night_start,
			night_end = EXCLUDED.night_end,
			service_fee = EXCLUDED.service_fee,
			cancel_after_min = EXCLUDED.cancel_after_min,
			cancel_fee = EXCLUDED.cancel_fee
	`

	_, err := r.q.ExecContext(ctx, query,
		t.BaseFare, t.PerKm, t.PerMin, t.MinFare, t.NightMultiplier,
		t.NightStart, t.NightEnd, t.ServiceFee, t.CancelAfterMin, t.CancelFee,
	)
	return err
}

// ListZones retrieves all zone overrides.
func (r *TariffRepository) ListZones(ctx context.Context) ([]*domain.Zone, error) {
	query := `SELECT name, center_lat, center_lng, radius_km, ` + tariffColumns + ` FROM zones ORDER BY name ASC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []*domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(
			&z.Name, &z.Center.Lat, &z.Center.Lng, &z.RadiusKm,
			&z.Tariff.BaseFare, &z.Tariff.PerKm, &z.Tariff.PerMin, &z.Tariff.MinFare,
			&z.Tariff.NightMultiplier, &z.Tariff.NightStart, &z.Tariff.NightEnd,
			&z.Tariff.ServiceFee, &z.Tariff.CancelAfterMin, &z.Tariff.CancelFee,
		); err != nil {
			return nil, err
		}
		zones = append(zones, &z)
	}
	return zones, rows.Err()
}

// SaveZone creates or replaces a named zone override.
func (r *TariffRepository) SaveZone(ctx context.Context, z *domain.Zone) error {
	query := `
		INSERT INTO zones (name, center_lat, center_lng, radius_km, ` + tariffColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (name) DO UPDATE SET
			center_lat = EXCLUDED.center_lat,
			center_lng = EXCLUDED.center_lng,
			radius_km = EXCLUDED.radius_km,
			base_fare = EXCLUDED.base_fare,
			per_km = EXCLUDED.per_km,
			per_min = EXCLUDED.per_min,
			min_fare = EXCLUDED.min_fare,
			night_multiplier = EXCLUDED.night_multiplier,
			night_start = EXCLUDED.night_start,
			night_end = EXCLUDED.night_end,
			service_fee = EXCLUDED.service_fee,
			cancel_after_min = EXCLUDED.cancel_after_min,
			cancel_fee = EXCLUDED.cancel_fee
	`

	_, err := r.q.ExecContext(ctx, query,
		z.Name, z.Center.Lat, z.Center.Lng, z.RadiusKm,
		z.Tariff.BaseFare, z.Tariff.PerKm, z.Tariff.PerMin, z.Tariff.MinFare,
		z.Tariff.NightMultiplier, z.Tariff.NightStart, z.Tariff.NightEnd,
		z.Tariff.ServiceFee, z.Tariff.CancelAfterMin, z.Tariff.CancelFee,
	)
	return err
}

// GetBilling retrieves the weekly billing settings.
func (r *TariffRepository) GetBilling(ctx context.Context) (*domain.BillingSettings, error) {
	query := `SELECT weekly_percent, updated_at FROM billing_settings WHERE id = 1`

	var s domain.BillingSettings
	var updatedAt sql.NullTime
	err := r.q.QueryRowContext(ctx, query).Scan(&s.WeeklyPercent, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if updatedAt.Valid {
		s.UpdatedAt = updatedAt.Time
	}
	return &s, nil
}

// SaveBilling replaces the weekly billing settings.
func (r *TariffRepository) SaveBilling(ctx context.Context, s domain.BillingSettings) error {
	query := `
		INSERT INTO billing_settings (id, weekly_percent, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			weekly_percent = EXCLUDED.weekly_percent,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.ExecContext(ctx, query, s.WeeklyPercent, time.Now())
	return err
}
