package service

import (
	"context"
	"errors"
	"math"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/geo"
	"taxirural/internal/redis"
	"taxirural/internal/repository"
)

// FareService computes fare estimates from distance, duration and the
// tariff configuration, resolving zone overrides by request origin.
type FareService struct {
	tariffRepo  repository.TariffRepository
	cacheStore  redis.CacheStoreInterface
	avgSpeedKmh float64
}

// NewFareService creates a new FareService.
func NewFareService(
	tariffRepo repository.TariffRepository,
	cacheStore redis.CacheStoreInterface,
	avgSpeedKmh float64,
) *FareService {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = 30
	}
	return &FareService{
		tariffRepo:  tariffRepo,
		cacheStore:  cacheStore,
		avgSpeedKmh: avgSpeedKmh,
	}
}

// DefaultTariff is used when no tariff has been configured yet.
// Values are the launch configuration in MXN.
func DefaultTariff() domain.TariffConfig {
	return domain.TariffConfig{
		BaseFare:        30,
		PerKm:           8,
		PerMin:          2,
		MinFare:         0,
		NightMultiplier: 1,
		NightStart:      "22:00",
		NightEnd:        "06:00",
		CancelAfterMin:  5,
	}
}

// Estimate computes the fare band for the given distance and duration
// under the tariff, applying the night multiplier when at falls inside
// the night window. The ±10% band is a display range, not a confidence
// interval.
func Estimate(distanceKm, durationMin float64, at time.Time, tariff domain.TariffConfig) domain.FareEstimate {
	exact := tariff.BaseFare + distanceKm*tariff.PerKm + durationMin*tariff.PerMin
	if exact < tariff.MinFare {
		exact = tariff.MinFare
	}
	if tariff.NightMultiplier > 0 && tariff.NightMultiplier != 1 && inNightWindow(at, tariff.NightStart, tariff.NightEnd) {
		exact *= tariff.NightMultiplier
	}
	exact += tariff.ServiceFee

	return domain.FareEstimate{
		Min:   math.Floor(exact * 0.9),
		Max:   math.Ceil(exact * 1.1),
		Exact: exact,
	}
}

// ETAMinutes estimates travel time for a distance at the configured
// rural average speed.
func (s *FareService) ETAMinutes(distanceKm float64) float64 {
	return math.Round(distanceKm / s.avgSpeedKmh * 60)
}

// EstimateForRoute resolves the tariff for the origin and estimates
// the fare for the straight-line route origin -> destination.
func (s *FareService) EstimateForRoute(ctx context.Context, origin, destination domain.GeoPoint, at time.Time) (domain.FareEstimate, error) {
	tariff, _, err := s.ResolveTariff(ctx, &origin)
	if err != nil {
		return domain.FareEstimate{}, err
	}

	distanceKm := geo.DistanceKm(origin, destination)
	durationMin := s.ETAMinutes(distanceKm)
	return Estimate(distanceKm, durationMin, at, tariff), nil
}

// ResolveTariff returns the effective tariff for a request origin: the
// first zone containing the origin fully overrides the global config,
// with zero-valued zone fields falling back to global values. A nil
// origin resolves to the global tariff.
func (s *FareService) ResolveTariff(ctx context.Context, origin *domain.GeoPoint) (domain.TariffConfig, string, error) {
	global, err := s.globalTariff(ctx)
	if err != nil {
		return domain.TariffConfig{}, "", err
	}

	if origin == nil {
		return global, "", nil
	}

	zones, err := s.zones(ctx)
	if err != nil {
		return domain.TariffConfig{}, "", err
	}

	for _, zone := range zones {
		if !zone.Valid() {
			continue
		}
		if geo.DistanceKm(zone.Center, *origin) <= zone.RadiusKm {
			return mergeTariff(zone.Tariff, global), zone.Name, nil
		}
	}

	return global, "", nil
}

// CancellationFee returns the fee owed for cancelling a matched ride
// held longer than the tariff's cancellation window.
func CancellationFee(tariff domain.TariffConfig, heldFor time.Duration) float64 {
	if tariff.CancelFee <= 0 {
		return 0
	}
	if heldFor < time.Duration(tariff.CancelAfterMin)*time.Minute {
		return 0
	}
	return tariff.CancelFee
}

// UpdateGlobalTariff replaces the global tariff. Admin action; the
// settings cache is invalidated so the next estimate sees it.
func (s *FareService) UpdateGlobalTariff(ctx context.Context, tariff domain.TariffConfig) error {
	if tariff.BaseFare < 0 || tariff.PerKm < 0 || tariff.PerMin < 0 ||
		tariff.MinFare < 0 || tariff.NightMultiplier < 0 ||
		tariff.ServiceFee < 0 || tariff.CancelFee < 0 || tariff.CancelAfterMin < 0 {
		return ErrInvalidFare
	}
	if err := s.tariffRepo.SaveGlobal(ctx, tariff); err != nil {
		return err
	}
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateSettings(ctx)
	}
	return nil
}

// UpsertZone creates or replaces a named zone override. Admin action.
func (s *FareService) UpsertZone(ctx context.Context, zone *domain.Zone) error {
	if !zone.Valid() {
		return ErrInvalidRadius
	}
	if !geo.ValidLatitude(zone.Center.Lat) || !geo.ValidLongitude(zone.Center.Lng) {
		return ErrInvalidOrigin
	}
	if err := s.tariffRepo.SaveZone(ctx, zone); err != nil {
		return err
	}
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateSettings(ctx)
	}
	return nil
}

// ListZones returns all zone overrides, bypassing the cache so admins
// read their own writes.
func (s *FareService) ListZones(ctx context.Context) ([]*domain.Zone, error) {
	return s.tariffRepo.ListZones(ctx)
}

// GlobalTariff returns the effective global tariff.
func (s *FareService) GlobalTariff(ctx context.Context) (domain.TariffConfig, error) {
	return s.globalTariff(ctx)
}

func (s *FareService) globalTariff(ctx context.Context) (domain.TariffConfig, error) {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetTariff(ctx); err == nil && cached != nil {
			return *cached, nil
		}
	}

	tariff, err := s.tariffRepo.GetGlobal(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return DefaultTariff(), nil
		}
		return domain.TariffConfig{}, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetTariff(ctx, tariff)
	}
	return *tariff, nil
}

func (s *FareService) zones(ctx context.Context) ([]*domain.Zone, error) {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetZones(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	zones, err := s.tariffRepo.ListZones(ctx)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetZones(ctx, zones)
	}
	return zones, nil
}

// mergeTariff applies the zone override on top of the global tariff.
// The zone wins wherever it sets a value; zero-valued fields (an
// incomplete zone form) fall back to the global configuration.
func mergeTariff(zone, global domain.TariffConfig) domain.TariffConfig {
	merged := zone
	if merged.BaseFare == 0 {
		merged.BaseFare = global.BaseFare
	}
	if merged.PerKm == 0 {
		merged.PerKm = global.PerKm
	}
	if merged.PerMin == 0 {
		merged.PerMin = global.PerMin
	}
	if merged.MinFare == 0 {
		merged.MinFare = global.MinFare
	}
	if merged.NightMultiplier == 0 {
		merged.NightMultiplier = global.NightMultiplier
	}
	if merged.NightStart == "" {
		merged.NightStart = global.NightStart
	}
	if merged.NightEnd == "" {
		merged.NightEnd = global.NightEnd
	}
	if merged.ServiceFee == 0 {
		merged.ServiceFee = global.ServiceFee
	}
	if merged.CancelAfterMin == 0 {
		merged.CancelAfterMin = global.CancelAfterMin
	}
	if merged.CancelFee == 0 {
		merged.CancelFee = global.CancelFee
	}
	return merged
}

// inNightWindow reports whether t's local clock time falls inside the
// window [start, end). The window may wrap midnight (22:00 - 06:00).
func inNightWindow(t time.Time, start, end string) bool {
	startMin, okStart := parseClock(start)
	endMin, okEnd := parseClock(end)
	if !okStart || !okEnd || startMin == endMin {
		return false
	}

	nowMin := t.Hour()*60 + t.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// Wraps midnight.
	return nowMin >= startMin || nowMin < endMin
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' ||
		s[3] < '0' || s[3] > '9' || s[4] < '0' || s[4] > '9' {
		return 0, false
	}
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
