package tests

import (
	"context"
	"testing"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/service"
)

func standardTariff() domain.TariffConfig {
	return domain.TariffConfig{
		BaseFare:        30,
		PerKm:           8,
		PerMin:          2,
		NightMultiplier: 1,
		NightStart:      "22:00",
		NightEnd:        "06:00",
	}
}

func dayTime(t *testing.T) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, "2026-08-26T14:00:00-06:00")
	if err != nil {
		t.Fatal(err)
	}
	return at
}

func nightTime(t *testing.T) time.Time {
	t.Helper()
	at, err := time.Parse(time.RFC3339, "2026-08-26T23:30:00-06:00")
	if err != nil {
		t.Fatal(err)
	}
	return at
}

func TestEstimate_StandardFormula(t *testing.T) {
	// 30 + 10*8 + 20*2 = 150, band 135..165.
	estimate := service.Estimate(10, 20, dayTime(t), standardTariff())

	if estimate.Exact != 150 {
		t.Errorf("expected exact 150, got %f", estimate.Exact)
	}
	if estimate.Min != 135 {
		t.Errorf("expected min 135, got %f", estimate.Min)
	}
	if estimate.Max != 165 {
		t.Errorf("expected max 165, got %f", estimate.Max)
	}
}

func TestEstimate_BandRounding(t *testing.T) {
	// 30 + 3.3*8 + 7*2 = 70.4; min floor(63.36)=63, max ceil(77.44)=78.
	estimate := service.Estimate(3.3, 7, dayTime(t), standardTariff())

	if estimate.Min != 63 {
		t.Errorf("expected min 63, got %f", estimate.Min)
	}
	if estimate.Max != 78 {
		t.Errorf("expected max 78, got %f", estimate.Max)
	}
}

func TestEstimate_MinimumFareFloor(t *testing.T) {
	tariff := standardTariff()
	tariff.MinFare = 50

	// 30 + 1*8 + 2*2 = 42, floored to 50.
	estimate := service.Estimate(1, 2, dayTime(t), tariff)

	if estimate.Exact != 50 {
		t.Errorf("expected exact 50, got %f", estimate.Exact)
	}
}

func TestEstimate_NightMultiplier(t *testing.T) {
	tariff := standardTariff()
	tariff.NightMultiplier = 1.25

	day := service.Estimate(10, 20, dayTime(t), tariff)
	night := service.Estimate(10, 20, nightTime(t), tariff)

	if day.Exact != 150 {
		t.Errorf("expected day exact 150, got %f", day.Exact)
	}
	if night.Exact != 187.5 {
		t.Errorf("expected night exact 187.5, got %f", night.Exact)
	}
}

func TestEstimate_NightWindowWrapsMidnight(t *testing.T) {
	tariff := standardTariff()
	tariff.NightMultiplier = 2

	earlyMorning, err := time.Parse(time.RFC3339, "2026-08-27T04:00:00-06:00")
	if err != nil {
		t.Fatal(err)
	}
	justAfterEnd, err := time.Parse(time.RFC3339, "2026-08-27T06:00:00-06:00")
	if err != nil {
		t.Fatal(err)
	}

	if got := service.Estimate(10, 20, earlyMorning, tariff).Exact; got != 300 {
		t.Errorf("04:00 should be night: expected 300, got %f", got)
	}
	if got := service.Estimate(10, 20, justAfterEnd, tariff).Exact; got != 150 {
		t.Errorf("06:00 should be day: expected 150, got %f", got)
	}
}

func TestEstimate_ServiceFeeAfterMultiplier(t *testing.T) {
	tariff := standardTariff()
	tariff.NightMultiplier = 2
	tariff.ServiceFee = 10

	// (150)*2 + 10 = 310. The fee is not subject to the multiplier.
	if got := service.Estimate(10, 20, nightTime(t), tariff).Exact; got != 310 {
		t.Errorf("expected 310, got %f", got)
	}
}

func TestResolveTariff_ZoneOverridesByOrigin(t *testing.T) {
	tariffRepo := NewMockTariffRepository()
	_ = tariffRepo.SaveGlobal(context.Background(), standardTariff())
	_ = tariffRepo.SaveZone(context.Background(), &domain.Zone{
		Name:     "sierra",
		Center:   domain.GeoPoint{Lat: 19.90, Lng: -99.50},
		RadiusKm: 10,
		Tariff:   domain.TariffConfig{PerKm: 12}, // rough roads cost more
	})

	fares := service.NewFareService(tariffRepo, nil, 30)

	inside := &domain.GeoPoint{Lat: 19.92, Lng: -99.50}
	tariff, zoneName, err := fares.ResolveTariff(context.Background(), inside)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zoneName != "sierra" {
		t.Errorf("expected zone sierra, got %q", zoneName)
	}
	if tariff.PerKm != 12 {
		t.Errorf("expected zone per-km 12, got %f", tariff.PerKm)
	}
	// Unset zone fields fall back to the global tariff.
	if tariff.BaseFare != 30 {
		t.Errorf("expected global base fare 30, got %f", tariff.BaseFare)
	}

	outside := &domain.GeoPoint{Lat: 21.0, Lng: -99.50}
	tariff, zoneName, err = fares.ResolveTariff(context.Background(), outside)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zoneName != "" {
		t.Errorf("expected no zone outside the radius, got %q", zoneName)
	}
	if tariff.PerKm != 8 {
		t.Errorf("expected global per-km 8, got %f", tariff.PerKm)
	}
}

func TestResolveTariff_DefaultsWhenUnconfigured(t *testing.T) {
	fares := service.NewFareService(NewMockTariffRepository(), nil, 30)

	tariff, _, err := fares.ResolveTariff(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tariff.BaseFare != 30 || tariff.PerKm != 8 || tariff.PerMin != 2 {
		t.Errorf("expected launch defaults 30/8/2, got %f/%f/%f", tariff.BaseFare, tariff.PerKm, tariff.PerMin)
	}
}

func TestETAMinutes_RuralAverageSpeed(t *testing.T) {
	fares := service.NewFareService(NewMockTariffRepository(), nil, 30)

	// 15 km at 30 km/h is half an hour.
	if got := fares.ETAMinutes(15); got != 30 {
		t.Errorf("expected 30 minutes, got %f", got)
	}
}

func TestCancellationFee_OnlyAfterWindow(t *testing.T) {
	tariff := standardTariff()
	tariff.CancelAfterMin = 5
	tariff.CancelFee = 20

	if fee := service.CancellationFee(tariff, 3*time.Minute); fee != 0 {
		t.Errorf("expected no fee inside the window, got %f", fee)
	}
	if fee := service.CancellationFee(tariff, 8*time.Minute); fee != 20 {
		t.Errorf("expected fee 20 past the window, got %f", fee)
	}
}
