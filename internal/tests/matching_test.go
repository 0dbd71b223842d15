package tests

import (
	"context"
	"testing"

	"taxirural/internal/domain"
	"taxirural/internal/service"
)

func TestFilterPending_WithinRadius(t *testing.T) {
	driverLoc := &domain.GeoPoint{Lat: 19.90, Lng: -99.50}
	rides := []*domain.Ride{
		{ID: "near", Origin: &domain.GeoPoint{Lat: 19.91, Lng: -99.50}},  // ~1.1 km
		{ID: "far", Origin: &domain.GeoPoint{Lat: 20.20, Lng: -99.50}},   // ~33 km
		{ID: "edge", Origin: &domain.GeoPoint{Lat: 19.935, Lng: -99.50}}, // ~3.9 km
	}

	filtered := service.FilterPending(driverLoc, 5, rides)

	if len(filtered) != 2 {
		t.Fatalf("expected 2 rides within 5 km, got %d", len(filtered))
	}
	for _, r := range filtered {
		if r.ID == "far" {
			t.Error("far ride should have been filtered out")
		}
	}
}

func TestFilterPending_NilRideOriginAlwaysIncluded(t *testing.T) {
	driverLoc := &domain.GeoPoint{Lat: 19.90, Lng: -99.50}
	rides := []*domain.Ride{
		{ID: "no-origin"}, // passenger without GPS fix
		{ID: "far", Origin: &domain.GeoPoint{Lat: 25.0, Lng: -100.0}},
	}

	filtered := service.FilterPending(driverLoc, 5, rides)

	if len(filtered) != 1 || filtered[0].ID != "no-origin" {
		t.Fatalf("expected only the origin-less ride, got %d rides", len(filtered))
	}
}

func TestFilterPending_NilDriverLocationSeesAll(t *testing.T) {
	rides := []*domain.Ride{
		{ID: "a", Origin: &domain.GeoPoint{Lat: 19.91, Lng: -99.50}},
		{ID: "b", Origin: &domain.GeoPoint{Lat: 25.0, Lng: -100.0}},
	}

	filtered := service.FilterPending(nil, 5, rides)

	if len(filtered) != len(rides) {
		t.Fatalf("expected all %d rides for a driver with no location, got %d", len(rides), len(filtered))
	}
}

func TestPendingRidesFor_UsesDriverRadius(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()

	near := pendingRide("near")
	near.Origin = &domain.GeoPoint{Lat: 19.91, Lng: -99.50}
	far := pendingRide("far")
	far.Origin = &domain.GeoPoint{Lat: 20.00, Lng: -99.50} // ~11 km
	accepted := pendingRide("accepted")
	accepted.Status = domain.RideStatusAccepted
	rideRepo.AddRide(near)
	rideRepo.AddRide(far)
	rideRepo.AddRide(accepted)

	driver := verifiedDriver("driver-1")
	driver.Location = &domain.GeoPoint{Lat: 19.90, Lng: -99.50}
	driver.SearchRadiusKm = 5
	driverRepo.AddDriver(driver)

	matching := service.NewMatchingService(rideRepo, driverRepo, 5)
	rides, err := matching.PendingRidesFor(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rides) != 1 || rides[0].ID != "near" {
		t.Fatalf("expected only the near pendiente ride, got %d rides", len(rides))
	}
}

func TestPendingRidesFor_WiderRadiusSeesMore(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()

	far := pendingRide("far")
	far.Origin = &domain.GeoPoint{Lat: 20.00, Lng: -99.50} // ~11 km
	rideRepo.AddRide(far)

	driver := verifiedDriver("driver-1")
	driver.Location = &domain.GeoPoint{Lat: 19.90, Lng: -99.50}
	driver.SearchRadiusKm = 20
	driverRepo.AddDriver(driver)

	matching := service.NewMatchingService(rideRepo, driverRepo, 5)
	rides, err := matching.PendingRidesFor(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rides) != 1 {
		t.Fatalf("expected the far ride inside a 20 km radius, got %d rides", len(rides))
	}
}
