package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/service"
)

// The dispatcher parameter is the interface, not the mock type, so a
// literal nil stays a nil interface instead of a non-nil interface
// wrapping a nil pointer.
func newRideServiceForTest(rideRepo *MockRideRepository, driverRepo *MockDriverRepository, dispatcher service.Dispatcher) *service.RideService {
	fares := service.NewFareService(NewMockTariffRepository(), nil, 30)
	return service.NewRideService(rideRepo, driverRepo, fares, dispatcher)
}

func TestRideCreation_ValidatesPassengerID(t *testing.T) {
	rideService := newRideServiceForTest(NewMockRideRepository(), NewMockDriverRepository(), nil)

	_, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID: "", // Empty passenger ID.
		Origin:      &domain.GeoPoint{Lat: 19.9, Lng: -99.5},
		Destination: &domain.GeoPoint{Lat: 19.95, Lng: -99.55},
	})

	if !errors.Is(err, service.ErrInvalidPassengerID) {
		t.Errorf("expected ErrInvalidPassengerID, got %v", err)
	}
}

func TestRideCreation_ValidatesOriginCoordinates(t *testing.T) {
	rideService := newRideServiceForTest(NewMockRideRepository(), NewMockDriverRepository(), nil)

	testCases := []struct {
		name   string
		origin domain.GeoPoint
	}{
		{"latitude too low", domain.GeoPoint{Lat: -91.0, Lng: -99.5}},
		{"latitude too high", domain.GeoPoint{Lat: 91.0, Lng: -99.5}},
		{"longitude too low", domain.GeoPoint{Lat: 19.9, Lng: -181.0}},
		{"longitude too high", domain.GeoPoint{Lat: 19.9, Lng: 181.0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
				PassengerID: "passenger-1",
				Origin:      &tc.origin,
				Destination: &domain.GeoPoint{Lat: 19.95, Lng: -99.55},
			})

			if !errors.Is(err, service.ErrInvalidOrigin) {
				t.Errorf("expected ErrInvalidOrigin, got %v", err)
			}
		})
	}
}

func TestRideCreation_RequiresSomeDestination(t *testing.T) {
	rideService := newRideServiceForTest(NewMockRideRepository(), NewMockDriverRepository(), nil)

	_, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID: "passenger-1",
		Origin:      &domain.GeoPoint{Lat: 19.9, Lng: -99.5},
	})

	if !errors.Is(err, service.ErrMissingDestination) {
		t.Errorf("expected ErrMissingDestination, got %v", err)
	}
}

func TestRideCreation_AcceptsTextDestination(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideService := newRideServiceForTest(rideRepo, NewMockDriverRepository(), nil)

	ride, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID:     "passenger-1",
		Origin:          &domain.GeoPoint{Lat: 19.9, Lng: -99.5},
		DestinationText: "la clinica junto al mercado",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusPending {
		t.Errorf("expected status pendiente, got %s", ride.Status)
	}
	if ride.Estimate != nil {
		t.Error("expected no estimate for a text-only destination")
	}
}

func TestRideCreation_AllowsNilOrigin(t *testing.T) {
	// Passengers without GPS fix still get to request a ride.
	rideRepo := NewMockRideRepository()
	rideService := newRideServiceForTest(rideRepo, NewMockDriverRepository(), nil)

	ride, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID:     "passenger-1",
		DestinationText: "el centro de salud",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Origin != nil {
		t.Error("expected nil origin to be preserved")
	}
}

func TestRideCreation_ComputesEstimateForFullRoute(t *testing.T) {
	rideRepo := NewMockRideRepository()
	rideService := newRideServiceForTest(rideRepo, NewMockDriverRepository(), nil)

	ride, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID: "passenger-1",
		Origin:      &domain.GeoPoint{Lat: 19.9, Lng: -99.5},
		Destination: &domain.GeoPoint{Lat: 19.99, Lng: -99.5}, // ~10 km north
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Estimate == nil {
		t.Fatal("expected an estimate for a full route")
	}
	if ride.Estimate.Min >= ride.Estimate.Max {
		t.Errorf("expected min < max, got min=%f max=%f", ride.Estimate.Min, ride.Estimate.Max)
	}
	if ride.Currency != "MXN" {
		t.Errorf("expected currency MXN, got %s", ride.Currency)
	}
}

func TestRideCreation_RejectsPastScheduleTime(t *testing.T) {
	rideService := newRideServiceForTest(NewMockRideRepository(), NewMockDriverRepository(), nil)

	_, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID: "passenger-1",
		Origin:      &domain.GeoPoint{Lat: 19.9, Lng: -99.5},
		Destination: &domain.GeoPoint{Lat: 19.95, Lng: -99.55},
		ScheduledAt: time.Now().Add(-time.Hour),
	})

	if !errors.Is(err, service.ErrInvalidScheduleTime) {
		t.Errorf("expected ErrInvalidScheduleTime, got %v", err)
	}
}

func TestRideCreation_ScheduledRideGetsScheduledType(t *testing.T) {
	rideService := newRideServiceForTest(NewMockRideRepository(), NewMockDriverRepository(), nil)

	ride, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID: "passenger-1",
		Origin:      &domain.GeoPoint{Lat: 19.9, Lng: -99.5},
		Destination: &domain.GeoPoint{Lat: 19.95, Lng: -99.55},
		ScheduledAt: time.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Type != domain.RideTypeScheduled {
		t.Errorf("expected programado, got %s", ride.Type)
	}
}

func TestRideCreation_NoDispatcherConfigured(t *testing.T) {
	// A service wired without a dispatcher must create rides without
	// touching the event path.
	rideRepo := NewMockRideRepository()
	rideService := newRideServiceForTest(rideRepo, NewMockDriverRepository(), nil)

	ride, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID:     "passenger-1",
		DestinationText: "la presidencia municipal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rideRepo.GetRide(ride.ID); got == nil {
		t.Error("expected ride persisted without a dispatcher")
	}
}

func TestRideCreation_EmitsCreatedEvent(t *testing.T) {
	dispatcher := NewMockDispatcher()
	rideService := newRideServiceForTest(NewMockRideRepository(), NewMockDriverRepository(), dispatcher)

	ride, err := rideService.CreateRide(context.Background(), service.CreateRideRequest{
		PassengerID: "passenger-1",
		Origin:      &domain.GeoPoint{Lat: 19.9, Lng: -99.5},
		Destination: &domain.GeoPoint{Lat: 19.95, Lng: -99.55},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dispatcher.EventCount() != 1 {
		t.Fatalf("expected 1 event, got %d", dispatcher.EventCount())
	}
	if dispatcher.Events[0].RideID != ride.ID || dispatcher.Events[0].Kind != "created" {
		t.Errorf("unexpected event: %+v", dispatcher.Events[0])
	}
}
