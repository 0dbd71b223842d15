package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxirural/internal/config"
	"taxirural/internal/domain"
	"taxirural/internal/service"
)

func dispatchConfigForTest() config.DispatchConfig {
	return config.DispatchConfig{
		GracePeriod:           72 * time.Hour,
		DefaultSearchRadiusKm: 5,
		AvgSpeedKmh:           30,
	}
}

func newDriverServiceForTest(driverRepo *MockDriverRepository, rideRepo *MockRideRepository) *service.DriverService {
	return service.NewDriverService(driverRepo, rideRepo, nil, nil, nil, dispatchConfigForTest())
}

func pendingRide(id string) *domain.Ride {
	return &domain.Ride{
		ID:          id,
		PassengerID: "passenger-1",
		Status:      domain.RideStatusPending,
		Origin:      &domain.GeoPoint{Lat: 19.9, Lng: -99.5},
		Destination: &domain.GeoPoint{Lat: 19.95, Lng: -99.55},
		Currency:    "MXN",
		CreatedAt:   time.Now(),
	}
}

func verifiedDriver(id string) *domain.Driver {
	return &domain.Driver{
		ID:             id,
		Name:           "Don Chema",
		Available:      true,
		SearchRadiusKm: 5,
		Verified:       true,
		CreatedAt:      time.Now().Add(-30 * 24 * time.Hour),
	}
}

func TestLifecycle_FullHappyPath(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	rideRepo.AddRide(pendingRide("ride-1"))
	driverRepo.AddDriver(verifiedDriver("driver-1"))
	driverService := newDriverServiceForTest(driverRepo, rideRepo)

	ride, err := driverService.AcceptRide(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if ride.Status != domain.RideStatusAccepted || ride.DriverID != "driver-1" {
		t.Fatalf("expected aceptado for driver-1, got status=%s driver=%s", ride.Status, ride.DriverID)
	}

	ride, err = driverService.StartRide(context.Background(), "ride-1", "driver-1")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if ride.Status != domain.RideStatusInProgress {
		t.Fatalf("expected en_curso, got %s", ride.Status)
	}

	ride, err = driverService.FinishRide(context.Background(), "ride-1", "driver-1", 185.50)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if ride.Status != domain.RideStatusFinished {
		t.Errorf("expected finalizado, got %s", ride.Status)
	}
	if ride.FinalFare != 185.50 {
		t.Errorf("expected final fare 185.50, got %f", ride.FinalFare)
	}
	if ride.FinalizedAt.IsZero() {
		t.Error("expected finalizedAt to be set")
	}
}

func TestLifecycle_StartRequiresAccepted(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	rideRepo.AddRide(pendingRide("ride-1"))
	driverRepo.AddDriver(verifiedDriver("driver-1"))
	driverService := newDriverServiceForTest(driverRepo, rideRepo)

	_, err := driverService.StartRide(context.Background(), "ride-1", "driver-1")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition starting a pendiente ride, got %v", err)
	}
}

func TestLifecycle_StartByWrongDriver(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	rideRepo.AddRide(pendingRide("ride-1"))
	driverRepo.AddDriver(verifiedDriver("driver-1"))
	driverRepo.AddDriver(verifiedDriver("driver-2"))
	driverService := newDriverServiceForTest(driverRepo, rideRepo)

	if _, err := driverService.AcceptRide(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err := driverService.StartRide(context.Background(), "ride-1", "driver-2")
	if !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Errorf("expected ErrNotAssignedDriver, got %v", err)
	}
}

func TestLifecycle_FinishValidatesAmount(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	rideRepo.AddRide(pendingRide("ride-1"))
	driverRepo.AddDriver(verifiedDriver("driver-1"))
	driverService := newDriverServiceForTest(driverRepo, rideRepo)

	if _, err := driverService.AcceptRide(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if _, err := driverService.StartRide(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for _, fare := range []float64{0, -5} {
		if _, err := driverService.FinishRide(context.Background(), "ride-1", "driver-1", fare); !errors.Is(err, service.ErrInvalidFare) {
			t.Errorf("expected ErrInvalidFare for fare=%f, got %v", fare, err)
		}
	}

	// A rejected finish leaves the ride where it was.
	ride := rideRepo.GetRide("ride-1")
	if ride.Status != domain.RideStatusInProgress {
		t.Errorf("expected ride still en_curso, got %s", ride.Status)
	}
	if ride.FinalFare != 0 {
		t.Errorf("expected no final fare recorded, got %f", ride.FinalFare)
	}
}

func TestLifecycle_TerminalStatesRejectTransitions(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(verifiedDriver("driver-1"))
	driverService := newDriverServiceForTest(driverRepo, rideRepo)

	for _, status := range []domain.RideStatus{
		domain.RideStatusFinished,
		domain.RideStatusCancelled,
		domain.RideStatusPaymentDue,
	} {
		ride := pendingRide("ride-" + string(status))
		ride.Status = status
		ride.DriverID = "driver-1"
		rideRepo.AddRide(ride)

		if _, err := driverService.AcceptRide(context.Background(), ride.ID, "driver-1"); !errors.Is(err, service.ErrTerminalState) {
			t.Errorf("accept on %s: expected ErrTerminalState, got %v", status, err)
		}
		if _, err := driverService.StartRide(context.Background(), ride.ID, "driver-1"); !errors.Is(err, service.ErrTerminalState) {
			t.Errorf("start on %s: expected ErrTerminalState, got %v", status, err)
		}
		if _, err := driverService.FinishRide(context.Background(), ride.ID, "driver-1", 100); !errors.Is(err, service.ErrTerminalState) {
			t.Errorf("finish on %s: expected ErrTerminalState, got %v", status, err)
		}
	}
}

func TestLifecycle_CancelFromAnyActiveState(t *testing.T) {
	for _, status := range []domain.RideStatus{
		domain.RideStatusPending,
		domain.RideStatusAccepted,
		domain.RideStatusInProgress,
	} {
		rideRepo := NewMockRideRepository()
		driverRepo := NewMockDriverRepository()
		ride := pendingRide("ride-1")
		ride.Status = status
		if status != domain.RideStatusPending {
			ride.DriverID = "driver-1"
			driver := verifiedDriver("driver-1")
			driver.Available = false
			driverRepo.AddDriver(driver)
		}
		rideRepo.AddRide(ride)
		rideService := newRideServiceForTest(rideRepo, driverRepo, nil)

		result, err := rideService.CancelRide(context.Background(), "ride-1")
		if err != nil {
			t.Fatalf("cancel from %s failed: %v", status, err)
		}
		if result.Ride.Status != domain.RideStatusCancelled {
			t.Errorf("expected cancelado, got %s", result.Ride.Status)
		}

		// Cancellation releases the assigned driver.
		if status != domain.RideStatusPending {
			if driver := driverRepo.GetDriver("driver-1"); !driver.Available {
				t.Errorf("cancel from %s: expected driver released to available", status)
			}
		}
	}
}

func TestLifecycle_CancelTerminalRide(t *testing.T) {
	rideRepo := NewMockRideRepository()
	ride := pendingRide("ride-1")
	ride.Status = domain.RideStatusFinished
	rideRepo.AddRide(ride)
	rideService := newRideServiceForTest(rideRepo, NewMockDriverRepository(), nil)

	_, err := rideService.CancelRide(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrTerminalState) {
		t.Errorf("expected ErrTerminalState, got %v", err)
	}
}

func TestLifecycle_AcceptFlipsDriverUnavailable(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	rideRepo.AddRide(pendingRide("ride-1"))
	driverRepo.AddDriver(verifiedDriver("driver-1"))
	driverService := newDriverServiceForTest(driverRepo, rideRepo)

	if _, err := driverService.AcceptRide(context.Background(), "ride-1", "driver-1"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if driverRepo.GetDriver("driver-1").Available {
		t.Error("expected driver unavailable after accept")
	}
}
