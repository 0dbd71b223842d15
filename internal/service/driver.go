package service

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"taxirural/internal/config"
	"taxirural/internal/domain"
	"taxirural/internal/geo"
	"taxirural/internal/redis"
	"taxirural/internal/repository"
)

// DriverService handles driver registration, availability, periodic
// location reporting and the driver-owned ride transitions.
type DriverService struct {
	driverRepo    repository.DriverRepository
	rideRepo      repository.RideRepository
	locationStore redis.LocationStoreInterface
	payments      *PaymentService
	dispatcher    Dispatcher
	cfg           config.DispatchConfig
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	rideRepo repository.RideRepository,
	locationStore redis.LocationStoreInterface,
	payments *PaymentService,
	dispatcher Dispatcher,
	cfg config.DispatchConfig,
) *DriverService {
	return &DriverService{
		driverRepo:    driverRepo,
		rideRepo:      rideRepo,
		locationStore: locationStore,
		payments:      payments,
		dispatcher:    dispatcher,
		cfg:           cfg,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name           string
	Phone          string
	SearchRadiusKm float64
}

// RegisterDriver creates a driver account. New drivers start
// unavailable and unverified; the grace window opens at CreatedAt.
func (s *DriverService) RegisterDriver(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	radius := req.SearchRadiusKm
	if radius < 0 {
		return nil, ErrInvalidRadius
	}
	if radius == 0 {
		radius = s.cfg.DefaultSearchRadiusKm
	}

	driver := &domain.Driver{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Phone:          req.Phone,
		Available:      false,
		SearchRadiusKm: radius,
		CreatedAt:      time.Now(),
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// GetDriver retrieves a driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// GetAllDrivers retrieves all drivers.
func (s *DriverService) GetAllDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

// SetAvailability flips a driver's availability. Going available is
// guarded by eligibility; going unavailable is always allowed.
func (s *DriverService) SetAvailability(ctx context.Context, driverID string, available bool) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if available {
		if err := s.checkEligibility(driver, now); err != nil {
			// The invariant also runs the other way: an ineligible
			// driver found available is forced off immediately.
			if driver.Available {
				_ = s.driverRepo.SetAvailability(ctx, driverID, false, now)
			}
			return nil, err
		}
	}

	if err := s.driverRepo.SetAvailability(ctx, driverID, available, now); err != nil {
		return nil, err
	}

	if !available && s.locationStore != nil {
		// Off-duty drivers drop out of the proximity index.
		_ = s.locationStore.RemoveLocation(ctx, driverID)
	}

	driver.Available = available
	driver.LastActiveAt = now
	return driver, nil
}

// ReportLocation records a driver's periodic position report. The
// durable driver row is the one write that matters; the geo index and
// the active-ride mirror are best effort and a failure there is
// reported as transient so the next tick retries.
func (s *DriverService) ReportLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return ErrInvalidOrigin
	}

	loc := domain.GeoPoint{Lat: lat, Lng: lng}
	now := time.Now()

	if err := s.driverRepo.UpdateLocation(ctx, driverID, loc, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return ErrLocationUnavailable
	}

	if s.locationStore != nil {
		if err := s.locationStore.UpdateLocation(ctx, driverID, lat, lng); err != nil {
			log.Printf("geo index update failed: driver=%s err=%v", driverID, err)
		}
	}

	// Mirror the position onto the active ride so the passenger's
	// tracking view follows the car.
	active, err := s.rideRepo.GetActiveByDriverID(ctx, driverID)
	if err == nil && active != nil {
		if err := s.rideRepo.UpdateDriverLocation(ctx, active.ID, loc); err != nil {
			log.Printf("ride location mirror failed: ride=%s err=%v", active.ID, err)
		}
	}

	return nil
}

// NearbyDrivers returns the available drivers currently reporting a
// position within radiusKm of the given point, closest first. This is
// the passenger-facing "is anyone around" view; it reads the live geo
// index, so a driver who went off duty has already dropped out.
func (s *DriverService) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return nil, ErrInvalidOrigin
	}
	if radiusKm <= 0 {
		radiusKm = s.cfg.DefaultSearchRadiusKm
	}
	if s.locationStore == nil {
		return nil, ErrLocationUnavailable
	}

	locations, err := s.locationStore.FindNearbyDrivers(ctx, lat, lng, radiusKm)
	if err != nil {
		return nil, ErrLocationUnavailable
	}
	return locations, nil
}

// AcceptRide performs the guarded pendiente -> aceptado transition.
// Multiple drivers may race here; the store arbitrates and the losers
// receive ErrRideTaken with the ride left untouched.
func (s *DriverService) AcceptRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(driver, time.Now()); err != nil {
		return nil, err
	}

	if err := s.rideRepo.Accept(ctx, rideID, driverID, driver.Location); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.conflictReason(ctx, rideID, ErrRideTaken)
		}
		return nil, err
	}

	// The winner goes off the pending feed while on this ride.
	if err := s.driverRepo.SetAvailability(ctx, driverID, false, time.Now()); err != nil {
		log.Printf("post-accept availability flip failed: driver=%s err=%v", driverID, err)
	}
	if s.locationStore != nil {
		_ = s.locationStore.RemoveLocation(ctx, driverID)
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.RideStatusChanged(ctx, ride, domain.RideStatusPending)
	}
	return ride, nil
}

// StartRide performs the aceptado -> en_curso transition for the
// assigned driver.
func (s *DriverService) StartRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if err := s.rideRepo.Start(ctx, rideID, driverID, time.Now()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.transitionConflict(ctx, rideID, driverID, domain.RideStatusAccepted)
		}
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.RideStatusChanged(ctx, ride, domain.RideStatusAccepted)
	}
	return ride, nil
}

// FinishRide performs the en_curso -> finalizado transition with the
// driver-entered final amount. The amount is trusted as entered; it is
// validated for shape (positive, finite) but never reconciled against
// the estimate. Driver availability is not restored automatically; the
// driver re-opens explicitly when ready for the next ride.
func (s *DriverService) FinishRide(ctx context.Context, rideID, driverID string, finalFare float64) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if finalFare <= 0 || math.IsInf(finalFare, 0) || math.IsNaN(finalFare) {
		return nil, ErrInvalidFare
	}

	if err := s.rideRepo.Finish(ctx, rideID, driverID, finalFare, time.Now()); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.transitionConflict(ctx, rideID, driverID, domain.RideStatusInProgress)
		}
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.RideStatusChanged(ctx, ride, domain.RideStatusInProgress)
	}

	// Hand the finished ride to the payment boundary. A failed charge
	// moves the ride to pago_pendiente on its own; it never unwinds
	// the finish.
	if s.payments != nil {
		if err := s.payments.ChargeFinishedRide(ctx, ride); err != nil {
			log.Printf("payment processing failed: ride=%s err=%v", ride.ID, err)
		}
	}

	return ride, nil
}

// SetVerified marks a driver verified or unverified. Admin action.
// Revoking verification past the grace window forces the driver off
// duty, keeping the availability invariant.
func (s *DriverService) SetVerified(ctx context.Context, driverID string, verified bool) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if err := s.driverRepo.SetVerified(ctx, driverID, verified); err != nil {
		return nil, err
	}
	return s.enforceAvailability(ctx, driverID)
}

// SetSuspended suspends or reinstates a driver. Admin action.
func (s *DriverService) SetSuspended(ctx context.Context, driverID string, suspended bool) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if err := s.driverRepo.SetSuspended(ctx, driverID, suspended); err != nil {
		return nil, err
	}
	return s.enforceAvailability(ctx, driverID)
}

// enforceAvailability re-reads the driver after a moderation write and
// forces available=false when the driver is no longer eligible.
func (s *DriverService) enforceAvailability(ctx context.Context, driverID string) (*domain.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	if driver.Available && s.checkEligibility(driver, time.Now()) != nil {
		if err := s.driverRepo.SetAvailability(ctx, driverID, false, time.Now()); err != nil {
			return nil, err
		}
		driver.Available = false
		if s.locationStore != nil {
			_ = s.locationStore.RemoveLocation(ctx, driverID)
		}
	}
	return driver, nil
}

// checkEligibility enforces the driver availability invariant with a
// specific reason per gate.
func (s *DriverService) checkEligibility(driver *domain.Driver, now time.Time) error {
	if driver.Suspended {
		return ErrDriverSuspended
	}
	if driver.PaymentBlocked {
		return ErrDriverPaymentBlocked
	}
	if !driver.Verified && now.Sub(driver.CreatedAt) >= s.cfg.GracePeriod {
		return ErrDriverNotVerified
	}
	return nil
}

// conflictReason distinguishes a terminal-state violation from a lost
// accept race after a conditional update matched nothing.
func (s *DriverService) conflictReason(ctx context.Context, rideID string, fallback error) error {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return fallback
	}
	if ride.Status.IsTerminal() {
		return ErrTerminalState
	}
	return fallback
}

// transitionConflict explains why a guarded transition matched
// nothing: wrong driver, terminal ride, or wrong state.
func (s *DriverService) transitionConflict(ctx context.Context, rideID, driverID string, required domain.RideStatus) error {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return ErrInvalidTransition
	}
	if ride.Status.IsTerminal() {
		return ErrTerminalState
	}
	if ride.Status == required && ride.DriverID != driverID {
		return ErrNotAssignedDriver
	}
	return ErrInvalidTransition
}
