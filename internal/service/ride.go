package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"taxirural/internal/domain"
	"taxirural/internal/geo"
	"taxirural/internal/repository"
)

// RideService handles the passenger-owned ride operations: creation
// and cancellation, plus reads.
type RideService struct {
	rideRepo   repository.RideRepository
	driverRepo repository.DriverRepository
	fares      *FareService
	dispatcher Dispatcher
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	fares *FareService,
	dispatcher Dispatcher,
) *RideService {
	return &RideService{
		rideRepo:   rideRepo,
		driverRepo: driverRepo,
		fares:      fares,
		dispatcher: dispatcher,
	}
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	PassengerID     string
	Origin          *domain.GeoPoint // nil when the passenger could not be located
	Destination     *domain.GeoPoint
	DestinationText string
	ScheduledAt     time.Time // zero for an immediate ride
}

// CreateRide validates the request, computes the fare estimate when a
// route is known, persists the ride in pendiente and announces it on
// the feed.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	rideType := domain.RideTypeImmediate
	if !req.ScheduledAt.IsZero() {
		if req.ScheduledAt.Before(now) {
			return nil, ErrInvalidScheduleTime
		}
		rideType = domain.RideTypeScheduled
	}

	ride := &domain.Ride{
		ID:              uuid.New().String(),
		PassengerID:     req.PassengerID,
		Status:          domain.RideStatusPending,
		Origin:          req.Origin,
		Destination:     req.Destination,
		DestinationText: req.DestinationText,
		Type:            rideType,
		ScheduledAt:     req.ScheduledAt,
		Currency:        "MXN",
		CreatedAt:       now,
	}

	// The estimate needs a route; rides created without a located
	// origin are priced by the driver at the end only.
	if req.Origin != nil && req.Destination != nil {
		estimate, err := s.fares.EstimateForRoute(ctx, *req.Origin, *req.Destination, now)
		if err == nil {
			ride.Estimate = &estimate
		}
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.RideCreated(ctx, ride)
	}

	return ride, nil
}

// GetRide retrieves a ride by ID.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}

// GetAllRides retrieves recent rides.
func (s *RideService) GetAllRides(ctx context.Context) ([]*domain.Ride, error) {
	return s.rideRepo.GetAll(ctx)
}

// CancelRideResult contains the outcome of a cancellation.
type CancelRideResult struct {
	Ride      *domain.Ride
	CancelFee float64
}

// CancelRide cancels a ride from any non-terminal state. The
// cancellation is unconditional and immediate; no driver handshake is
// required. An assigned driver is released back to available.
func (s *RideService) CancelRide(ctx context.Context, rideID string) (*CancelRideResult, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	before, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.rideRepo.Cancel(ctx, rideID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrTerminalState
		}
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	// Release the assigned driver, if any. Best effort: the driver
	// client also observes the cancelado event and re-opens itself.
	if ride.DriverID != "" {
		_ = s.driverRepo.SetAvailability(ctx, ride.DriverID, true, now)
	}

	var fee float64
	if before.Status != domain.RideStatusPending {
		tariff, _, tariffErr := s.fares.ResolveTariff(ctx, ride.Origin)
		if tariffErr == nil {
			fee = CancellationFee(tariff, now.Sub(ride.CreatedAt))
		}
	}

	if s.dispatcher != nil {
		s.dispatcher.RideStatusChanged(ctx, ride, before.Status)
	}

	return &CancelRideResult{Ride: ride, CancelFee: fee}, nil
}

func (s *RideService) validateCreateRequest(req CreateRideRequest) error {
	if req.PassengerID == "" {
		return ErrInvalidPassengerID
	}

	if req.Origin != nil {
		if !geo.ValidLatitude(req.Origin.Lat) || !geo.ValidLongitude(req.Origin.Lng) {
			return ErrInvalidOrigin
		}
	}

	if req.Destination == nil && req.DestinationText == "" {
		return ErrMissingDestination
	}

	if req.Destination != nil {
		if !geo.ValidLatitude(req.Destination.Lat) || !geo.ValidLongitude(req.Destination.Lng) {
			return ErrInvalidDestination
		}
	}

	return nil
}
