package service

import (
	"context"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/geo"
	"taxirural/internal/repository"
)

// FilterPending returns the subset of pending rides a driver should
// see given their location and search radius.
//
// Rural connectivity rules err toward visibility: a driver with no
// known location receives every pending ride, and a ride whose origin
// is unknown is always included since it cannot be geofenced.
func FilterPending(driverLoc *domain.GeoPoint, radiusKm float64, rides []*domain.Ride) []*domain.Ride {
	if driverLoc == nil {
		return rides
	}

	filtered := make([]*domain.Ride, 0, len(rides))
	for _, ride := range rides {
		if ride.Origin == nil {
			filtered = append(filtered, ride)
			continue
		}
		if geo.DistanceKm(*driverLoc, *ride.Origin) <= radiusKm {
			filtered = append(filtered, ride)
		}
	}
	return filtered
}

// MatchingService produces each driver's view of the pending-ride
// feed. There is no central assignment: every driver filters the feed
// locally and the first successful accept wins at the store.
type MatchingService struct {
	rideRepo        repository.RideRepository
	driverRepo      repository.DriverRepository
	defaultRadiusKm float64
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	defaultRadiusKm float64,
) *MatchingService {
	return &MatchingService{
		rideRepo:        rideRepo,
		driverRepo:      driverRepo,
		defaultRadiusKm: defaultRadiusKm,
	}
}

// PendingRidesFor returns the pending rides within the driver's search
// radius. No priority ordering is imposed; acceptance order is
// arbitrated by the store, not by feed position.
func (s *MatchingService) PendingRidesFor(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}

	pending, err := s.rideRepo.GetPending(ctx)
	if err != nil {
		return nil, err
	}

	// Scheduled rides stay out of the feed until their time comes.
	now := time.Now()
	due := pending[:0]
	for _, ride := range pending {
		if ride.DueNow(now) {
			due = append(due, ride)
		}
	}

	radius := driver.SearchRadiusKm
	if radius <= 0 {
		radius = s.defaultRadiusKm
	}

	return FilterPending(driver.Location, radius, due), nil
}
