package repository

import (
	"context"
	"time"

	"taxirural/internal/domain"
)

// RideRepository defines the persistence operations for rides.
//
// All state-changing methods are conditional updates: they succeed
// only when the ride is in the expected prior state, returning
// ErrConflict otherwise. This gives accept its at-most-one-writer-wins
// semantics without any cross-process lock.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetAll retrieves recent rides, newest first.
	GetAll(ctx context.Context) ([]*domain.Ride, error)

	// GetPending retrieves all rides in state pendiente.
	GetPending(ctx context.Context) ([]*domain.Ride, error)

	// GetActiveByDriverID retrieves the driver's ride in aceptado or
	// en_curso, or nil when the driver has none.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error)

	// GetFinishedInPeriod retrieves a driver's finalizado rides whose
	// finalizedAt falls within [start, end].
	GetFinishedInPeriod(ctx context.Context, driverID string, start, end time.Time) ([]*domain.Ride, error)

	// Accept transitions pendiente -> aceptado, assigning the driver
	// and seeding the ride with the driver's last known location.
	Accept(ctx context.Context, rideID, driverID string, driverLoc *domain.GeoPoint) error

	// Start transitions aceptado -> en_curso for the assigned driver.
	Start(ctx context.Context, rideID, driverID string, startedAt time.Time) error

	// Finish transitions en_curso -> finalizado for the assigned
	// driver, recording the driver-entered final fare.
	Finish(ctx context.Context, rideID, driverID string, finalFare float64, finalizedAt time.Time) error

	// Cancel transitions any of {pendiente, aceptado, en_curso} ->
	// cancelado.
	Cancel(ctx context.Context, rideID string, cancelledAt time.Time) error

	// MarkPaymentDue transitions finalizado -> pago_pendiente. Only
	// the payment boundary calls this.
	MarkPaymentDue(ctx context.Context, rideID, reason string) error

	// UpdateDriverLocation writes the driver's position onto an
	// active ride. Best effort; callers tolerate failure.
	UpdateDriverLocation(ctx context.Context, rideID string, loc domain.GeoPoint) error
}
