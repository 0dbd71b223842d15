package repository

import (
	"context"
	"time"

	"taxirural/internal/domain"
)

// BillingResult is the per-driver outcome of a weekly aggregation run.
type BillingResult struct {
	WeeklyTotal   float64
	WeeklyFee     float64
	PaymentStatus domain.PaymentStatus
	PeriodStart   time.Time
	PeriodEnd     time.Time
}

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create persists a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// UpdateProfile updates the driver-owned profile fields.
	UpdateProfile(ctx context.Context, driver *domain.Driver) error

	// SetAvailability flips the availability flag.
	SetAvailability(ctx context.Context, id string, available bool, at time.Time) error

	// UpdateLocation records the driver's latest position.
	UpdateLocation(ctx context.Context, id string, loc domain.GeoPoint, at time.Time) error

	// SetVerified is an admin action.
	SetVerified(ctx context.Context, id string, verified bool) error

	// SetSuspended is an admin action.
	SetSuspended(ctx context.Context, id string, suspended bool) error

	// ClearPaymentBlock lifts the weekly payment block and marks the
	// driver paid. Admin action.
	ClearPaymentBlock(ctx context.Context, id string) error

	// WriteBillingResult stores the weekly aggregation outcome and
	// raises the payment block. Only the billing aggregator calls it.
	WriteBillingResult(ctx context.Context, id string, result BillingResult) error
}
