package domain

import "time"

// PaymentStatus tracks a driver's standing in the weekly billing cycle.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pendiente"
	PaymentStatusPaid    PaymentStatus = "pagado"
)

// Driver represents a registered taxi driver.
//
// Profile and availability fields are written by the driver, the
// verification and block flags by admins, and the weekly billing
// fields only by the billing aggregator.
type Driver struct {
	ID             string
	Name           string
	Phone          string
	Location       *GeoPoint // nil until the first location report
	Available      bool
	SearchRadiusKm float64
	Verified       bool
	PaymentBlocked bool
	Suspended      bool
	PendingBalance float64
	CreatedAt      time.Time // grace-period anchor
	LastActiveAt   time.Time

	// Weekly billing fields, written by the aggregator.
	WeeklyTotal        float64
	WeeklyFee          float64
	PaymentStatus      PaymentStatus
	BillingPeriodStart time.Time
	BillingPeriodEnd   time.Time
}

// Eligible reports whether the driver may accept rides or go
// available: verified (or still inside the post-registration grace
// window) and neither payment-blocked nor suspended.
func (d *Driver) Eligible(gracePeriod time.Duration, now time.Time) bool {
	if d.PaymentBlocked || d.Suspended {
		return false
	}
	if d.Verified {
		return true
	}
	return now.Sub(d.CreatedAt) < gracePeriod
}
