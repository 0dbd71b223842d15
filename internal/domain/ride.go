package domain

import "time"

// RideStatus represents the current lifecycle state of a ride.
// The Spanish state names are the wire values used across the whole
// system (store, events, API) and match what riders and drivers see.
type RideStatus string

const (
	RideStatusPending    RideStatus = "pendiente"
	RideStatusAccepted   RideStatus = "aceptado"
	RideStatusInProgress RideStatus = "en_curso"
	RideStatusFinished   RideStatus = "finalizado"
	RideStatusCancelled  RideStatus = "cancelado"
	// RideStatusPaymentDue is a side branch entered by the payment
	// boundary when a charge against a finished ride fails. Ride
	// progress logic never produces it.
	RideStatusPaymentDue RideStatus = "pago_pendiente"
)

// IsTerminal reports whether no further ride-progress transition is
// allowed from the given status.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusFinished || s == RideStatusCancelled || s == RideStatusPaymentDue
}

// RideType distinguishes immediate requests from scheduled ones.
type RideType string

const (
	RideTypeImmediate RideType = "inmediato"
	RideTypeScheduled RideType = "programado"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// FareEstimate is the display band computed at ride creation.
type FareEstimate struct {
	Min   float64
	Max   float64
	Exact float64
}

// Ride represents a single passenger transport request from creation
// to terminal state.
//
// Field ownership is partitioned by writer: the passenger creates the
// ride and may cancel it, the assigned driver advances the state and
// writes DriverLocation and FinalFare, and nothing else mutates a ride
// except the payment boundary (pago_pendiente).
type Ride struct {
	ID              string
	PassengerID     string
	DriverID        string // empty until matched
	Status          RideStatus
	Origin          *GeoPoint // nil when the passenger could not be located
	Destination     *GeoPoint // optional for some flows
	DestinationText string
	DriverLocation  *GeoPoint // latest known position of the assigned driver
	Type            RideType
	ScheduledAt     time.Time // zero for immediate rides
	Estimate        *FareEstimate
	FinalFare       float64 // set only at finalizado, driver-entered
	Currency        string
	PaymentDueCode  string // reason the ride entered pago_pendiente
	CreatedAt       time.Time
	StartedAt       time.Time
	FinalizedAt     time.Time
	CancelledAt     time.Time
}

// DueNow reports whether the ride should appear in the dispatch feed:
// immediate rides always, scheduled rides once their time has come.
func (r *Ride) DueNow(now time.Time) bool {
	if r.ScheduledAt.IsZero() {
		return true
	}
	return !r.ScheduledAt.After(now)
}
