package service

import "errors"

// Validation errors: rejected synchronously, state unchanged, caller
// corrects and retries.
var (
	// ErrInvalidPassengerID is returned when the passenger ID is empty.
	ErrInvalidPassengerID = errors.New("invalid passenger id")

	// ErrInvalidRideID is returned when the ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidDriverID is returned when the driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidOrigin is returned when origin coordinates are out of range.
	ErrInvalidOrigin = errors.New("invalid origin coordinates")

	// ErrInvalidDestination is returned when destination coordinates are out of range.
	ErrInvalidDestination = errors.New("invalid destination coordinates")

	// ErrMissingDestination is returned when a ride request carries no destination.
	ErrMissingDestination = errors.New("missing destination")

	// ErrInvalidScheduleTime is returned when a scheduled ride's time is in the past.
	ErrInvalidScheduleTime = errors.New("scheduled time must be in the future")

	// ErrInvalidFare is returned when the driver-entered final amount
	// is zero, negative or not a finite number.
	ErrInvalidFare = errors.New("final fare must be a positive amount")

	// ErrInvalidRadius is returned when a search radius is zero or negative.
	ErrInvalidRadius = errors.New("search radius must be positive")

	// ErrInvalidPercent is returned when the weekly percent is out of [0, 100].
	ErrInvalidPercent = errors.New("weekly percent must be between 0 and 100")
)

// Conflict errors: not retried automatically; the caller must re-fetch
// and re-decide.
var (
	// ErrRideTaken is returned to the losing side of an accept race.
	ErrRideTaken = errors.New("ride already taken")

	// ErrTerminalState is returned when a transition is attempted on a
	// finalizado or cancelado ride.
	ErrTerminalState = errors.New("ride is in a terminal state")

	// ErrInvalidTransition is returned when the ride exists but is not
	// in the state the transition requires.
	ErrInvalidTransition = errors.New("ride not in required state")

	// ErrNotAssignedDriver is returned when a driver attempts a
	// transition on a ride assigned to someone else.
	ErrNotAssignedDriver = errors.New("driver not assigned to this ride")
)

// Eligibility errors: the driver is blocked from the requested action
// with a specific reason code; state unchanged.
var (
	// ErrDriverNotVerified means the driver is unverified and the
	// post-registration grace window has elapsed.
	ErrDriverNotVerified = errors.New("driver not verified")

	// ErrDriverPaymentBlocked means the weekly commission is unpaid.
	ErrDriverPaymentBlocked = errors.New("driver blocked for pending payment")

	// ErrDriverSuspended means an admin suspended the account.
	ErrDriverSuspended = errors.New("driver suspended")
)

// Transient errors: retried on the next tick (location) or surfaced
// with a retry affordance (ride-critical writes).
var (
	// ErrLocationUnavailable is returned when a best-effort location
	// write could not reach the store. Non-fatal; the next periodic
	// report retries.
	ErrLocationUnavailable = errors.New("location update failed, will retry")

	// ErrBillingRunInProgress is returned when another instance holds
	// the aggregation lock for the same period.
	ErrBillingRunInProgress = errors.New("billing run already in progress")
)
