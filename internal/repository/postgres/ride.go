package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
//
// Every transition is an UPDATE guarded by the expected prior state;
// a concurrent writer that lost the race sees zero rows updated and
// gets repository.ErrConflict. PostgreSQL's per-row atomicity is what
// arbitrates the accept race.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, passenger_id, driver_id, status, origin_lat, origin_lng,
	destination_lat, destination_lng, destination_text, driver_lat, driver_lng,
	ride_type, scheduled_at, estimate_min, estimate_max, estimate_exact,
	final_fare, currency, payment_due_code, created_at, started_at, finalized_at, cancelled_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	originLat, originLng := nullPoint(ride.Origin)
	destLat, destLng := nullPoint(ride.Destination)
	driverLat, driverLng := nullPoint(ride.DriverLocation)

	var estMin, estMax, estExact sql.NullFloat64
	if ride.Estimate != nil {
		estMin = sql.NullFloat64{Float64: ride.Estimate.Min, Valid: true}
		estMax = sql.NullFloat64{Float64: ride.Estimate.Max, Valid: true}
		estExact = sql.NullFloat64{Float64: ride.Estimate.Exact, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.PassengerID,
		nullString(ride.DriverID),
		ride.Status,
		originLat, originLng,
		destLat, destLng,
		nullString(ride.DestinationText),
		driverLat, driverLng,
		ride.Type,
		nullTime(ride.ScheduledAt),
		estMin, estMax, estExact,
		nullFloat(ride.FinalFare),
		ride.Currency,
		nullString(ride.PaymentDueCode),
		ride.CreatedAt,
		nullTime(ride.StartedAt),
		nullTime(ride.FinalizedAt),
		nullTime(ride.CancelledAt),
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetAll retrieves recent rides, newest first.
func (r *RideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides ORDER BY created_at DESC LIMIT 100`
	return r.queryRides(ctx, query)
}

// GetPending retrieves all rides in state pendiente.
func (r *RideRepository) GetPending(ctx context.Context) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE status = $1 ORDER BY created_at ASC`
	return r.queryRides(ctx, query, domain.RideStatusPending)
}

// GetActiveByDriverID retrieves the driver's ride in aceptado or en_curso.
func (r *RideRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 AND status IN ($2, $3)
		ORDER BY created_at ASC LIMIT 1
	`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, driverID,
		domain.RideStatusAccepted, domain.RideStatusInProgress))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ride, nil
}

// GetFinishedInPeriod retrieves a driver's finalizado rides within the window.
func (r *RideRepository) GetFinishedInPeriod(ctx context.Context, driverID string, start, end time.Time) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 AND status = $2 AND finalized_at >= $3 AND finalized_at <= $4
		ORDER BY finalized_at ASC
	`
	return r.queryRides(ctx, query, driverID, domain.RideStatusFinished, start, end)
}

// Accept transitions pendiente -> aceptado. The status predicate makes
// the write a compare-and-swap: the second concurrent accept updates
// zero rows.
func (r *RideRepository) Accept(ctx context.Context, rideID, driverID string, driverLoc *domain.GeoPoint) error {
	query := `
		UPDATE rides
		SET status = $1, driver_id = $2, driver_lat = $3, driver_lng = $4
		WHERE id = $5 AND status = $6
	`

	lat, lng := nullPoint(driverLoc)
	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusAccepted, driverID, lat, lng,
		rideID, domain.RideStatusPending,
	)
	if err != nil {
		return err
	}
	return r.conditionalOutcome(ctx, result, rideID)
}

// Start transitions aceptado -> en_curso for the assigned driver.
func (r *RideRepository) Start(ctx context.Context, rideID, driverID string, startedAt time.Time) error {
	query := `
		UPDATE rides
		SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4 AND driver_id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusInProgress, startedAt,
		rideID, domain.RideStatusAccepted, driverID,
	)
	if err != nil {
		return err
	}
	return r.conditionalOutcome(ctx, result, rideID)
}

// Finish transitions en_curso -> finalizado with the final fare.
func (r *RideRepository) Finish(ctx context.Context, rideID, driverID string, finalFare float64, finalizedAt time.Time) error {
	query := `
		UPDATE rides
		SET status = $1, final_fare = $2, finalized_at = $3
		WHERE id = $4 AND status = $5 AND driver_id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusFinished, finalFare, finalizedAt,
		rideID, domain.RideStatusInProgress, driverID,
	)
	if err != nil {
		return err
	}
	return r.conditionalOutcome(ctx, result, rideID)
}

// Cancel transitions any non-terminal state -> cancelado.
func (r *RideRepository) Cancel(ctx context.Context, rideID string, cancelledAt time.Time) error {
	query := `
		UPDATE rides
		SET status = $1, cancelled_at = $2
		WHERE id = $3 AND status IN ($4, $5, $6)
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusCancelled, cancelledAt, rideID,
		domain.RideStatusPending, domain.RideStatusAccepted, domain.RideStatusInProgress,
	)
	if err != nil {
		return err
	}
	return r.conditionalOutcome(ctx, result, rideID)
}

// MarkPaymentDue transitions finalizado -> pago_pendiente.
func (r *RideRepository) MarkPaymentDue(ctx context.Context, rideID, reason string) error {
	query := `
		UPDATE rides
		SET status = $1, payment_due_code = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.RideStatusPaymentDue, reason,
		rideID, domain.RideStatusFinished,
	)
	if err != nil {
		return err
	}
	return r.conditionalOutcome(ctx, result, rideID)
}

// UpdateDriverLocation writes the driver position onto an active ride.
func (r *RideRepository) UpdateDriverLocation(ctx context.Context, rideID string, loc domain.GeoPoint) error {
	query := `
		UPDATE rides
		SET driver_lat = $1, driver_lng = $2
		WHERE id = $3 AND status IN ($4, $5)
	`

	_, err := r.q.ExecContext(ctx, query,
		loc.Lat, loc.Lng, rideID,
		domain.RideStatusAccepted, domain.RideStatusInProgress,
	)
	return err
}

// conditionalOutcome maps a zero-row UPDATE to ErrConflict when the
// ride exists and ErrNotFound when it does not.
func (r *RideRepository) conditionalOutcome(ctx context.Context, result sql.Result, rideID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected > 0 {
		return nil
	}

	var one int
	err = r.q.QueryRowContext(ctx, `SELECT 1 FROM rides WHERE id = $1`, rideID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	return repository.ErrConflict
}

func (r *RideRepository) queryRides(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, destText, paymentDueCode sql.NullString
	var originLat, originLng, destLat, destLng, driverLat, driverLng sql.NullFloat64
	var estMin, estMax, estExact, finalFare sql.NullFloat64
	var scheduledAt, startedAt, finalizedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.PassengerID,
		&driverID,
		&ride.Status,
		&originLat, &originLng,
		&destLat, &destLng,
		&destText,
		&driverLat, &driverLng,
		&ride.Type,
		&scheduledAt,
		&estMin, &estMax, &estExact,
		&finalFare,
		&ride.Currency,
		&paymentDueCode,
		&ride.CreatedAt,
		&startedAt, &finalizedAt, &cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.DestinationText = destText.String
	ride.PaymentDueCode = paymentDueCode.String
	ride.Origin = pointFrom(originLat, originLng)
	ride.Destination = pointFrom(destLat, destLng)
	ride.DriverLocation = pointFrom(driverLat, driverLng)
	if estExact.Valid {
		ride.Estimate = &domain.FareEstimate{
			Min:   estMin.Float64,
			Max:   estMax.Float64,
			Exact: estExact.Float64,
		}
	}
	ride.FinalFare = finalFare.Float64
	if scheduledAt.Valid {
		ride.ScheduledAt = scheduledAt.Time
	}
	if startedAt.Valid {
		ride.StartedAt = startedAt.Time
	}
	if finalizedAt.Valid {
		ride.FinalizedAt = finalizedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}

func nullPoint(p *domain.GeoPoint) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true},
		sql.NullFloat64{Float64: p.Lng, Valid: true}
}

func pointFrom(lat, lng sql.NullFloat64) *domain.GeoPoint {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullFloat(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
