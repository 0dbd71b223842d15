package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `id, name, phone, lat, lng, available, search_radius_km,
	verified, payment_blocked, suspended, pending_balance, created_at, last_active_at,
	weekly_total, weekly_fee, payment_status, billing_period_start, billing_period_end`

// Create persists a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (` + driverColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	lat, lng := nullPoint(driver.Location)

	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.Phone,
		lat, lng,
		driver.Available,
		driver.SearchRadiusKm,
		driver.Verified,
		driver.PaymentBlocked,
		driver.Suspended,
		driver.PendingBalance,
		driver.CreatedAt,
		nullTime(driver.LastActiveAt),
		driver.WeeklyTotal,
		driver.WeeklyFee,
		nullString(string(driver.PaymentStatus)),
		nullTime(driver.BillingPeriodStart),
		nullTime(driver.BillingPeriodEnd),
	)

	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetAll retrieves all drivers.
func (r *DriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers ORDER BY created_at ASC`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// UpdateProfile updates the driver-owned profile fields.
func (r *DriverRepository) UpdateProfile(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers
		SET name = $1, phone = $2, search_radius_km = $3, last_active_at = $4
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		driver.Name, driver.Phone, driver.SearchRadiusKm, time.Now(), driver.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetAvailability flips the availability flag.
func (r *DriverRepository) SetAvailability(ctx context.Context, id string, available bool, at time.Time) error {
	query := `UPDATE drivers SET available = $1, last_active_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, available, at, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateLocation records the driver's latest position.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id string, loc domain.GeoPoint, at time.Time) error {
	query := `UPDATE drivers SET lat = $1, lng = $2, last_active_at = $3 WHERE id = $4`

	result, err := r.q.ExecContext(ctx, query, loc.Lat, loc.Lng, at, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetVerified is an admin action.
func (r *DriverRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE drivers SET verified = $1 WHERE id = $2`, verified, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SetSuspended is an admin action.
func (r *DriverRepository) SetSuspended(ctx context.Context, id string, suspended bool) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE drivers SET suspended = $1 WHERE id = $2`, suspended, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ClearPaymentBlock lifts the weekly payment block and marks the driver paid.
func (r *DriverRepository) ClearPaymentBlock(ctx context.Context, id string) error {
	query := `
		UPDATE drivers
		SET payment_blocked = FALSE, payment_status = $1, pending_balance = 0
		WHERE id = $2
	`

	result, err := r.q.ExecContext(ctx, query, domain.PaymentStatusPaid, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// WriteBillingResult stores the weekly aggregation outcome. The block
// flag is raised unconditionally and availability is revoked so a
// blocked driver drops out of the dispatch feed immediately.
func (r *DriverRepository) WriteBillingResult(ctx context.Context, id string, result repository.BillingResult) error {
	query := `
		UPDATE drivers
		SET weekly_total = $1, weekly_fee = $2, payment_status = $3,
		    payment_blocked = TRUE, available = FALSE,
		    pending_balance = $4, billing_period_start = $5, billing_period_end = $6
		WHERE id = $7
	`

	res, err := r.q.ExecContext(ctx, query,
		result.WeeklyTotal, result.WeeklyFee, result.PaymentStatus,
		result.WeeklyFee, result.PeriodStart, result.PeriodEnd, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var driver domain.Driver
	var lat, lng sql.NullFloat64
	var paymentStatus sql.NullString
	var lastActiveAt, periodStart, periodEnd sql.NullTime

	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&lat, &lng,
		&driver.Available,
		&driver.SearchRadiusKm,
		&driver.Verified,
		&driver.PaymentBlocked,
		&driver.Suspended,
		&driver.PendingBalance,
		&driver.CreatedAt,
		&lastActiveAt,
		&driver.WeeklyTotal,
		&driver.WeeklyFee,
		&paymentStatus,
		&periodStart, &periodEnd,
	)
	if err != nil {
		return nil, err
	}

	driver.Location = pointFrom(lat, lng)
	driver.PaymentStatus = domain.PaymentStatus(paymentStatus.String)
	if lastActiveAt.Valid {
		driver.LastActiveAt = lastActiveAt.Time
	}
	if periodStart.Valid {
		driver.BillingPeriodStart = periodStart.Time
	}
	if periodEnd.Valid {
		driver.BillingPeriodEnd = periodEnd.Time
	}

	return &driver, nil
}
