package service

import (
	"context"
	"errors"
	"log"
	"time"

	"taxirural/internal/config"
	"taxirural/internal/domain"
	"taxirural/internal/redis"
	"taxirural/internal/repository"
)

const (
	defaultWeeklyPercent = 10
	billingLockTTL       = 30 * time.Minute
)

// BillingService runs the weekly per-driver aggregation: it sums each
// driver's finished rides over the Monday-to-Sunday period containing
// the run time, computes the platform fee, and writes the result with
// the payment block raised. Every driver is blocked until an admin
// confirms their payment, including drivers who owe nothing.
type BillingService struct {
	driverRepo repository.DriverRepository
	rideRepo   repository.RideRepository
	tariffRepo repository.TariffRepository
	lockStore  redis.LockStoreInterface
	cacheStore redis.CacheStoreInterface
}

// NewBillingService creates a new BillingService.
func NewBillingService(
	driverRepo repository.DriverRepository,
	rideRepo repository.RideRepository,
	tariffRepo repository.TariffRepository,
	lockStore redis.LockStoreInterface,
	cacheStore redis.CacheStoreInterface,
) *BillingService {
	return &BillingService{
		driverRepo: driverRepo,
		rideRepo:   rideRepo,
		tariffRepo: tariffRepo,
		lockStore:  lockStore,
		cacheStore: cacheStore,
	}
}

// RunSummary reports the outcome of one aggregation run.
type RunSummary struct {
	Period        domain.BillingPeriod
	WeeklyPercent float64
	DriversBilled int
	DriversFailed int
	TotalFees     float64
}

// Run executes the aggregation for the period containing at. A
// distributed lock keyed by the period keeps concurrent instances from
// double-billing; the second caller gets ErrBillingRunInProgress.
// Per-driver failures are logged and skipped so one bad row never
// aborts the run.
func (s *BillingService) Run(ctx context.Context, at time.Time) (*RunSummary, error) {
	period := domain.PeriodFor(at)
	periodKey := period.Start.Format("2006-01-02")

	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquireBillingLock(ctx, periodKey, billingLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrBillingRunInProgress
		}
		defer func() {
			if err := s.lockStore.ReleaseBillingLock(ctx, periodKey); err != nil {
				log.Printf("billing lock release failed: period=%s err=%v", periodKey, err)
			}
		}()
	}

	percent, err := s.weeklyPercent(ctx)
	if err != nil {
		return nil, err
	}

	drivers, err := s.driverRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{Period: period, WeeklyPercent: percent}
	for _, driver := range drivers {
		if err := s.billDriver(ctx, driver, period, percent, summary); err != nil {
			log.Printf("billing driver failed: driver=%s period=%s err=%v", driver.ID, periodKey, err)
			summary.DriversFailed++
		}
	}

	log.Printf("billing run complete: period=%s billed=%d failed=%d fees=%.2f",
		periodKey, summary.DriversBilled, summary.DriversFailed, summary.TotalFees)
	return summary, nil
}

func (s *BillingService) billDriver(
	ctx context.Context,
	driver *domain.Driver,
	period domain.BillingPeriod,
	percent float64,
	summary *RunSummary,
) error {
	rides, err := s.rideRepo.GetFinishedInPeriod(ctx, driver.ID, period.Start, period.End)
	if err != nil {
		return err
	}

	var total float64
	for _, ride := range rides {
		total += ride.FinalFare
	}
	fee := total * percent / 100

	result := repository.BillingResult{
		WeeklyTotal:   total,
		WeeklyFee:     fee,
		PaymentStatus: domain.PaymentStatusPending,
		PeriodStart:   period.Start,
		PeriodEnd:     period.End,
	}
	if err := s.driverRepo.WriteBillingResult(ctx, driver.ID, result); err != nil {
		return err
	}

	summary.DriversBilled++
	summary.TotalFees += fee
	return nil
}

// ConfirmPayment is the admin action that settles a driver's weekly
// fee: lifts the block, marks them pagado and zeroes the balance. The
// driver stays unavailable until they go available again themselves.
func (s *BillingService) ConfirmPayment(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if err := s.driverRepo.ClearPaymentBlock(ctx, driverID); err != nil {
		return nil, err
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// UpdateSettings stores the weekly commission percentage.
func (s *BillingService) UpdateSettings(ctx context.Context, percent float64) (*domain.BillingSettings, error) {
	if percent < 0 || percent > 100 {
		return nil, ErrInvalidPercent
	}

	settings := &domain.BillingSettings{WeeklyPercent: percent, UpdatedAt: time.Now()}
	if err := s.tariffRepo.SaveBilling(ctx, *settings); err != nil {
		return nil, err
	}
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateSettings(ctx)
	}
	return settings, nil
}

// GetSettings returns the current billing settings, falling back to
// the launch default when none have been saved.
func (s *BillingService) GetSettings(ctx context.Context) (*domain.BillingSettings, error) {
	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetBillingSettings(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	settings, err := s.tariffRepo.GetBilling(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.BillingSettings{WeeklyPercent: defaultWeeklyPercent}, nil
		}
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetBillingSettings(ctx, settings)
	}
	return settings, nil
}

func (s *BillingService) weeklyPercent(ctx context.Context) (float64, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	return settings.WeeklyPercent, nil
}

// BillingScheduler fires the aggregation once a week at the configured
// weekday and time.
type BillingScheduler struct {
	billing *BillingService
	cfg     config.BillingConfig
}

// NewBillingScheduler creates a new BillingScheduler.
func NewBillingScheduler(billing *BillingService, cfg config.BillingConfig) *BillingScheduler {
	return &BillingScheduler{billing: billing, cfg: cfg}
}

// Start blocks until ctx is cancelled, running the billing job at each
// scheduled instant. Call it from its own goroutine.
func (s *BillingScheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}

	for {
		next := s.nextRun(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case runAt := <-timer.C:
			if _, err := s.billing.Run(ctx, runAt); err != nil && !errors.Is(err, ErrBillingRunInProgress) {
				log.Printf("scheduled billing run failed: err=%v", err)
			}
		}
	}
}

// nextRun returns the next scheduled instant strictly after now.
func (s *BillingScheduler) nextRun(now time.Time) time.Time {
	hour, min := 23, 59
	if t, err := time.Parse("15:04", s.cfg.RunTime); err == nil {
		hour, min = t.Hour(), t.Minute()
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	daysAhead := (int(s.cfg.RunWeekday) - int(now.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}
