package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/service"
)

func finishedRide(id, driverID string, fare float64, finalizedAt time.Time) *domain.Ride {
	return &domain.Ride{
		ID:          id,
		PassengerID: "passenger-1",
		DriverID:    driverID,
		Status:      domain.RideStatusFinished,
		FinalFare:   fare,
		Currency:    "MXN",
		FinalizedAt: finalizedAt,
	}
}

func newBillingServiceForTest(
	driverRepo *MockDriverRepository,
	rideRepo *MockRideRepository,
	tariffRepo *MockTariffRepository,
	lockStore *MockLockStore,
) *service.BillingService {
	return service.NewBillingService(driverRepo, rideRepo, tariffRepo, lockStore, nil)
}

func TestPeriodFor_MondayThroughSunday(t *testing.T) {
	// Wednesday 2026-08-26.
	at, err := time.Parse(time.RFC3339, "2026-08-26T15:00:00-06:00")
	if err != nil {
		t.Fatal(err)
	}

	period := domain.PeriodFor(at)

	if period.Start.Weekday() != time.Monday {
		t.Errorf("expected period to start on Monday, got %s", period.Start.Weekday())
	}
	if period.Start.Format("2006-01-02 15:04:05") != "2026-08-24 00:00:00" {
		t.Errorf("unexpected period start %s", period.Start)
	}
	if period.End.Format("2006-01-02 15:04:05") != "2026-08-30 23:59:59" {
		t.Errorf("unexpected period end %s", period.End)
	}

	// A run time already on Monday keeps the same week.
	monday := domain.PeriodFor(period.Start.Add(time.Hour))
	if !monday.Start.Equal(period.Start) {
		t.Errorf("expected same period for a Monday run, got start %s", monday.Start)
	}
}

func TestBillingRun_AggregatesAndBlocks(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	tariffRepo := NewMockTariffRepository()
	_ = tariffRepo.SaveBilling(context.Background(), domain.BillingSettings{WeeklyPercent: 10})

	at := time.Now()
	period := domain.PeriodFor(at)

	driver := verifiedDriver("driver-1")
	driverRepo.AddDriver(driver)
	rideRepo.AddRide(finishedRide("ride-1", "driver-1", 150, period.Start.Add(24*time.Hour)))
	rideRepo.AddRide(finishedRide("ride-2", "driver-1", 250, period.Start.Add(48*time.Hour)))
	// Outside the period, must not count.
	rideRepo.AddRide(finishedRide("ride-old", "driver-1", 999, period.Start.Add(-time.Hour)))
	// Cancelled rides never count.
	cancelled := finishedRide("ride-x", "driver-1", 500, period.Start.Add(24*time.Hour))
	cancelled.Status = domain.RideStatusCancelled
	rideRepo.AddRide(cancelled)

	billing := newBillingServiceForTest(driverRepo, rideRepo, tariffRepo, NewMockLockStore())
	summary, err := billing.Run(context.Background(), at)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.DriversBilled != 1 {
		t.Errorf("expected 1 driver billed, got %d", summary.DriversBilled)
	}

	billed := driverRepo.GetDriver("driver-1")
	if billed.WeeklyTotal != 400 {
		t.Errorf("expected weekly total 400, got %f", billed.WeeklyTotal)
	}
	if billed.WeeklyFee != 40 {
		t.Errorf("expected weekly fee 40, got %f", billed.WeeklyFee)
	}
	if !billed.PaymentBlocked {
		t.Error("expected driver payment-blocked after the run")
	}
	if billed.Available {
		t.Error("expected driver forced unavailable after the run")
	}
	if billed.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment status pendiente, got %s", billed.PaymentStatus)
	}
}

func TestBillingRun_ZeroRidesStillBlocks(t *testing.T) {
	// The block is unconditional: a driver with no rides owes nothing
	// but is still held until the admin confirms.
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(verifiedDriver("driver-idle"))

	billing := newBillingServiceForTest(driverRepo, rideRepo, NewMockTariffRepository(), NewMockLockStore())
	if _, err := billing.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	idle := driverRepo.GetDriver("driver-idle")
	if idle.WeeklyTotal != 0 || idle.WeeklyFee != 0 {
		t.Errorf("expected zero totals, got total=%f fee=%f", idle.WeeklyTotal, idle.WeeklyFee)
	}
	if !idle.PaymentBlocked {
		t.Error("expected zero-ride driver still payment-blocked")
	}
}

func TestBillingRun_DefaultPercentWhenUnset(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(verifiedDriver("driver-1"))
	period := domain.PeriodFor(time.Now())
	rideRepo.AddRide(finishedRide("ride-1", "driver-1", 200, period.Start.Add(time.Hour)))

	billing := newBillingServiceForTest(driverRepo, rideRepo, NewMockTariffRepository(), NewMockLockStore())
	summary, err := billing.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.WeeklyPercent != 10 {
		t.Errorf("expected default 10 percent, got %f", summary.WeeklyPercent)
	}
	if got := driverRepo.GetDriver("driver-1").WeeklyFee; got != 20 {
		t.Errorf("expected fee 20, got %f", got)
	}
}

func TestBillingRun_LockPreventsConcurrentRun(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	lockStore := NewMockLockStore()
	lockStore.ForceAcquireFailure = true

	billing := newBillingServiceForTest(driverRepo, NewMockRideRepository(), NewMockTariffRepository(), lockStore)
	_, err := billing.Run(context.Background(), time.Now())
	if !errors.Is(err, service.ErrBillingRunInProgress) {
		t.Errorf("expected ErrBillingRunInProgress, got %v", err)
	}
}

func TestBillingRun_ReleasesLock(t *testing.T) {
	lockStore := NewMockLockStore()
	billing := newBillingServiceForTest(NewMockDriverRepository(), NewMockRideRepository(), NewMockTariffRepository(), lockStore)

	if _, err := billing.Run(context.Background(), time.Now()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	periodKey := domain.PeriodFor(time.Now()).Start.Format("2006-01-02")
	if lockStore.IsLocked(periodKey) {
		t.Error("expected billing lock released after the run")
	}
	if lockStore.ReleaseCallCount != 1 {
		t.Errorf("expected 1 release call, got %d", lockStore.ReleaseCallCount)
	}
}

func TestBillingRun_SkipsFailingDriver(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	driverRepo.AddDriver(verifiedDriver("driver-ok"))
	driverRepo.AddDriver(verifiedDriver("driver-bad"))
	driverRepo.FailBillingFor = "driver-bad"

	billing := newBillingServiceForTest(driverRepo, rideRepo, NewMockTariffRepository(), NewMockLockStore())
	summary, err := billing.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.DriversBilled != 1 || summary.DriversFailed != 1 {
		t.Errorf("expected 1 billed and 1 failed, got billed=%d failed=%d", summary.DriversBilled, summary.DriversFailed)
	}
	if !driverRepo.GetDriver("driver-ok").PaymentBlocked {
		t.Error("expected healthy driver still billed")
	}
}

func TestConfirmPayment_LiftsBlock(t *testing.T) {
	driverRepo := NewMockDriverRepository()
	driver := verifiedDriver("driver-1")
	driver.PaymentBlocked = true
	driver.PendingBalance = 40
	driver.PaymentStatus = domain.PaymentStatusPending
	driverRepo.AddDriver(driver)

	billing := newBillingServiceForTest(driverRepo, NewMockRideRepository(), NewMockTariffRepository(), NewMockLockStore())
	cleared, err := billing.ConfirmPayment(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	if cleared.PaymentBlocked {
		t.Error("expected payment block lifted")
	}
	if cleared.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected pagado, got %s", cleared.PaymentStatus)
	}
	if cleared.PendingBalance != 0 {
		t.Errorf("expected balance zeroed, got %f", cleared.PendingBalance)
	}
}

func TestUpdateSettings_ValidatesPercent(t *testing.T) {
	billing := newBillingServiceForTest(NewMockDriverRepository(), NewMockRideRepository(), NewMockTariffRepository(), NewMockLockStore())

	for _, percent := range []float64{-1, 101} {
		if _, err := billing.UpdateSettings(context.Background(), percent); !errors.Is(err, service.ErrInvalidPercent) {
			t.Errorf("expected ErrInvalidPercent for %f, got %v", percent, err)
		}
	}

	settings, err := billing.UpdateSettings(context.Background(), 12.5)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if settings.WeeklyPercent != 12.5 {
		t.Errorf("expected 12.5, got %f", settings.WeeklyPercent)
	}
}
