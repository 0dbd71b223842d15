package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"taxirural/internal/domain"
	"taxirural/internal/service"
)

func TestPayment_SuccessLeavesRideFinished(t *testing.T) {
	rideRepo := NewMockRideRepository()
	ride := finishedRide("ride-1", "driver-1", 150, time.Now())
	rideRepo.AddRide(ride)

	payments := service.NewPaymentService(rideRepo, NewMockPaymentProvider())
	if err := payments.ChargeFinishedRide(context.Background(), ride); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := rideRepo.GetRide("ride-1").Status; got != domain.RideStatusFinished {
		t.Errorf("expected finalizado after a successful charge, got %s", got)
	}
}

func TestPayment_DeclineMarksPaymentDue(t *testing.T) {
	rideRepo := NewMockRideRepository()
	ride := finishedRide("ride-1", "driver-1", 150, time.Now())
	rideRepo.AddRide(ride)

	provider := NewMockPaymentProvider()
	provider.ShouldFail = true
	provider.FailReason = service.PaymentReasonDeclined

	payments := service.NewPaymentService(rideRepo, provider)
	if err := payments.ChargeFinishedRide(context.Background(), ride); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := rideRepo.GetRide("ride-1")
	if stored.Status != domain.RideStatusPaymentDue {
		t.Errorf("expected pago_pendiente, got %s", stored.Status)
	}
	if stored.PaymentDueCode != service.PaymentReasonDeclined {
		t.Errorf("expected reason %s, got %s", service.PaymentReasonDeclined, stored.PaymentDueCode)
	}
	// The finish itself is preserved.
	if stored.FinalFare != 150 {
		t.Errorf("expected final fare kept, got %f", stored.FinalFare)
	}
}

func TestPayment_MissingMethodReason(t *testing.T) {
	rideRepo := NewMockRideRepository()
	ride := finishedRide("ride-1", "driver-1", 150, time.Now())
	rideRepo.AddRide(ride)

	provider := NewMockPaymentProvider()
	provider.ShouldFail = true
	provider.FailReason = service.PaymentReasonNoMethod

	payments := service.NewPaymentService(rideRepo, provider)
	_ = payments.ChargeFinishedRide(context.Background(), ride)

	if got := rideRepo.GetRide("ride-1").PaymentDueCode; got != service.PaymentReasonNoMethod {
		t.Errorf("expected %s, got %s", service.PaymentReasonNoMethod, got)
	}
}

func TestPayment_ProviderErrorMarksProcessingFailure(t *testing.T) {
	rideRepo := NewMockRideRepository()
	ride := finishedRide("ride-1", "driver-1", 150, time.Now())
	rideRepo.AddRide(ride)

	provider := NewMockPaymentProvider()
	provider.FailError = ErrMockTimeout

	payments := service.NewPaymentService(rideRepo, provider)
	if err := payments.ChargeFinishedRide(context.Background(), ride); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := rideRepo.GetRide("ride-1")
	if stored.Status != domain.RideStatusPaymentDue {
		t.Errorf("expected pago_pendiente, got %s", stored.Status)
	}
	if stored.PaymentDueCode != service.PaymentReasonProcessing {
		t.Errorf("expected %s, got %s", service.PaymentReasonProcessing, stored.PaymentDueCode)
	}
}

func TestPayment_RejectsNonFinishedRide(t *testing.T) {
	rideRepo := NewMockRideRepository()
	ride := pendingRide("ride-1")
	rideRepo.AddRide(ride)

	payments := service.NewPaymentService(rideRepo, NewMockPaymentProvider())
	if err := payments.ChargeFinishedRide(context.Background(), ride); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPayment_CashProviderAlwaysSucceeds(t *testing.T) {
	result, err := service.CashProvider{}.Charge(context.Background(), finishedRide("ride-1", "driver-1", 80, time.Now()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Succeeded {
		t.Error("expected cash charge to succeed")
	}
}

func TestFinish_FailedChargeEndsInPaymentDue(t *testing.T) {
	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()

	ride := pendingRide("ride-1")
	ride.Status = domain.RideStatusInProgress
	ride.DriverID = "driver-1"
	rideRepo.AddRide(ride)
	driverRepo.AddDriver(verifiedDriver("driver-1"))

	provider := NewMockPaymentProvider()
	provider.ShouldFail = true
	provider.FailReason = service.PaymentReasonDeclined
	payments := service.NewPaymentService(rideRepo, provider)

	driverService := service.NewDriverService(driverRepo, rideRepo, nil, payments, nil, dispatchConfigForTest())
	if _, err := driverService.FinishRide(context.Background(), "ride-1", "driver-1", 150); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	stored := rideRepo.GetRide("ride-1")
	if stored.Status != domain.RideStatusPaymentDue {
		t.Errorf("expected pago_pendiente after failed charge, got %s", stored.Status)
	}
	if stored.FinalFare != 150 {
		t.Errorf("expected final fare preserved, got %f", stored.FinalFare)
	}
}
