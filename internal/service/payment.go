package service

import (
	"context"
	"log"

	"taxirural/internal/domain"
	"taxirural/internal/repository"
)

// Payment-failure reason codes stored on pago_pendiente rides.
const (
	PaymentReasonNoMethod   = "sin_metodo_pago"
	PaymentReasonDeclined   = "pago_rechazado"
	PaymentReasonProcessing = "error_procesamiento"
)

// ChargeResult is the provider's answer for a single charge attempt.
type ChargeResult struct {
	Succeeded bool
	// Reason carries one of the PaymentReason* codes when the charge
	// did not go through.
	Reason string
}

// PaymentProvider is the boundary to the external payment processor.
// The engine never retries here; recovery of pago_pendiente rides is a
// collections concern outside the dispatch flow.
type PaymentProvider interface {
	Charge(ctx context.Context, ride *domain.Ride) (ChargeResult, error)
}

// CashProvider models the launch market: every ride is settled in cash
// between passenger and driver, so every charge trivially succeeds.
type CashProvider struct{}

// Charge reports success for any ride.
func (CashProvider) Charge(ctx context.Context, ride *domain.Ride) (ChargeResult, error) {
	return ChargeResult{Succeeded: true}, nil
}

var _ PaymentProvider = CashProvider{}

// PaymentService charges finished rides and demotes the ones whose
// charge fails to pago_pendiente with the provider's reason code.
type PaymentService struct {
	rideRepo repository.RideRepository
	provider PaymentProvider
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(rideRepo repository.RideRepository, provider PaymentProvider) *PaymentService {
	return &PaymentService{rideRepo: rideRepo, provider: provider}
}

// ChargeFinishedRide runs the charge for a finalizado ride. A failed
// or errored charge marks the ride pago_pendiente; the finish itself
// is never unwound.
func (s *PaymentService) ChargeFinishedRide(ctx context.Context, ride *domain.Ride) error {
	if ride.Status != domain.RideStatusFinished {
		return ErrInvalidTransition
	}

	result, err := s.provider.Charge(ctx, ride)
	if err != nil {
		log.Printf("payment provider error: ride=%s err=%v", ride.ID, err)
		return s.markDue(ctx, ride.ID, PaymentReasonProcessing)
	}
	if result.Succeeded {
		return nil
	}

	reason := result.Reason
	if reason == "" {
		reason = PaymentReasonDeclined
	}
	return s.markDue(ctx, ride.ID, reason)
}

func (s *PaymentService) markDue(ctx context.Context, rideID, reason string) error {
	if err := s.rideRepo.MarkPaymentDue(ctx, rideID, reason); err != nil {
		log.Printf("mark payment due failed: ride=%s reason=%s err=%v", rideID, reason, err)
		return err
	}
	return nil
}
