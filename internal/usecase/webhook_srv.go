package usecase

import (
	"context"
	"errors"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/pkg/sepay"

	"go.uber.org/zap"
)

// Webhook outcomes. Everything except a bad signature or a store failure is acknowledged
// to the processor so it stops retrying.
const (
	WebhookCompleted        = "completed"
	WebhookAlreadyCompleted = "already_completed"
	WebhookAmountMismatch   = "amount_mismatch"
	WebhookNoReference      = "no_reference"
	WebhookUnmatched        = "unmatched"
	WebhookIgnored          = "ignored"
	WebhookMalformed        = "malformed"
)

type WebhookResult struct {
	Outcome   string
	PaymentID string
	// Warning is set when the delivery was acknowledged without completing a payment.
	Warning error
}

type WebhookService interface {
	HandleSePay(ctx context.Context, raw []byte, signature string) (*WebhookResult, error)
	// InjectTest runs a synthetic delivery through the pipeline without a signature.
	InjectTest(ctx context.Context, actor Actor, raw []byte) (*WebhookResult, error)
}

type webhookService struct {
	repo     *repository.Repository
	payments PaymentService
	verifier *sepay.Verifier
	log      *zap.Logger
}

func NewWebhookService(
	repo *repository.Repository,
	payments PaymentService,
	verifier *sepay.Verifier,
	log *zap.Logger,
) WebhookService {
	return &webhookService{
		repo:     repo,
		payments: payments,
		verifier: verifier,
		log:      log.With(zap.String("service", "webhook")),
	}
}

func (s *webhookService) HandleSePay(ctx context.Context, raw []byte, signature string) (*WebhookResult, error) {
	payload, err := sepay.DecodePayload(raw)
	if err != nil {
		s.log.Warn("Malformed SePay webhook", zap.Error(err), zap.Int("size", len(raw)))
		return &WebhookResult{Outcome: WebhookMalformed, Warning: ErrMalformedWebhook}, nil
	}

	// Typed fields are derived after decoding so a loosely typed field never blocks verification.
	event := sepay.EventFromPayload(payload)
	scheme, ok := s.verifier.Verify(payload, signature)
	if !ok {
		s.log.Warn("Rejected SePay webhook with invalid signature",
			zap.Int64("sepay_id", event.ID),
			zap.String("content", event.Content),
			zap.Int64("amount", event.TransferAmount),
			zap.Bool("signature_present", signature != ""),
		)
		return nil, ErrSignatureInvalid
	}
	s.log.Debug("SePay webhook signature verified", zap.String("scheme", scheme), zap.Int64("sepay_id", event.ID))

	return s.process(ctx, event, raw)
}

func (s *webhookService) InjectTest(ctx context.Context, actor Actor, raw []byte) (*WebhookResult, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrForbidden)
	}

	_, event, err := sepay.ParseWebhook(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.log.Info("Injecting test SePay webhook",
		zap.String("admin_id", actor.UserID.String()),
		zap.String("content", event.Content),
	)

	return s.process(ctx, event, raw)
}

func (s *webhookService) process(ctx context.Context, event *sepay.WebhookEvent, raw []byte) (*WebhookResult, error) {
	log := s.log.With(zap.Int64("sepay_id", event.ID))

	if !event.Incoming() {
		log.Info("Ignoring outgoing transfer", zap.String("transfer_type", event.TransferType))
		return &WebhookResult{Outcome: WebhookIgnored}, nil
	}

	reference, ok := event.Reference()
	if !ok {
		log.Warn("No payment reference in transfer; manual follow-up needed",
			zap.String("content", event.Content),
			zap.Int64("amount", event.TransferAmount),
		)
		return &WebhookResult{Outcome: WebhookNoReference, Warning: ErrReferenceMissing}, nil
	}
	log = log.With(zap.String("reference", reference))

	payment, err := s.repo.Payment.FindByReference(ctx, sepay.NormalizeReference(reference))
	if err != nil {
		return nil, fmt.Errorf("find payment by reference: %w", err)
	}
	if payment == nil {
		log.Warn("No payment matches transfer reference", zap.Int64("amount", event.TransferAmount))
		return &WebhookResult{Outcome: WebhookUnmatched, Warning: ErrPaymentUnmatched}, nil
	}

	result := &WebhookResult{PaymentID: payment.ID.String()}

	if payment.Status == entity.PaymentStatusCompleted {
		log.Info("Duplicate delivery for completed payment", zap.String("payment_id", result.PaymentID))
		result.Outcome = WebhookAlreadyCompleted
		return result, nil
	}

	if event.TransferAmount != payment.Amount {
		log.Warn("Transfer amount does not match payment; manual review required",
			zap.String("payment_id", result.PaymentID),
			zap.Int64("expected", payment.Amount),
			zap.Int64("received", event.TransferAmount),
		)

		note := fmt.Sprintf("amount mismatch: expected %d, received %d (sepay id %d); manual review required",
			payment.Amount, event.TransferAmount, event.ID)
		recorded, err := s.repo.Payment.RecordWebhook(ctx, payment.ID, payment.Status, raw, note)
		if err != nil {
			return nil, fmt.Errorf("record mismatched webhook: %w", err)
		}
		if !recorded {
			log.Warn("Payment changed while recording mismatched webhook; delivery not stored",
				zap.String("payment_id", result.PaymentID),
				zap.String("seen_status", string(payment.Status)),
			)
		}

		result.Outcome = WebhookAmountMismatch
		result.Warning = ErrAmountMismatch
		return result, nil
	}

	updated, err := s.payments.ApplyProcessorStatus(ctx, payment, sepay.StatusSuccess, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			log.Error("Webhook matched a payment that cannot complete", zap.Error(err), zap.String("payment_id", result.PaymentID))
			result.Outcome = string(payment.Status)
			result.Warning = err
			return result, nil
		}
		return nil, err
	}

	if updated.Status == entity.PaymentStatusCompleted && updated.Processor.WebhookReceived {
		result.Outcome = WebhookCompleted
	} else {
		result.Outcome = WebhookAlreadyCompleted
	}

	log.Info("SePay webhook processed", zap.String("payment_id", result.PaymentID), zap.String("outcome", result.Outcome))
	return result, nil
}
