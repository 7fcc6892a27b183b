package usecase

import (
	"errors"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/sepay"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("payment changed concurrently")

	// ErrProcessorUnreachable is recoverable; the caller should retry later.
	ErrProcessorUnreachable = sepay.ErrProcessorUnreachable
	ErrInvalidTransition    = entity.ErrInvalidTransition

	ErrSignatureInvalid = errors.New("invalid webhook signature")

	// Webhook warnings. These are reported back to the processor as a successful delivery.
	ErrAmountMismatch   = errors.New("transfer amount does not match payment")
	ErrReferenceMissing = errors.New("no payment reference in transfer")
	ErrPaymentUnmatched = errors.New("no payment matches transfer reference")
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)
