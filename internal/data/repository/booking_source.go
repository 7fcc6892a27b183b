package repository

import (
	"context"

	"travel-booking/internal/data/entity"

	"github.com/google/uuid"
)

// BookingSource is the payment core's view of one booking kind: who owns it, what it costs,
// and how to flag it paid. Each kind stores these under its own column names.
type BookingSource interface {
	PaymentView(ctx context.Context, id uuid.UUID) (*entity.BookingSnapshot, error)
	MarkPaid(ctx context.Context, id uuid.UUID) error
}

// BookingSources maps each booking kind to its collaborator.
type BookingSources map[entity.BookingKind]BookingSource

func (s BookingSources) For(kind entity.BookingKind) (BookingSource, bool) {
	source, ok := s[kind]
	return source, ok
}
