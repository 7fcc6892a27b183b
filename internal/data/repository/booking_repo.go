package repository

import (
	"context"
	"errors"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookingRepository reads generic bookings.
type BookingRepository interface {
	BookingSource
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `
		SELECT id, user_id, total_price, payment_status, created_at, updated_at
		FROM bookings
		WHERE id = $1 AND deleted_at IS NULL
	`

	var booking entity.Booking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.TotalPrice,
		&booking.PaymentStatus,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return &booking, nil
}

func (r *bookingRepository) PaymentView(ctx context.Context, id uuid.UUID) (*entity.BookingSnapshot, error) {
	booking, err := r.FindByID(ctx, id)
	if err != nil || booking == nil {
		return nil, err
	}

	return &entity.BookingSnapshot{
		Ref:     entity.BookingRef{Kind: entity.BookingKindGeneric, ID: booking.ID},
		OwnerID: booking.UserID,
		Amount:  booking.TotalPrice,
		Paid:    booking.PaymentStatus == entity.BookingPaymentPaid,
	}, nil
}

func (r *bookingRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, entity.BookingPaymentPaid)
	if err != nil {
		r.log.Error("Failed to mark booking paid",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("mark booking %s paid: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id.String(), ErrNotFound)
	}

	return nil
}
