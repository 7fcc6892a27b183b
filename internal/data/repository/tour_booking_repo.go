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

type TourBookingRepository interface {
	BookingSource
	FindByID(ctx context.Context, id uuid.UUID) (*entity.TourBooking, error)
}

type tourBookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTourBookingRepository(db database.PgxIface, log *zap.Logger) TourBookingRepository {
	return &tourBookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "tour_booking")),
	}
}

func (r *tourBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.TourBooking, error) {
	query := `
		SELECT id, user_id, tour_id, participants, unit_price, total_price, payment_status, created_at, updated_at
		FROM tour_bookings
		WHERE id = $1 AND deleted_at IS NULL
	`

	var booking entity.TourBooking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.TourID,
		&booking.Participants,
		&booking.UnitPrice,
		&booking.TotalPrice,
		&booking.PaymentStatus,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find tour booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find tour booking by ID %s: %w", id.String(), err)
	}

	return &booking, nil
}

func (r *tourBookingRepository) PaymentView(ctx context.Context, id uuid.UUID) (*entity.BookingSnapshot, error) {
	booking, err := r.FindByID(ctx, id)
	if err != nil || booking == nil {
		return nil, err
	}

	return &entity.BookingSnapshot{
		Ref:     entity.BookingRef{Kind: entity.BookingKindTour, ID: booking.ID},
		OwnerID: booking.UserID,
		Amount:  booking.PayableAmount(),
		Paid:    booking.PaymentStatus == entity.BookingPaymentPaid,
	}, nil
}

func (r *tourBookingRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE tour_bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, entity.BookingPaymentPaid)
	if err != nil {
		r.log.Error("Failed to mark tour booking paid",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("mark tour booking %s paid: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tour booking %s: %w", id.String(), ErrNotFound)
	}

	return nil
}
