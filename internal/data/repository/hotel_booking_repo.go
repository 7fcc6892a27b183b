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

type HotelBookingRepository interface {
	BookingSource
	FindByID(ctx context.Context, id uuid.UUID) (*entity.HotelBooking, error)
}

type hotelBookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewHotelBookingRepository(db database.PgxIface, log *zap.Logger) HotelBookingRepository {
	return &hotelBookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "hotel_booking")),
	}
}

func (r *hotelBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.HotelBooking, error) {
	query := `
		SELECT id, user_id, hotel_id, check_in, check_out, total_price, payment_status, created_at, updated_at
		FROM hotel_bookings
		WHERE id = $1 AND deleted_at IS NULL
	`

	var booking entity.HotelBooking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.HotelID,
		&booking.CheckIn,
		&booking.CheckOut,
		&booking.TotalPrice,
		&booking.PaymentStatus,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find hotel booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find hotel booking by ID %s: %w", id.String(), err)
	}

	return &booking, nil
}

func (r *hotelBookingRepository) PaymentView(ctx context.Context, id uuid.UUID) (*entity.BookingSnapshot, error) {
	booking, err := r.FindByID(ctx, id)
	if err != nil || booking == nil {
		return nil, err
	}

	return &entity.BookingSnapshot{
		Ref:     entity.BookingRef{Kind: entity.BookingKindHotel, ID: booking.ID},
		OwnerID: booking.UserID,
		Amount:  booking.TotalPrice,
		Paid:    booking.PaymentStatus == entity.BookingPaymentPaid,
	}, nil
}

func (r *hotelBookingRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE hotel_bookings SET payment_status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, entity.BookingPaymentPaid)
	if err != nil {
		r.log.Error("Failed to mark hotel booking paid",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("mark hotel booking %s paid: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("hotel booking %s: %w", id.String(), ErrNotFound)
	}

	return nil
}
