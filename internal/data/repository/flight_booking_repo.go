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

// FlightBookingRepository tracks payment with a boolean is_paid column instead of a status.
type FlightBookingRepository interface {
	BookingSource
	FindByID(ctx context.Context, id uuid.UUID) (*entity.FlightBooking, error)
}

type flightBookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewFlightBookingRepository(db database.PgxIface, log *zap.Logger) FlightBookingRepository {
	return &flightBookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "flight_booking")),
	}
}

func (r *flightBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.FlightBooking, error) {
	query := `
		SELECT id, user_id, flight_id, passengers, price, is_paid, created_at, updated_at
		FROM flight_bookings
		WHERE id = $1 AND deleted_at IS NULL
	`

	var booking entity.FlightBooking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.FlightID,
		&booking.Passengers,
		&booking.Price,
		&booking.IsPaid,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find flight booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find flight booking by ID %s: %w", id.String(), err)
	}

	return &booking, nil
}

func (r *flightBookingRepository) PaymentView(ctx context.Context, id uuid.UUID) (*entity.BookingSnapshot, error) {
	booking, err := r.FindByID(ctx, id)
	if err != nil || booking == nil {
		return nil, err
	}

	return &entity.BookingSnapshot{
		Ref:     entity.BookingRef{Kind: entity.BookingKindFlight, ID: booking.ID},
		OwnerID: booking.UserID,
		Amount:  booking.PayableAmount(),
		Paid:    booking.IsPaid,
	}, nil
}

func (r *flightBookingRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE flight_bookings SET is_paid = TRUE, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark flight booking paid",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return fmt.Errorf("mark flight booking %s paid: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("flight booking %s: %w", id.String(), ErrNotFound)
	}

	return nil
}
