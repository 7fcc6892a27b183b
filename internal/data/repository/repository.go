package repository

import (
	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User     UserRepository
	Session  SessionRepository
	Payment  PaymentRepository
	Bookings BookingSources
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:    NewUserRepository(db, log),
		Session: NewSessionRepository(db, log),
		Payment: NewPaymentRepository(db, log),
		Bookings: BookingSources{
			entity.BookingKindGeneric: NewBookingRepository(db, log),
			entity.BookingKindTour:    NewTourBookingRepository(db, log),
			entity.BookingKindHotel:   NewHotelBookingRepository(db, log),
			entity.BookingKindFlight:  NewFlightBookingRepository(db, log),
		},
	}
}
