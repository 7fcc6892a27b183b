package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingKind discriminates which booking table a payment belongs to.
type BookingKind string

const (
	BookingKindGeneric BookingKind = "generic"
	BookingKindTour    BookingKind = "tour"
	BookingKindHotel   BookingKind = "hotel"
	BookingKindFlight  BookingKind = "flight"
)

var bookingKindCodes = map[BookingKind]string{
	BookingKindGeneric: "BKG",
	BookingKindTour:    "TUR",
	BookingKindHotel:   "HTL",
	BookingKindFlight:  "FLT",
}

func ParseBookingKind(value string) (BookingKind, error) {
	kind := BookingKind(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := bookingKindCodes[kind]; !ok {
		return "", fmt.Errorf("invalid booking type %q", value)
	}
	return kind, nil
}

// Code is the three-letter tag used in transfer references.
func (k BookingKind) Code() string {
	return bookingKindCodes[k]
}

// BookingRef points at one booking of one kind.
type BookingRef struct {
	Kind BookingKind `db:"booking_kind"`
	ID   uuid.UUID   `db:"booking_id"`
}

func (r BookingRef) String() string {
	return string(r.Kind) + ":" + r.ID.String()
}

// BookingSnapshot is what the payment core reads from any booking kind.
type BookingSnapshot struct {
	Ref     BookingRef
	OwnerID uuid.UUID
	Amount  int64
	Paid    bool
}

type BookingPaymentStatus string

const (
	BookingPaymentUnpaid BookingPaymentStatus = "unpaid"
	BookingPaymentPaid   BookingPaymentStatus = "paid"
)

// Booking is the generic booking record.
type Booking struct {
	Base
	UserID        uuid.UUID            `db:"user_id"`
	TotalPrice    int64                `db:"total_price"`
	PaymentStatus BookingPaymentStatus `db:"payment_status"`
}

type TourBooking struct {
	Base
	UserID        uuid.UUID            `db:"user_id"`
	TourID        uuid.UUID            `db:"tour_id"`
	Participants  int                  `db:"participants"`
	UnitPrice     int64                `db:"unit_price"`
	TotalPrice    int64                `db:"total_price"`
	PaymentStatus BookingPaymentStatus `db:"payment_status"`
}

// PayableAmount prefers the stored total and falls back to price per participant.
func (b *TourBooking) PayableAmount() int64 {
	if b.TotalPrice > 0 {
		return b.TotalPrice
	}
	return b.UnitPrice * int64(b.Participants)
}

type HotelBooking struct {
	Base
	UserID        uuid.UUID            `db:"user_id"`
	HotelID       uuid.UUID            `db:"hotel_id"`
	CheckIn       time.Time            `db:"check_in"`
	CheckOut      time.Time            `db:"check_out"`
	TotalPrice    int64                `db:"total_price"`
	PaymentStatus BookingPaymentStatus `db:"payment_status"`
}

type FlightBooking struct {
	Base
	UserID     uuid.UUID `db:"user_id"`
	FlightID   uuid.UUID `db:"flight_id"`
	Passengers int       `db:"passengers"`
	Price      int64     `db:"price"`
	IsPaid     bool      `db:"is_paid"`
}

func (b *FlightBooking) PayableAmount() int64 {
	passengers := b.Passengers
	if passengers < 1 {
		passengers = 1
	}
	return b.Price * int64(passengers)
}
