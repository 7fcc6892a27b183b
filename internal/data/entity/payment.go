package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type PaymentMethod string

// PaymentMethodSePay is the only supported method; the column exists for forward compatibility.
const PaymentMethodSePay PaymentMethod = "sepay_bank_transfer"

var ErrInvalidTransition = errors.New("invalid payment status transition")

// paymentTransitions lists the statuses reachable from each status.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusFailed:    {PaymentStatusCompleted},
	PaymentStatusCompleted: {PaymentStatusRefunded},
	PaymentStatusRefunded:  {},
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition wrapped with both states.
func CheckTransition(from, to PaymentStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

type ProcessorInfo struct {
	TransactionID   string `db:"transaction_id"`
	QRCodeURL       string `db:"qr_code_url"`
	Reference       string `db:"reference"`
	WebhookReceived bool   `db:"webhook_received"`
	WebhookData     []byte `db:"webhook_data"`
}

type Payment struct {
	BaseNoDelete
	Booking     BookingRef
	Amount      int64         `db:"amount"`
	Method      PaymentMethod `db:"method"`
	Status      PaymentStatus `db:"status"`
	Processor   ProcessorInfo
	PaymentDate *time.Time `db:"payment_date"`
	Note        *string    `db:"note"`
	PaidBy      *uuid.UUID `db:"paid_by"`
	CreatedBy   uuid.UUID  `db:"created_by"`
}

// MarkCompleted moves the payment to completed and stamps PaymentDate once.
func (p *Payment) MarkCompleted(now time.Time) error {
	if err := CheckTransition(p.Status, PaymentStatusCompleted); err != nil {
		return err
	}
	p.Status = PaymentStatusCompleted
	if p.PaymentDate == nil {
		p.PaymentDate = &now
	}
	p.UpdatedAt = now
	return nil
}

// AppendNote adds an operator annotation, keeping earlier ones.
func (p *Payment) AppendNote(note string) {
	if note == "" {
		return
	}
	if p.Note == nil || *p.Note == "" {
		p.Note = &note
		return
	}
	joined := *p.Note + "\n" + note
	p.Note = &joined
}
