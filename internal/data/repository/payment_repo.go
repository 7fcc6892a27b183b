package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindLatestByBooking(ctx context.Context, ref entity.BookingRef) (*entity.Payment, error)
	ListByBooking(ctx context.Context, ref entity.BookingRef) ([]*entity.Payment, error)
	FindByReference(ctx context.Context, normalizedReference string) (*entity.Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// State changes are conditional on the current status so that racing writers observe
	// each other instead of overwriting. ok is false when the row was no longer in from.
	Complete(ctx context.Context, payment *entity.Payment, from entity.PaymentStatus) (ok bool, err error)
	UpdateStatus(ctx context.Context, payment *entity.Payment, from entity.PaymentStatus) (ok bool, err error)
	// RecordWebhook stores a delivery that did not complete the payment and appends note.
	RecordWebhook(ctx context.Context, id uuid.UUID, from entity.PaymentStatus, webhookData []byte, note string) (ok bool, err error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_kind, booking_id, amount, method, status,
		transaction_id, qr_code_url, reference, webhook_received, webhook_data,
		payment_date, note, paid_by, created_by, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID,
		&p.Booking.Kind,
		&p.Booking.ID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.Processor.TransactionID,
		&p.Processor.QRCodeURL,
		&p.Processor.Reference,
		&p.Processor.WebhookReceived,
		&p.Processor.WebhookData,
		&p.PaymentDate,
		&p.Note,
		&p.PaidBy,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.Booking.Kind,
		payment.Booking.ID,
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.Processor.TransactionID,
		payment.Processor.QRCodeURL,
		payment.Processor.Reference,
		payment.Processor.WebhookReceived,
		payment.Processor.WebhookData,
		payment.PaymentDate,
		payment.Note,
		payment.PaidBy,
		payment.CreatedBy,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		r.log.Warn("Pending payment already exists for booking",
			zap.String("booking", payment.Booking.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.Booking.String(), ErrDuplicatePending)
	}
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking", payment.Booking.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.Booking.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindLatestByBooking(ctx context.Context, ref entity.BookingRef) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_kind = $1 AND booking_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, ref.Kind, ref.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by booking",
			zap.Error(err),
			zap.String("booking", ref.String()),
		)
		return nil, fmt.Errorf("find payment by booking %s: %w", ref.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) ListByBooking(ctx context.Context, ref entity.BookingRef) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_kind = $1 AND booking_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, ref.Kind, ref.ID)
	if err != nil {
		r.log.Error("Failed to list payments by booking",
			zap.Error(err),
			zap.String("booking", ref.String()),
		)
		return nil, fmt.Errorf("list payments by booking %s: %w", ref.String(), err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// FindByReference matches ignoring case and spaces, preferring a pending payment over older ones.
func (r *paymentRepository) FindByReference(ctx context.Context, normalizedReference string) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE UPPER(REPLACE(reference, ' ', '')) = $1
		ORDER BY (status = 'pending') DESC, created_at DESC
		LIMIT 1
	`

	payment, err := scanPayment(r.db.QueryRow(ctx, query, normalizedReference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by reference",
			zap.Error(err),
			zap.String("reference", normalizedReference),
		)
		return nil, fmt.Errorf("find payment by reference %s: %w", normalizedReference, err)
	}

	return payment, nil
}

func (r *paymentRepository) Complete(ctx context.Context, payment *entity.Payment, from entity.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2,
		    payment_date = COALESCE(payment_date, $3),
		    webhook_received = webhook_received OR $4,
		    webhook_data = COALESCE($5, webhook_data),
		    note = $6,
		    paid_by = COALESCE(paid_by, $7),
		    updated_at = $8
		WHERE id = $1 AND status = $9
	`

	result, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.Status,
		payment.PaymentDate,
		payment.Processor.WebhookReceived,
		payment.Processor.WebhookData,
		payment.Note,
		payment.PaidBy,
		payment.UpdatedAt,
		from,
	)
	if err != nil {
		r.log.Error("Failed to complete payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
		)
		return false, fmt.Errorf("complete payment %s: %w", payment.ID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, payment *entity.Payment, from entity.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, note = $3, updated_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.db.Exec(ctx, query, payment.ID, payment.Status, payment.Note, payment.UpdatedAt, from)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return false, fmt.Errorf("update payment %s status to %s: %w", payment.ID.String(), payment.Status, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) RecordWebhook(ctx context.Context, id uuid.UUID, from entity.PaymentStatus, webhookData []byte, note string) (bool, error) {
	query := `
		UPDATE payments
		SET webhook_received = TRUE,
			webhook_data = $2,
			note = CASE WHEN COALESCE(note, '') = '' THEN $3 ELSE note || E'\n' || $3 END,
			updated_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.db.Exec(ctx, query, id, webhookData, note, time.Now(), from)
	if err != nil {
		r.log.Error("Failed to record webhook",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return false, fmt.Errorf("record webhook for payment %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM payments WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete payment",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return fmt.Errorf("delete payment %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s: %w", id.String(), ErrNotFound)
	}

	r.log.Info("Payment deleted", zap.String("payment_id", id.String()))
	return nil
}
