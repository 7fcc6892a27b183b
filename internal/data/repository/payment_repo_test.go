package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newPayment() *entity.Payment {
	now := time.Now()
	return &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Booking:      entity.BookingRef{Kind: entity.BookingKindHotel, ID: uuid.New()},
		Amount:       2500000,
		Method:       entity.PaymentMethodSePay,
		Status:       entity.PaymentStatusPending,
		Processor: entity.ProcessorInfo{
			TransactionID: "PAY-20240725140237-ABCDEF12",
			QRCodeURL:     "https://qr.sepay.vn/img",
			Reference:     "SEVQR HTL1ABCDE1234",
		},
		CreatedBy: uuid.New(),
	}
}

func TestPaymentRepositoryCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		db.ExpectExec("INSERT INTO payments").
			WithArgs(anyArgs(17)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		assert.NoError(t, repo.Create(ctx, newPayment()))
		assert.NoError(t, db.ExpectationsWereMet())
	})

	t.Run("second pending payment for a booking", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		db.ExpectExec("INSERT INTO payments").
			WithArgs(anyArgs(17)...).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_one_pending_per_booking"})

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		err = repo.Create(ctx, newPayment())
		assert.ErrorIs(t, err, repository.ErrDuplicatePending)
	})

	t.Run("other failures pass through", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		db.ExpectExec("INSERT INTO payments").
			WithArgs(anyArgs(17)...).
			WillReturnError(errors.New("connection reset"))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		err = repo.Create(ctx, newPayment())
		require.Error(t, err)
		assert.NotErrorIs(t, err, repository.ErrDuplicatePending)
	})
}

func TestPaymentRepositoryFind(t *testing.T) {
	ctx := context.Background()

	t.Run("missing payment is nil without error", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		db.ExpectQuery(`FROM payments WHERE id = \$1`).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		payment, err := repo.FindByID(ctx, id)
		assert.NoError(t, err)
		assert.Nil(t, payment)
	})

	t.Run("reference lookup uses the normalized form", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		db.ExpectQuery(`UPPER\(REPLACE\(reference`).
			WithArgs("SEVQRHTL1ABCDE1234").
			WillReturnError(pgx.ErrNoRows)

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		payment, err := repo.FindByReference(ctx, "SEVQRHTL1ABCDE1234")
		assert.NoError(t, err)
		assert.Nil(t, payment)
		assert.NoError(t, db.ExpectationsWereMet())
	})
}

func TestPaymentRepositoryConditionalUpdates(t *testing.T) {
	ctx := context.Background()

	t.Run("complete applies when status still matches", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		payment := newPayment()
		require.NoError(t, payment.MarkCompleted(time.Now()))

		db.ExpectExec("UPDATE payments").
			WithArgs(anyArgs(9)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		ok, err := repo.Complete(ctx, payment, entity.PaymentStatusPending)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("complete reports a lost race", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		payment := newPayment()
		require.NoError(t, payment.MarkCompleted(time.Now()))

		db.ExpectExec("UPDATE payments").
			WithArgs(anyArgs(9)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		ok, err := repo.Complete(ctx, payment, entity.PaymentStatusPending)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("status update reports a lost race", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		payment := newPayment()
		payment.Status = entity.PaymentStatusFailed

		db.ExpectExec("UPDATE payments").
			WithArgs(anyArgs(5)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		ok, err := repo.UpdateStatus(ctx, payment, entity.PaymentStatusPending)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("webhook record appends to the note of a pending row", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		raw := []byte(`{"id":1}`)
		db.ExpectExec(`(?s)note \|\| E'\\n' \|\| \$3.*WHERE id = \$1 AND status = \$5`).
			WithArgs(id, raw, "amount mismatch", pgxmock.AnyArg(), entity.PaymentStatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		ok, err := repo.RecordWebhook(ctx, id, entity.PaymentStatusPending, raw, "amount mismatch")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, db.ExpectationsWereMet())
	})

	t.Run("webhook record reports a lost race", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		db.ExpectExec("UPDATE payments").
			WithArgs(anyArgs(5)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		ok, err := repo.RecordWebhook(ctx, uuid.New(), entity.PaymentStatusPending, []byte(`{}`), "amount mismatch")
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPaymentRepositoryDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		db.ExpectExec("DELETE FROM payments").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		assert.NoError(t, repo.Delete(ctx, id))
	})

	t.Run("missing", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		db.ExpectExec("DELETE FROM payments").WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))

		repo := repository.NewPaymentRepository(db, zap.NewNop())
		assert.ErrorIs(t, repo.Delete(ctx, id), repository.ErrNotFound)
	})
}

func TestBookingSources(t *testing.T) {
	ctx := context.Background()

	t.Run("every kind has a source", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		repo := repository.NewRepository(db, zap.NewNop())
		for _, kind := range []entity.BookingKind{
			entity.BookingKindGeneric,
			entity.BookingKindTour,
			entity.BookingKindHotel,
			entity.BookingKindFlight,
		} {
			_, ok := repo.Bookings.For(kind)
			assert.True(t, ok, kind)
		}
	})

	t.Run("flight is flagged through is_paid", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		db.ExpectExec("UPDATE flight_bookings SET is_paid = TRUE").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		source := repository.NewFlightBookingRepository(db, zap.NewNop())
		assert.NoError(t, source.MarkPaid(ctx, id))
		assert.NoError(t, db.ExpectationsWereMet())
	})

	t.Run("missing booking is nil without error", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		db.ExpectQuery("FROM tour_bookings").WithArgs(id).WillReturnError(pgx.ErrNoRows)

		source := repository.NewTourBookingRepository(db, zap.NewNop())
		snapshot, err := source.PaymentView(ctx, id)
		assert.NoError(t, err)
		assert.Nil(t, snapshot)
	})

	t.Run("mark paid on a missing booking", func(t *testing.T) {
		db, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.New()
		db.ExpectExec("UPDATE hotel_bookings").WithArgs(id, entity.BookingPaymentPaid).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		source := repository.NewHotelBookingRepository(db, zap.NewNop())
		assert.ErrorIs(t, source.MarkPaid(ctx, id), repository.ErrNotFound)
	})
}
