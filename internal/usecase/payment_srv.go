package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/pkg/lock"
	"travel-booking/pkg/sepay"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   entity.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}

// PaymentProcessor looks up a transfer on the processor side.
type PaymentProcessor interface {
	FindTransfer(ctx context.Context, lookup sepay.Lookup) (sepay.Status, *sepay.Transaction, error)
}

// Outcomes reported by CheckStatus.
const (
	CheckOutcomeCompleted   = "completed"
	CheckOutcomePending     = "pending"
	CheckOutcomeFailed      = "failed"
	CheckOutcomeRefunded    = "refunded"
	CheckOutcomeUnreachable = "processor_unreachable"
)

type CheckResult struct {
	Outcome string
	Payment *entity.Payment
}

type PaymentService interface {
	// Customer endpoints
	GetOrCreate(ctx context.Context, actor Actor, kind entity.BookingKind, bookingID string) (*entity.Payment, bool, error)
	Create(ctx context.Context, actor Actor, req *request.CreatePaymentRequest) (*entity.Payment, bool, error)
	GetByID(ctx context.Context, actor Actor, paymentID string) (*entity.Payment, error)
	CheckStatus(ctx context.Context, actor Actor, paymentID string) (*CheckResult, error)

	// Admin endpoints
	ListByBooking(ctx context.Context, actor Actor, kind entity.BookingKind, bookingID string) ([]*entity.Payment, error)
	ForceComplete(ctx context.Context, actor Actor, paymentID, note string) (*entity.Payment, error)
	UpdateStatus(ctx context.Context, actor Actor, paymentID string, req *request.UpdatePaymentStatusRequest) (*entity.Payment, error)
	Delete(ctx context.Context, actor Actor, paymentID string) error

	// ApplyProcessorStatus is shared by the webhook and polling paths.
	ApplyProcessorStatus(ctx context.Context, payment *entity.Payment, status sepay.Status, webhookData []byte) (*entity.Payment, error)
}

type paymentService struct {
	repo      *repository.Repository
	locker    lock.Locker
	processor PaymentProcessor
	config    utils.SePayConfig
	log       *zap.Logger
}

func NewPaymentService(
	repo *repository.Repository,
	locker lock.Locker,
	processor PaymentProcessor,
	config utils.SePayConfig,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		repo:      repo,
		locker:    locker,
		processor: processor,
		config:    config,
		log:       log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) GetOrCreate(ctx context.Context, actor Actor, kind entity.BookingKind, bookingID string) (*entity.Payment, bool, error) {
	bookingUUID, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: invalid booking ID %q", ErrValidation, bookingID)
	}

	booking, err := s.loadBooking(ctx, entity.BookingRef{Kind: kind, ID: bookingUUID})
	if err != nil {
		return nil, false, err
	}

	if !actor.IsAdmin() && booking.OwnerID != actor.UserID {
		s.log.Warn("Payment requested for booking owned by another user",
			zap.String("booking", booking.Ref.String()),
			zap.String("user_id", actor.UserID.String()),
		)
		return nil, false, fmt.Errorf("%w: booking %s belongs to another user", ErrForbidden, booking.Ref.String())
	}

	if booking.Amount <= 0 {
		return nil, false, fmt.Errorf("%w: booking %s has no payable amount", ErrValidation, booking.Ref.String())
	}

	// Serialize check-then-create per booking across instances
	release, err := s.locker.Acquire(ctx, "payment:"+booking.Ref.String())
	if err != nil {
		s.log.Error("Failed to acquire payment lock", zap.Error(err), zap.String("booking", booking.Ref.String()))
		return nil, false, fmt.Errorf("lock booking %s: %w", booking.Ref.String(), err)
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			s.log.Warn("Failed to release payment lock", zap.Error(err), zap.String("booking", booking.Ref.String()))
		}
	}()

	existing, err := s.repo.Payment.FindLatestByBooking(ctx, booking.Ref)
	if err != nil {
		return nil, false, fmt.Errorf("find payment for booking %s: %w", booking.Ref.String(), err)
	}
	if existing != nil {
		return existing, false, nil
	}

	payment := s.newPayment(booking, actor.UserID)

	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		if !errors.Is(err, repository.ErrDuplicatePending) {
			return nil, false, fmt.Errorf("create payment: %w", err)
		}

		// Lost a race the lock did not cover (e.g. lock expiry); the winner's row is the answer
		existing, err := s.repo.Payment.FindLatestByBooking(ctx, booking.Ref)
		if err != nil {
			return nil, false, fmt.Errorf("find payment for booking %s: %w", booking.Ref.String(), err)
		}
		if existing == nil {
			return nil, false, fmt.Errorf("pending payment for booking %s vanished", booking.Ref.String())
		}
		return existing, false, nil
	}

	s.log.Info("Payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking", booking.Ref.String()),
		zap.String("reference", payment.Processor.Reference),
		zap.Int64("amount", payment.Amount),
	)

	return payment, true, nil
}

func (s *paymentService) newPayment(booking *entity.BookingSnapshot, createdBy uuid.UUID) *entity.Payment {
	now := time.Now()
	reference := sepay.BuildTransferReference(booking.Ref.Kind.Code(), booking.Ref.ID.String(), now)

	return &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Booking: booking.Ref,
		Amount:  booking.Amount,
		Method:  entity.PaymentMethodSePay,
		Status:  entity.PaymentStatusPending,
		Processor: entity.ProcessorInfo{
			TransactionID: utils.GenerateTransactionID(now),
			QRCodeURL: sepay.BuildQRCodeURL(
				s.config.QRHost,
				s.config.AccountNumber,
				s.config.BankCode,
				booking.Amount,
				reference,
			),
			Reference: reference,
		},
		CreatedBy: createdBy,
	}
}

func (s *paymentService) Create(ctx context.Context, actor Actor, req *request.CreatePaymentRequest) (*entity.Payment, bool, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create payment validation failed", zap.Any("errors", errs))
		return nil, false, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	kind := entity.BookingKindGeneric
	if req.BookingType != "" {
		parsed, err := entity.ParseBookingKind(req.BookingType)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		kind = parsed
	}

	return s.GetOrCreate(ctx, actor, kind, req.BookingID)
}

func (s *paymentService) GetByID(ctx context.Context, actor Actor, paymentID string) (*entity.Payment, error) {
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actor, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *paymentService) ListByBooking(ctx context.Context, actor Actor, kind entity.BookingKind, bookingID string) ([]*entity.Payment, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrForbidden)
	}

	bookingUUID, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %q", ErrValidation, bookingID)
	}

	payments, err := s.repo.Payment.ListByBooking(ctx, entity.BookingRef{Kind: kind, ID: bookingUUID})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	return payments, nil
}

func (s *paymentService) ApplyProcessorStatus(ctx context.Context, payment *entity.Payment, status sepay.Status, webhookData []byte) (*entity.Payment, error) {
	switch status {
	case sepay.StatusSuccess:
		if payment.Status == entity.PaymentStatusCompleted {
			s.log.Debug("Payment already completed", zap.String("payment_id", payment.ID.String()))
			return payment, nil
		}

		next := *payment
		if err := next.MarkCompleted(time.Now()); err != nil {
			return payment, fmt.Errorf("complete payment %s: %w", payment.ID.String(), err)
		}
		if webhookData != nil {
			next.Processor.WebhookReceived = true
			next.Processor.WebhookData = webhookData
		}
		return s.complete(ctx, payment, &next)

	case sepay.StatusFailed:
		if payment.Status != entity.PaymentStatusPending {
			return payment, nil
		}

		next := *payment
		next.Status = entity.PaymentStatusFailed
		next.UpdatedAt = time.Now()

		ok, err := s.repo.Payment.UpdateStatus(ctx, &next, payment.Status)
		if err != nil {
			return payment, fmt.Errorf("fail payment %s: %w", payment.ID.String(), err)
		}
		if !ok {
			return s.reload(ctx, payment)
		}

		s.log.Info("Payment failed", zap.String("payment_id", payment.ID.String()))
		return &next, nil

	default:
		return payment, nil
	}
}

// complete persists next, which must already be in the completed state, and propagates the
// paid flag to the booking. before is the state the caller read; if the row moved on in the
// meantime the current row is returned and nothing else is touched.
func (s *paymentService) complete(ctx context.Context, before, next *entity.Payment) (*entity.Payment, error) {
	if next.PaidBy == nil {
		paidBy := next.CreatedBy
		next.PaidBy = &paidBy
	}

	ok, err := s.repo.Payment.Complete(ctx, next, before.Status)
	if err != nil {
		return before, fmt.Errorf("complete payment %s: %w", before.ID.String(), err)
	}
	if !ok {
		s.log.Info("Payment changed concurrently; keeping stored state",
			zap.String("payment_id", before.ID.String()),
		)
		return s.reload(ctx, before)
	}

	s.log.Info("Payment completed",
		zap.String("payment_id", next.ID.String()),
		zap.String("booking", next.Booking.String()),
		zap.Int64("amount", next.Amount),
	)

	s.markBookingPaid(ctx, next)
	return next, nil
}

// markBookingPaid never fails the payment: the money has arrived and that is recorded.
func (s *paymentService) markBookingPaid(ctx context.Context, payment *entity.Payment) {
	source, ok := s.repo.Bookings.For(payment.Booking.Kind)
	if !ok {
		s.log.Error("No booking source for payment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_type", string(payment.Booking.Kind)),
		)
		return
	}

	if err := source.MarkPaid(ctx, payment.Booking.ID); err != nil {
		s.log.Error("Failed to mark booking paid; needs reconciliation",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking", payment.Booking.String()),
		)
	}
}

func (s *paymentService) ForceComplete(ctx context.Context, actor Actor, paymentID, note string) (*entity.Payment, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrForbidden)
	}

	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status == entity.PaymentStatusCompleted {
		return payment, nil
	}

	now := time.Now()
	next := *payment
	if err := next.MarkCompleted(now); err != nil {
		return nil, fmt.Errorf("force-complete payment %s: %w", payment.ID.String(), err)
	}
	next.AppendNote(operatorNote("force-completed", actor, now, note))

	s.log.Warn("Payment force-completed by admin",
		zap.String("payment_id", payment.ID.String()),
		zap.String("admin_id", actor.UserID.String()),
		zap.String("previous_status", string(payment.Status)),
	)

	return s.complete(ctx, payment, &next)
}

func (s *paymentService) UpdateStatus(ctx context.Context, actor Actor, paymentID string, req *request.UpdatePaymentStatusRequest) (*entity.Payment, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", ErrForbidden)
	}

	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update payment status validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	target := entity.PaymentStatus(req.Status)
	if payment.Status == target {
		return payment, nil
	}

	now := time.Now()
	next := *payment

	if target == entity.PaymentStatusCompleted {
		if err := next.MarkCompleted(now); err != nil {
			return nil, fmt.Errorf("update payment %s: %w", payment.ID.String(), err)
		}
		next.AppendNote(operatorNote("completed", actor, now, req.Note))
		return s.complete(ctx, payment, &next)
	}

	if err := entity.CheckTransition(payment.Status, target); err != nil {
		return nil, fmt.Errorf("update payment %s: %w", payment.ID.String(), err)
	}
	next.Status = target
	next.UpdatedAt = now
	next.AppendNote(operatorNote(string(target), actor, now, req.Note))

	ok, err := s.repo.Payment.UpdateStatus(ctx, &next, payment.Status)
	if err != nil {
		return nil, fmt.Errorf("update payment %s: %w", payment.ID.String(), err)
	}
	if !ok {
		return nil, fmt.Errorf("update payment %s: %w", payment.ID.String(), ErrConflict)
	}

	s.log.Info("Payment status updated by admin",
		zap.String("payment_id", payment.ID.String()),
		zap.String("admin_id", actor.UserID.String()),
		zap.String("from", string(payment.Status)),
		zap.String("to", string(target)),
	)

	return &next, nil
}

func (s *paymentService) Delete(ctx context.Context, actor Actor, paymentID string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin only", ErrForbidden)
	}

	id, err := uuid.Parse(paymentID)
	if err != nil {
		return fmt.Errorf("%w: invalid payment ID %q", ErrValidation, paymentID)
	}

	if err := s.repo.Payment.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
		}
		return fmt.Errorf("delete payment: %w", err)
	}

	s.log.Warn("Payment deleted by admin",
		zap.String("payment_id", paymentID),
		zap.String("admin_id", actor.UserID.String()),
	)
	return nil
}

func (s *paymentService) CheckStatus(ctx context.Context, actor Actor, paymentID string) (*CheckResult, error) {
	payment, err := s.GetByID(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case entity.PaymentStatusCompleted:
		return &CheckResult{Outcome: CheckOutcomeCompleted, Payment: payment}, nil
	case entity.PaymentStatusFailed:
		return &CheckResult{Outcome: CheckOutcomeFailed, Payment: payment}, nil
	case entity.PaymentStatusRefunded:
		return &CheckResult{Outcome: CheckOutcomeRefunded, Payment: payment}, nil
	}

	status, _, err := s.processor.FindTransfer(ctx, sepay.Lookup{
		Reference: payment.Processor.Reference,
		Amount:    payment.Amount,
	})
	if err != nil {
		if errors.Is(err, ErrProcessorUnreachable) {
			s.log.Warn("Payment processor unreachable", zap.Error(err), zap.String("payment_id", paymentID))
			return &CheckResult{Outcome: CheckOutcomeUnreachable, Payment: payment}, fmt.Errorf("check payment %s: %w", paymentID, err)
		}
		s.log.Error("Payment processor lookup failed", zap.Error(err), zap.String("payment_id", paymentID))
		return nil, fmt.Errorf("check payment %s: %w", paymentID, err)
	}

	switch status {
	case sepay.StatusSuccess:
		updated, err := s.ApplyProcessorStatus(ctx, payment, status, nil)
		if err != nil {
			return nil, err
		}
		return &CheckResult{Outcome: string(updated.Status), Payment: updated}, nil
	case sepay.StatusFailed:
		return &CheckResult{Outcome: CheckOutcomeFailed, Payment: payment}, nil
	default:
		return &CheckResult{Outcome: CheckOutcomePending, Payment: payment}, nil
	}
}

// authorize allows admins, the user who created the payment, and the booking owner.
func (s *paymentService) authorize(ctx context.Context, actor Actor, payment *entity.Payment) error {
	if actor.IsAdmin() || payment.CreatedBy == actor.UserID {
		return nil
	}

	source, ok := s.repo.Bookings.For(payment.Booking.Kind)
	if ok {
		booking, err := source.PaymentView(ctx, payment.Booking.ID)
		if err != nil {
			return fmt.Errorf("load booking %s: %w", payment.Booking.String(), err)
		}
		if booking != nil && booking.OwnerID == actor.UserID {
			return nil
		}
	}

	return fmt.Errorf("%w: payment %s", ErrForbidden, payment.ID.String())
}

func (s *paymentService) findPayment(ctx context.Context, paymentID string) (*entity.Payment, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payment ID %q", ErrValidation, paymentID)
	}

	payment, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
	}

	return payment, nil
}

func (s *paymentService) reload(ctx context.Context, payment *entity.Payment) (*entity.Payment, error) {
	current, err := s.repo.Payment.FindByID(ctx, payment.ID)
	if err != nil {
		return payment, fmt.Errorf("reload payment %s: %w", payment.ID.String(), err)
	}
	if current == nil {
		return payment, fmt.Errorf("%w: payment %s", ErrNotFound, payment.ID.String())
	}
	return current, nil
}

func (s *paymentService) loadBooking(ctx context.Context, ref entity.BookingRef) (*entity.BookingSnapshot, error) {
	source, ok := s.repo.Bookings.For(ref.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported booking type %q", ErrValidation, ref.Kind)
	}

	booking, err := source.PaymentView(ctx, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", ref.String(), err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, ref.String())
	}

	return booking, nil
}

func operatorNote(action string, actor Actor, at time.Time, note string) string {
	text := fmt.Sprintf("[%s] %s by admin %s", at.UTC().Format(time.RFC3339), action, actor.UserID.String())
	if note != "" {
		text += ": " + note
	}
	return text
}
