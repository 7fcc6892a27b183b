package usecase_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/lock"
	"travel-booking/pkg/sepay"
	"travel-booking/pkg/utils"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "webhook-secret"

// memoryPayments mimics the SQL semantics of the payment repository, including the
// one-pending-per-booking index and the conditional status updates.
type memoryPayments struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]entity.Payment
	creates  int
	writes   int
	onCreate func()
	onRecord func()
}

func newMemoryPayments() *memoryPayments {
	return &memoryPayments{rows: map[uuid.UUID]entity.Payment{}}
}

func (m *memoryPayments) Create(ctx context.Context, payment *entity.Payment) error {
	if m.onCreate != nil {
		m.onCreate()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.rows {
		if row.Booking == payment.Booking && row.Status == entity.PaymentStatusPending {
			return repository.ErrDuplicatePending
		}
	}
	m.rows[payment.ID] = *payment
	m.creates++
	return nil
}

func (m *memoryPayments) insert(payment entity.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[payment.ID] = payment
}

func (m *memoryPayments) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *memoryPayments) get(t *testing.T, id uuid.UUID) entity.Payment {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	require.True(t, ok, "payment %s not stored", id)
	return row
}

func (m *memoryPayments) sorted(match func(entity.Payment) bool) []entity.Payment {
	var rows []entity.Payment
	for _, row := range m.rows {
		if match(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows
}

func (m *memoryPayments) FindLatestByBooking(ctx context.Context, ref entity.BookingRef) (*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.sorted(func(p entity.Payment) bool { return p.Booking == ref })
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (m *memoryPayments) ListByBooking(ctx context.Context, ref entity.BookingRef) ([]*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payments []*entity.Payment
	for _, row := range m.sorted(func(p entity.Payment) bool { return p.Booking == ref }) {
		row := row
		payments = append(payments, &row)
	}
	return payments, nil
}

func (m *memoryPayments) FindByReference(ctx context.Context, normalizedReference string) (*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.sorted(func(p entity.Payment) bool {
		return sepay.NormalizeReference(p.Processor.Reference) == normalizedReference
	})
	for _, row := range rows {
		if row.Status == entity.PaymentStatusPending {
			return &row, nil
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (m *memoryPayments) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryPayments) Complete(ctx context.Context, payment *entity.Payment, from entity.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[payment.ID]
	if !ok || row.Status != from {
		return false, nil
	}

	row.Status = payment.Status
	if row.PaymentDate == nil {
		row.PaymentDate = payment.PaymentDate
	}
	row.Processor.WebhookReceived = row.Processor.WebhookReceived || payment.Processor.WebhookReceived
	if payment.Processor.WebhookData != nil {
		row.Processor.WebhookData = payment.Processor.WebhookData
	}
	row.Note = payment.Note
	if row.PaidBy == nil {
		row.PaidBy = payment.PaidBy
	}
	row.UpdatedAt = payment.UpdatedAt

	m.rows[payment.ID] = row
	m.writes++
	return true, nil
}

func (m *memoryPayments) UpdateStatus(ctx context.Context, payment *entity.Payment, from entity.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[payment.ID]
	if !ok || row.Status != from {
		return false, nil
	}

	row.Status = payment.Status
	row.Note = payment.Note
	row.UpdatedAt = payment.UpdatedAt
	m.rows[payment.ID] = row
	m.writes++
	return true, nil
}

func (m *memoryPayments) RecordWebhook(ctx context.Context, id uuid.UUID, from entity.PaymentStatus, webhookData []byte, note string) (bool, error) {
	if m.onRecord != nil {
		m.onRecord()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}

	row.Processor.WebhookReceived = true
	row.Processor.WebhookData = webhookData
	row.AppendNote(note)
	m.rows[id] = row
	m.writes++
	return true, nil
}

func (m *memoryPayments) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type mockBookingSource struct {
	mock.Mock
}

func (m *mockBookingSource) PaymentView(ctx context.Context, id uuid.UUID) (*entity.BookingSnapshot, error) {
	args := m.Called(ctx, id)
	snapshot, _ := args.Get(0).(*entity.BookingSnapshot)
	return snapshot, args.Error(1)
}

func (m *mockBookingSource) MarkPaid(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// keyLocker is an in-process stand-in for the redis locker.
type keyLocker struct {
	mu    sync.Mutex
	keys  map[string]*sync.Mutex
	calls int
}

func newKeyLocker() *keyLocker {
	return &keyLocker{keys: map[string]*sync.Mutex{}}
}

func (l *keyLocker) Acquire(ctx context.Context, key string) (lock.Release, error) {
	l.mu.Lock()
	l.calls++
	mu, ok := l.keys[key]
	if !ok {
		mu = &sync.Mutex{}
		l.keys[key] = mu
	}
	l.mu.Unlock()

	mu.Lock()
	return func(context.Context) error {
		mu.Unlock()
		return nil
	}, nil
}

type noopLocker struct{}

func (noopLocker) Acquire(ctx context.Context, key string) (lock.Release, error) {
	return func(context.Context) error { return nil }, nil
}

type stubProcessor struct {
	mu     sync.Mutex
	calls  int
	status sepay.Status
	err    error
}

func (p *stubProcessor) FindTransfer(ctx context.Context, lookup sepay.Lookup) (sepay.Status, *sepay.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", nil, p.err
	}
	if p.status == sepay.StatusSuccess {
		return p.status, &sepay.Transaction{ID: "1", TransactionContent: lookup.Reference}, nil
	}
	return p.status, nil, nil
}

type fixture struct {
	service   *usecase.Service
	payments  *memoryPayments
	booking   *mockBookingSource
	locker    lock.Locker
	processor *stubProcessor

	bookingID uuid.UUID
	owner     usecase.Actor
	stranger  usecase.Actor
	admin     usecase.Actor
}

const bookingAmount = int64(150000)

func newFixture(t *testing.T) *fixture {
	return newFixtureWithLocker(t, newKeyLocker())
}

func newFixtureWithLocker(t *testing.T, locker lock.Locker) *fixture {
	t.Helper()

	f := &fixture{
		payments:  newMemoryPayments(),
		booking:   &mockBookingSource{},
		locker:    locker,
		processor: &stubProcessor{status: sepay.StatusPending},
		bookingID: uuid.New(),
		owner:     usecase.Actor{UserID: uuid.New(), Role: entity.RoleCustomer},
		stranger:  usecase.Actor{UserID: uuid.New(), Role: entity.RoleCustomer},
		admin:     usecase.Actor{UserID: uuid.New(), Role: entity.RoleAdmin},
	}

	f.booking.On("PaymentView", mock.Anything, f.bookingID).Return(&entity.BookingSnapshot{
		Ref:     entity.BookingRef{Kind: entity.BookingKindTour, ID: f.bookingID},
		OwnerID: f.owner.UserID,
		Amount:  bookingAmount,
	}, nil)
	f.booking.On("PaymentView", mock.Anything, mock.Anything).Return(nil, nil)

	repo := &repository.Repository{
		Payment: f.payments,
		Bookings: repository.BookingSources{
			entity.BookingKindTour: f.booking,
		},
	}

	config := &utils.Config{
		SePay: utils.SePayConfig{
			AccountNumber:    "0123456789",
			BankCode:         "MBBank",
			QRHost:           "qr.sepay.vn",
			WebhookSecret:    testSecret,
			SignatureSchemes: []string{"fields", "sorted", "json"},
		},
	}

	service, err := usecase.NewService(repo, f.locker, f.processor, config, zap.NewNop())
	require.NoError(t, err)
	f.service = service

	return f
}

func (f *fixture) expectMarkPaid(err error) {
	f.booking.On("MarkPaid", mock.Anything, f.bookingID).Return(err)
}

func (f *fixture) createPayment(t *testing.T) *entity.Payment {
	t.Helper()
	payment, created, err := f.service.Payment.GetOrCreate(context.Background(), f.owner, entity.BookingKindTour, f.bookingID.String())
	require.NoError(t, err)
	require.True(t, created)
	return payment
}

// signedWebhook builds a SePay delivery body and its signature.
func signedWebhook(t *testing.T, content string, amount int64, transferType string) ([]byte, string) {
	t.Helper()

	payload := sepay.Payload{
		"id":              int64(92704),
		"gateway":         "MBBank",
		"transactionDate": time.Date(2024, 7, 25, 14, 2, 37, 0, time.UTC).Format("2006-01-02 15:04:05"),
		"accountNumber":   "0123456789",
		"content":         content,
		"transferType":    transferType,
		"transferAmount":  amount,
		"referenceCode":   "MBVCB.3278907687",
	}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw, sepay.Sign(payload, testSecret)
}
