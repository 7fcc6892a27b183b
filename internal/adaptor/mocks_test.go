package adaptor_test

import (
	"context"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/sepay"

	"github.com/stretchr/testify/mock"
)

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) GetOrCreate(ctx context.Context, actor usecase.Actor, kind entity.BookingKind, bookingID string) (*entity.Payment, bool, error) {
	args := m.Called(ctx, actor, kind, bookingID)
	payment, _ := args.Get(0).(*entity.Payment)
	return payment, args.Bool(1), args.Error(2)
}

func (m *mockPaymentService) Create(ctx context.Context, actor usecase.Actor, req *request.CreatePaymentRequest) (*entity.Payment, bool, error) {
	args := m.Called(ctx, actor, req)
	payment, _ := args.Get(0).(*entity.Payment)
	return payment, args.Bool(1), args.Error(2)
}

func (m *mockPaymentService) GetByID(ctx context.Context, actor usecase.Actor, paymentID string) (*entity.Payment, error) {
	args := m.Called(ctx, actor, paymentID)
	payment, _ := args.Get(0).(*entity.Payment)
	return payment, args.Error(1)
}

func (m *mockPaymentService) CheckStatus(ctx context.Context, actor usecase.Actor, paymentID string) (*usecase.CheckResult, error) {
	args := m.Called(ctx, actor, paymentID)
	result, _ := args.Get(0).(*usecase.CheckResult)
	return result, args.Error(1)
}

func (m *mockPaymentService) ListByBooking(ctx context.Context, actor usecase.Actor, kind entity.BookingKind, bookingID string) ([]*entity.Payment, error) {
	args := m.Called(ctx, actor, kind, bookingID)
	payments, _ := args.Get(0).([]*entity.Payment)
	return payments, args.Error(1)
}

func (m *mockPaymentService) ForceComplete(ctx context.Context, actor usecase.Actor, paymentID, note string) (*entity.Payment, error) {
	args := m.Called(ctx, actor, paymentID, note)
	payment, _ := args.Get(0).(*entity.Payment)
	return payment, args.Error(1)
}

func (m *mockPaymentService) UpdateStatus(ctx context.Context, actor usecase.Actor, paymentID string, req *request.UpdatePaymentStatusRequest) (*entity.Payment, error) {
	args := m.Called(ctx, actor, paymentID, req)
	payment, _ := args.Get(0).(*entity.Payment)
	return payment, args.Error(1)
}

func (m *mockPaymentService) Delete(ctx context.Context, actor usecase.Actor, paymentID string) error {
	args := m.Called(ctx, actor, paymentID)
	return args.Error(0)
}

func (m *mockPaymentService) ApplyProcessorStatus(ctx context.Context, payment *entity.Payment, status sepay.Status, webhookData []byte) (*entity.Payment, error) {
	args := m.Called(ctx, payment, status, webhookData)
	result, _ := args.Get(0).(*entity.Payment)
	return result, args.Error(1)
}

type mockWebhookService struct {
	mock.Mock
}

func (m *mockWebhookService) HandleSePay(ctx context.Context, raw []byte, signature string) (*usecase.WebhookResult, error) {
	args := m.Called(ctx, raw, signature)
	result, _ := args.Get(0).(*usecase.WebhookResult)
	return result, args.Error(1)
}

func (m *mockWebhookService) InjectTest(ctx context.Context, actor usecase.Actor, raw []byte) (*usecase.WebhookResult, error) {
	args := m.Called(ctx, actor, raw)
	result, _ := args.Get(0).(*usecase.WebhookResult)
	return result, args.Error(1)
}
