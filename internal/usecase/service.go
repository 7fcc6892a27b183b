package usecase

import (
	"fmt"

	"travel-booking/internal/data/repository"
	"travel-booking/pkg/lock"
	"travel-booking/pkg/sepay"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Payment PaymentService
	Webhook WebhookService
}

func NewService(
	repo *repository.Repository,
	locker lock.Locker,
	processor PaymentProcessor,
	config *utils.Config,
	log *zap.Logger,
) (*Service, error) {
	verifier, err := sepay.NewVerifierFromNames(config.SePay.WebhookSecret, config.SePay.SignatureSchemes)
	if err != nil {
		return nil, fmt.Errorf("build webhook verifier: %w", err)
	}

	payment := NewPaymentService(repo, locker, processor, config.SePay, log)

	return &Service{
		Payment: payment,
		Webhook: NewWebhookService(repo, payment, verifier, log),
	}, nil
}
