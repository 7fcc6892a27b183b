package wire

import (
	"travel-booking/internal/adaptor"
	"travel-booking/internal/data/repository"
	"travel-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	handler *adaptor.Handler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	r.Route("/api/payments", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		// POST /api/payments/webhook/sepay - SePay transfer notification, authenticated by signature
		r.Post("/webhook/sepay", handler.Webhook.SePay)

		// ==================== PROTECTED ROUTES (require auth) ====================
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthSession(repo.Session, repo.User, log))

			r.Post("/", handler.Payment.CreatePayment)
			r.Get("/booking/{type}/{id}", handler.Payment.GetByBooking)
			r.Get("/{id}", handler.Payment.GetPayment)
			r.Get("/{id}/check", handler.Payment.CheckStatus)

			// ==================== ADMIN ROUTES ====================
			r.Group(func(r chi.Router) {
				r.Use(middleware.Admin(log))

				r.Get("/booking/{type}/{id}/history", handler.Payment.GetBookingHistory)
				r.Put("/{id}/status", handler.Payment.UpdateStatus)
				r.Put("/{id}/force-complete", handler.Payment.ForceComplete)
				r.Delete("/{id}", handler.Payment.DeletePayment)
				r.Post("/webhook/sepay/test", handler.Webhook.InjectTest)
			})
		})
	})
}
