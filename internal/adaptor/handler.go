package adaptor

import (
	"errors"
	"net/http"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Payment *PaymentHandler
	Webhook *WebhookHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Payment: NewPaymentHandler(service.Payment, log),
		Webhook: NewWebhookHandler(service.Webhook, config.SePay, log),
	}
}

// actorFromRequest reads the identity AuthSession put on the context.
func actorFromRequest(r *http.Request) (usecase.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return usecase.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())
	return usecase.Actor{UserID: userID, Role: entity.UserRole(role)}, true
}

// handleServiceError maps service errors to HTTP responses. Unknown errors become a 500
// with a generic message; the detail goes to the log only.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	fields := []zap.Field{zap.Error(err), zap.String("operation", operation)}

	switch {
	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", fields...)
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", fields...)
		utils.ResponseForbidden(w, "You do not have access to this payment")

	case errors.Is(err, usecase.ErrValidation):
		log.Warn(operation+" validation failed", fields...)
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrInvalidTransition), errors.Is(err, usecase.ErrConflict):
		log.Warn(operation+" failed - invalid state", fields...)
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrProcessorUnreachable):
		log.Warn(operation+" failed - processor unreachable", fields...)
		utils.ResponseUnavailable(w, "Payment processor is unreachable, please retry", "processor_unreachable")

	case errors.Is(err, usecase.ErrSignatureInvalid):
		utils.ResponseUnauthorized(w, "Invalid signature")

	default:
		log.Error(operation+" failed", fields...)
		utils.ResponseInternalError(w, "Internal server error")
	}
}
