package adaptor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"travel-booking/internal/dto/response"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	service         usecase.WebhookService
	signatureHeader string
	timeout         time.Duration
	log             *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, config utils.SePayConfig, log *zap.Logger) *WebhookHandler {
	header := config.SignatureHeader
	if header == "" {
		header = "X-Sepay-Signature"
	}
	timeout := config.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookHandler{
		service:         service,
		signatureHeader: header,
		timeout:         timeout,
		log:             log.With(zap.String("handler", "webhook")),
	}
}

// SePay handles POST /api/payments/webhook/sepay (public, signature-authenticated)
func (h *WebhookHandler) SePay(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.service.HandleSePay(ctx, raw, r.Header.Get(h.signatureHeader))
	if err != nil {
		if errors.Is(err, usecase.ErrSignatureInvalid) {
			h.log.Warn("SePay webhook rejected",
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)
			utils.ResponseUnauthorized(w, "Invalid signature")
			return
		}

		// Anything else is ours and transient; a 5xx makes SePay retry
		h.log.Error("SePay webhook processing failed", zap.Error(err))
		utils.ResponseInternalError(w, "Webhook processing failed, please retry")
		return
	}

	h.respond(w, result)
}

// InjectTest handles POST /api/payments/webhook/sepay/test (admin)
func (h *WebhookHandler) InjectTest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}

	result, err := h.service.InjectTest(r.Context(), actor, raw)
	if err != nil {
		handleServiceError(w, h.log, err, "inject test webhook")
		return
	}

	h.respond(w, result)
}

func (h *WebhookHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.ResponseJSON(w, http.StatusRequestEntityTooLarge, false, "Payload too large", nil, nil)
			return nil, false
		}
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return nil, false
	}
	return raw, true
}

func (h *WebhookHandler) respond(w http.ResponseWriter, result *usecase.WebhookResult) {
	resp := response.WebhookResponse{
		Outcome:   result.Outcome,
		PaymentID: result.PaymentID,
	}
	message := "Webhook processed"
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
		message = "Webhook acknowledged with warning"
	}

	utils.ResponseSuccess(w, message, resp)
}
