package adaptor

import (
	"net/http"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreatePayment handles POST /api/payments (protected)
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, created, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create payment")
		return
	}

	if created {
		utils.ResponseCreated(w, "Payment created", response.PaymentToResponse(payment))
		return
	}
	utils.ResponseSuccess(w, "Payment already exists", response.PaymentToResponse(payment))
}

// GetByBooking handles GET /api/payments/booking/{type}/{id} (protected).
// Returns the booking's payment, creating a pending one on first call.
func (h *PaymentHandler) GetByBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	kind, err := entity.ParseBookingKind(chi.URLParam(r, "type"))
	if err != nil {
		utils.ResponseBadRequest(w, err.Error(), nil)
		return
	}

	payment, created, err := h.service.GetOrCreate(r.Context(), actor, kind, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get booking payment")
		return
	}

	if created {
		utils.ResponseCreated(w, "Payment created", response.PaymentToResponse(payment))
		return
	}
	utils.ResponseSuccess(w, "success", response.PaymentToResponse(payment))
}

// GetBookingHistory handles GET /api/payments/booking/{type}/{id}/history (admin)
func (h *PaymentHandler) GetBookingHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	kind, err := entity.ParseBookingKind(chi.URLParam(r, "type"))
	if err != nil {
		utils.ResponseBadRequest(w, err.Error(), nil)
		return
	}

	payments, err := h.service.ListByBooking(r.Context(), actor, kind, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "list booking payments")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentsToResponse(payments))
}

// GetPayment handles GET /api/payments/{id} (owner or admin)
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.GetByID(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentToResponse(payment))
}

// CheckStatus handles GET /api/payments/{id}/check (owner or admin)
func (h *PaymentHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	result, err := h.service.CheckStatus(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "check payment status")
		return
	}

	utils.ResponseSuccess(w, "success", response.CheckStatusResponse{
		Outcome: result.Outcome,
		Payment: response.PaymentToResponse(result.Payment),
	})
}

// UpdateStatus handles PUT /api/payments/{id}/status (admin)
func (h *PaymentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.UpdatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update payment status")
		return
	}

	utils.ResponseSuccess(w, "Payment status updated", response.PaymentToResponse(payment))
}

// ForceComplete handles PUT /api/payments/{id}/force-complete (admin)
func (h *PaymentHandler) ForceComplete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	// Body is optional
	var req request.ForceCompleteRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return
		}
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.service.ForceComplete(r.Context(), actor, chi.URLParam(r, "id"), req.Note)
	if err != nil {
		handleServiceError(w, h.log, err, "force-complete payment")
		return
	}

	utils.ResponseSuccess(w, "Payment completed", response.PaymentToResponse(payment))
}

// DeletePayment handles DELETE /api/payments/{id} (admin)
func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "delete payment")
		return
	}

	utils.ResponseSuccess(w, "Payment deleted", nil)
}
