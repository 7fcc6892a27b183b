package response

import (
	"time"

	"travel-booking/internal/data/entity"

	"github.com/goccy/go-json"
)

type ProcessorInfoResponse struct {
	TransactionID   string          `json:"transaction_id"`
	QRCodeURL       string          `json:"qr_code_url"`
	Reference       string          `json:"reference"`
	WebhookReceived bool            `json:"webhook_received"`
	WebhookData     json.RawMessage `json:"webhook_data,omitempty"`
}

type PaymentResponse struct {
	ID            string                `json:"id"`
	BookingType   entity.BookingKind    `json:"booking_type"`
	BookingID     string                `json:"booking_id"`
	Amount        int64                 `json:"amount"`
	PaymentMethod entity.PaymentMethod  `json:"payment_method"`
	Status        entity.PaymentStatus  `json:"status"`
	ProcessorInfo ProcessorInfoResponse `json:"processor_info"`
	PaymentDate   *time.Time            `json:"payment_date,omitempty"`
	Note          *string               `json:"note,omitempty"`
	PaidBy        *string               `json:"paid_by,omitempty"`
	CreatedBy     string                `json:"created_by"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// CheckStatusResponse is returned by the polling endpoint.
type CheckStatusResponse struct {
	Outcome string          `json:"outcome"`
	Payment PaymentResponse `json:"payment"`
}

type WebhookResponse struct {
	Outcome   string `json:"outcome"`
	PaymentID string `json:"payment_id,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

// Helper converters
func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            payment.ID.String(),
		BookingType:   payment.Booking.Kind,
		BookingID:     payment.Booking.ID.String(),
		Amount:        payment.Amount,
		PaymentMethod: payment.Method,
		Status:        payment.Status,
		ProcessorInfo: ProcessorInfoResponse{
			TransactionID:   payment.Processor.TransactionID,
			QRCodeURL:       payment.Processor.QRCodeURL,
			Reference:       payment.Processor.Reference,
			WebhookReceived: payment.Processor.WebhookReceived,
		},
		PaymentDate: payment.PaymentDate,
		Note:        payment.Note,
		CreatedBy:   payment.CreatedBy.String(),
		CreatedAt:   payment.CreatedAt,
		UpdatedAt:   payment.UpdatedAt,
	}

	if len(payment.Processor.WebhookData) > 0 {
		resp.ProcessorInfo.WebhookData = json.RawMessage(payment.Processor.WebhookData)
	}
	if payment.PaidBy != nil {
		paidBy := payment.PaidBy.String()
		resp.PaidBy = &paidBy
	}

	return resp
}

func PaymentsToResponse(payments []*entity.Payment) []PaymentResponse {
	resp := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		resp = append(resp, PaymentToResponse(payment))
	}
	return resp
}
