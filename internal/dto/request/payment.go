package request

type CreatePaymentRequest struct {
	BookingID   string `json:"booking_id" validate:"required,uuid"`
	BookingType string `json:"booking_type" validate:"omitempty,oneof=generic tour hotel flight"`
}

type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed failed refunded"`
	Note   string `json:"note" validate:"max=500"`
}

type ForceCompleteRequest struct {
	Note string `json:"note" validate:"max=500"`
}
