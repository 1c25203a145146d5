package request

import "github.com/google/uuid"

// CreatePaymentRequest opens a charge for an approved request. The amount is
// never part of this body; the server charges the locked price.
type CreatePaymentRequest struct {
	RequestID uuid.UUID `json:"request_id" binding:"required"`
	Method    string    `json:"method" binding:"required,oneof=pix credit_card"`
}
