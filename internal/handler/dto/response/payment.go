package response

import (
	"encoding/json"
	"time"

	"renovecare/internal/domain/payment"
	"renovecare/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type PaymentResponse struct {
	ID                uuid.UUID                 `json:"id"`
	RequestID         uuid.UUID                 `json:"requestId"`
	Method            string                    `json:"method"`
	Status            string                    `json:"status"`
	AmountCents       int64                     `json:"amountCents"`
	CheckoutArtifacts payment.CheckoutArtifacts `json:"checkoutArtifacts"`
	CreatedAt         time.Time                 `json:"createdAt"`
}

func FromPaymentEntity(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                p.ID(),
		RequestID:         p.RequestID(),
		Method:            string(p.Method()),
		Status:            p.Status().String(),
		AmountCents:       p.AmountCentsLocked(),
		CheckoutArtifacts: p.Artifacts(),
		CreatedAt:         p.CreatedAt(),
	}
}

type PaymentViewResponse struct {
	ID                uuid.UUID       `json:"id"`
	RequestID         uuid.UUID       `json:"requestId"`
	Method            string          `json:"method"`
	Status            string          `json:"status"`
	AmountCents       int64           `json:"amountCents"`
	CheckoutArtifacts json.RawMessage `json:"checkoutArtifacts,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func FromPaymentView(view *queries.PaymentView) *PaymentViewResponse {
	var resp PaymentViewResponse
	_ = copier.Copy(&resp, view)
	return &resp
}
