package response

import (
	"encoding/json"
	"time"

	"renovecare/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type RequestResponse struct {
	ID               uuid.UUID       `json:"id"`
	Variant          string          `json:"variant"`
	PatientID        uuid.UUID       `json:"patientId"`
	AssignedNurseID  *uuid.UUID      `json:"assignedNurseId,omitempty"`
	AssignedDoctorID *uuid.UUID      `json:"assignedDoctorId,omitempty"`
	Status           string          `json:"status"`
	Payload          json.RawMessage `json:"payload"`
	PriceCents       *int64          `json:"priceCents,omitempty"`
	RejectionReason  *string         `json:"rejectionReason,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	ClaimedAt        *time.Time      `json:"claimedAt,omitempty"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	SignedAt         *time.Time      `json:"signedAt,omitempty"`
	DeliveredAt      *time.Time      `json:"deliveredAt,omitempty"`
}

type RequestListResponse struct {
	ID         uuid.UUID `json:"id"`
	Variant    string    `json:"variant"`
	Status     string    `json:"status"`
	PriceCents *int64    `json:"priceCents,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func FromRequestView(view *queries.RequestView) *RequestResponse {
	var resp RequestResponse
	_ = copier.Copy(&resp, view)
	return &resp
}

func FromRequestListItem(item *queries.RequestListItem) *RequestListResponse {
	var resp RequestListResponse
	_ = copier.Copy(&resp, item)
	return &resp
}
