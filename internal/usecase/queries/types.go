package queries

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RequestView is the read model returned by request detail queries.
// Payload stays raw JSON so the handler layer can round-trip it untouched.
type RequestView struct {
	ID               uuid.UUID
	Variant          string
	PatientID        uuid.UUID
	AssignedNurseID  *uuid.UUID
	AssignedDoctorID *uuid.UUID
	Status           string
	Payload          json.RawMessage
	PriceCents       *int64
	RejectionReason  *string
	CreatedAt        time.Time
	ClaimedAt        *time.Time
	ApprovedAt       *time.Time
	PaidAt           *time.Time
	SignedAt         *time.Time
	DeliveredAt      *time.Time
}

type RequestListItem struct {
	ID         uuid.UUID
	Variant    string
	Status     string
	PriceCents *int64
	CreatedAt  time.Time
}

type PaymentView struct {
	ID                uuid.UUID
	RequestID         uuid.UUID
	PayerID           uuid.UUID
	Method            string
	Status            string
	AmountCents       int64
	ProviderPaymentID *string
	CheckoutArtifacts json.RawMessage
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
