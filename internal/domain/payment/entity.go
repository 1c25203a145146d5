package payment

import (
	"errors"
	"time"

	"renovecare/internal/domain/request"

	"github.com/google/uuid"
)

var (
	ErrInvalidMethod = errors.New("invalid payment method")
	ErrInvalidAmount = errors.New("invalid locked amount")
)

// CheckoutArtifacts are the provider-issued handles a client needs to
// complete checkout. Opaque to the core; replayed byte-identical on
// idempotent retries.
type CheckoutArtifacts struct {
	CheckoutURL  *string    `json:"checkout_url,omitempty"`
	QRCode       *string    `json:"qr_code,omitempty"`
	QRCodeBase64 *string    `json:"qr_code_base64,omitempty"`
	PixCode      *string    `json:"pix_code,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Payment records a single charge attempt against a request. The locked
// amount is copied from the request's approved price at creation and never
// recomputed.
type Payment struct {
	id                uuid.UUID
	requestID         uuid.UUID
	requestVariant    request.Variant
	payerID           uuid.UUID
	method            Method
	amountCentsLocked int64
	idempotencyKey    string
	status            Status
	providerPaymentID *string
	pricingVersionID  *uuid.UUID
	artifacts         CheckoutArtifacts
	createdAt         time.Time
	updatedAt         time.Time
}

func NewPayment(
	requestID uuid.UUID,
	variant request.Variant,
	payerID uuid.UUID,
	method Method,
	amountCentsLocked int64,
	idempotencyKey string,
	providerPaymentID *string,
	pricingVersionID *uuid.UUID,
	artifacts CheckoutArtifacts,
) (*Payment, error) {
	if !method.IsValid() {
		return nil, ErrInvalidMethod
	}
	if amountCentsLocked <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Payment{
		id:                uuid.New(),
		requestID:         requestID,
		requestVariant:    variant,
		payerID:           payerID,
		method:            method,
		amountCentsLocked: amountCentsLocked,
		idempotencyKey:    idempotencyKey,
		status:            StatusPending,
		providerPaymentID: providerPaymentID,
		pricingVersionID:  pricingVersionID,
		artifacts:         artifacts,
	}, nil
}

func ReconstructPayment(
	id, requestID uuid.UUID,
	variant request.Variant,
	payerID uuid.UUID,
	method Method,
	amountCentsLocked int64,
	idempotencyKey string,
	status Status,
	providerPaymentID *string,
	pricingVersionID *uuid.UUID,
	artifacts CheckoutArtifacts,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:                id,
		requestID:         requestID,
		requestVariant:    variant,
		payerID:           payerID,
		method:            method,
		amountCentsLocked: amountCentsLocked,
		idempotencyKey:    idempotencyKey,
		status:            status,
		providerPaymentID: providerPaymentID,
		pricingVersionID:  pricingVersionID,
		artifacts:         artifacts,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (p *Payment) ID() uuid.UUID                   { return p.id }
func (p *Payment) RequestID() uuid.UUID            { return p.requestID }
func (p *Payment) RequestVariant() request.Variant { return p.requestVariant }
func (p *Payment) PayerID() uuid.UUID              { return p.payerID }
func (p *Payment) Method() Method                  { return p.method }
func (p *Payment) AmountCentsLocked() int64        { return p.amountCentsLocked }
func (p *Payment) IdempotencyKey() string          { return p.idempotencyKey }
func (p *Payment) Status() Status                  { return p.status }
func (p *Payment) ProviderPaymentID() *string      { return p.providerPaymentID }
func (p *Payment) PricingVersionID() *uuid.UUID    { return p.pricingVersionID }
func (p *Payment) Artifacts() CheckoutArtifacts    { return p.artifacts }
func (p *Payment) CreatedAt() time.Time            { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time            { return p.updatedAt }
