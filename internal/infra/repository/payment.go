package repository

import (
	"context"
	"encoding/json"

	"renovecare/internal/domain/payment"
	"renovecare/internal/domain/request"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type PaymentRepository struct{}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

const insertPaymentSQL = `
INSERT INTO payments (
	id, request_id, request_variant, payer_id, method,
	amount_cents_locked, idempotency_key, status,
	provider_payment_id, pricing_version_id, artifacts,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`

// Insert persists a new payment. The partial unique indexes on request_id
// and idempotency_key over active statuses are the correctness mechanism
// for single-charge semantics; a lost race comes back as KindDuplicateKey
// and the caller fetches the winning row.
func (r *PaymentRepository) Insert(ctx context.Context, dbtx db.DBTX, p *payment.Payment) error {
	artifacts, err := json.Marshal(p.Artifacts())
	if err != nil {
		return infra.WrapRepoErr("failed to encode checkout artifacts", err)
	}

	_, err = dbtx.Exec(ctx, insertPaymentSQL,
		p.ID(), p.RequestID(), p.RequestVariant().String(), p.PayerID(), string(p.Method()),
		p.AmountCentsLocked(), p.IdempotencyKey(), p.Status().String(),
		pgconv.StringPtrToPgtype(p.ProviderPaymentID()),
		pgconv.UUIDPtrToPgtype(p.PricingVersionID()),
		artifacts,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to insert payment", err)
	}
	return nil
}

const selectPaymentSQL = `
SELECT id, request_id, request_variant, payer_id, method,
       amount_cents_locked, idempotency_key, status,
       provider_payment_id, pricing_version_id, artifacts,
       created_at, updated_at
FROM payments`

func (r *PaymentRepository) FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*payment.Payment, error) {
	return r.scanOne(ctx, dbtx, selectPaymentSQL+` WHERE id = $1`, id)
}

// FindByIdempotencyKey returns the newest payment under the key. Failed
// attempts keep their rows, so the key is not unique across the table, only
// among active payments.
func (r *PaymentRepository) FindByIdempotencyKey(ctx context.Context, dbtx db.DBTX, key string) (*payment.Payment, error) {
	return r.scanOne(ctx, dbtx, selectPaymentSQL+` WHERE idempotency_key = $1 ORDER BY created_at DESC LIMIT 1`, key)
}

// FindActiveByRequest returns the payment currently counting against the
// at-most-one-active invariant, if any.
func (r *PaymentRepository) FindActiveByRequest(ctx context.Context, dbtx db.DBTX, requestID uuid.UUID, variant request.Variant) (*payment.Payment, error) {
	return r.scanOne(ctx, dbtx,
		selectPaymentSQL+` WHERE request_id = $1 AND request_variant = $2 AND status = ANY($3)`,
		requestID, variant.String(), activeStatusStrings())
}

func (r *PaymentRepository) FindByProviderPaymentID(ctx context.Context, dbtx db.DBTX, providerPaymentID string) (*payment.Payment, error) {
	return r.scanOne(ctx, dbtx, selectPaymentSQL+` WHERE provider_payment_id = $1`, providerPaymentID)
}

const updatePaymentStatusSQL = `
UPDATE payments SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3`

// UpdateStatusGuarded transitions a payment's status conditionally on its
// current value, so duplicate webhook deliveries cannot double-apply.
func (r *PaymentRepository) UpdateStatusGuarded(ctx context.Context, dbtx db.DBTX, id uuid.UUID, from, to payment.Status) error {
	tag, err := dbtx.Exec(ctx, updatePaymentStatusSQL, id, to.String(), from.String())
	if err != nil {
		return infra.WrapRepoErr("failed to update payment status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("payment status changed concurrently", nil, infra.KindConflict)
	}
	return nil
}

func (r *PaymentRepository) scanOne(ctx context.Context, dbtx db.DBTX, sql string, args ...any) (*payment.Payment, error) {
	row := dbtx.QueryRow(ctx, sql, args...)

	var (
		id                uuid.UUID
		requestID         uuid.UUID
		variant           string
		payerID           uuid.UUID
		method            string
		amountCents       int64
		idempotencyKey    string
		status            string
		providerPaymentID pgtype.Text
		pricingVersionID  pgtype.UUID
		rawArtifacts      []byte
		createdAt         pgtype.Timestamptz
		updatedAt         pgtype.Timestamptz
	)

	err := row.Scan(&id, &requestID, &variant, &payerID, &method,
		&amountCents, &idempotencyKey, &status,
		&providerPaymentID, &pricingVersionID, &rawArtifacts,
		&createdAt, &updatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get payment", err)
	}

	var artifacts payment.CheckoutArtifacts
	if len(rawArtifacts) > 0 {
		if err := json.Unmarshal(rawArtifacts, &artifacts); err != nil {
			return nil, infra.WrapRepoErr("failed to decode checkout artifacts", err)
		}
	}

	return payment.ReconstructPayment(
		id, requestID,
		request.Variant(variant),
		payerID,
		payment.Method(method),
		amountCents,
		idempotencyKey,
		payment.Status(status),
		pgconv.StringPtrFromPgtype(providerPaymentID),
		pgconv.UUIDPtrFromPgtype(pricingVersionID),
		artifacts,
		pgconv.TimeFromPgtype(createdAt),
		pgconv.TimeFromPgtype(updatedAt),
	), nil
}

func activeStatusStrings() []string {
	out := make([]string, len(payment.ActiveStatuses))
	for i, s := range payment.ActiveStatuses {
		out[i] = s.String()
	}
	return out
}
