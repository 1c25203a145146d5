package readstore

import (
	"context"
	"encoding/json"

	"renovecare/internal/domain/user"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/pgconv"
	"renovecare/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type PaymentReadStore struct {
	db db.DBTX
}

func NewPaymentReadStore(dbtx db.DBTX) *PaymentReadStore {
	return &PaymentReadStore{db: dbtx}
}

const selectPaymentViewSQL = `
SELECT id, request_id, payer_id, method, status, amount_cents_locked,
       provider_payment_id, artifacts, created_at, updated_at
FROM payments`

// FindByIDFor scopes reads to the paying patient; admin reads any row.
// Out-of-scope rows read as not found.
func (s *PaymentReadStore) FindByIDFor(ctx context.Context, id, actorID uuid.UUID, role user.Role) (*queries.PaymentView, error) {
	sql := selectPaymentViewSQL + ` WHERE id = $1`
	args := []any{id}

	switch role {
	case user.RolePatient:
		sql += ` AND payer_id = $2`
		args = append(args, actorID)
	case user.RoleAdmin:
		// unrestricted
	default:
		return nil, infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}

	var (
		pid          uuid.UUID
		requestID    uuid.UUID
		payerID      uuid.UUID
		method       string
		status       string
		amountCents  int64
		providerID   pgtype.Text
		rawArtifacts []byte
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)

	err := s.db.QueryRow(ctx, sql, args...).Scan(&pid, &requestID, &payerID,
		&method, &status, &amountCents, &providerID, &rawArtifacts, &createdAt, &updatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get payment view", err)
	}

	var artifacts json.RawMessage = rawArtifacts

	return &queries.PaymentView{
		ID:                pid,
		RequestID:         requestID,
		PayerID:           payerID,
		Method:            method,
		Status:            status,
		AmountCents:       amountCents,
		ProviderPaymentID: pgconv.StringPtrFromPgtype(providerID),
		CheckoutArtifacts: artifacts,
		CreatedAt:         pgconv.TimeFromPgtype(createdAt),
		UpdatedAt:         pgconv.TimeFromPgtype(updatedAt),
	}, nil
}
