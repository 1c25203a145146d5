package repository

import (
	"context"

	"renovecare/internal/domain/pricing"
	"renovecare/internal/infra"
	"renovecare/internal/pkg/errs"
	"renovecare/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PricingRepository implements pricing.Source. It always reads through the
// pool so a resolved price reflects the currently active record, never a
// transaction-local or cached snapshot.
type PricingRepository struct {
	pool *pgxpool.Pool
}

func NewPricingRepository(pool *pgxpool.Pool) *PricingRepository {
	return &PricingRepository{pool: pool}
}

const selectActivePriceSQL = `
SELECT id, service_type, service_subtype, price_cents, valid_from, active
FROM pricing
WHERE service_type = $1 AND service_subtype = $2 AND active = true
ORDER BY valid_from DESC
LIMIT 1`

func (r *PricingRepository) ActiveRecord(ctx context.Context, serviceType, serviceSubtype string) (*pricing.Record, error) {
	row := r.pool.QueryRow(ctx, selectActivePriceSQL, serviceType, serviceSubtype)

	var (
		id         uuid.UUID
		sType      string
		sSubtype   string
		priceCents int64
		validFrom  pgtype.Timestamptz
		active     bool
	)

	err := row.Scan(&id, &sType, &sSubtype, &priceCents, &validFrom, &active)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, errs.Mark(
				infra.WrapRepoErr("active price not found", err, infra.KindNotFound),
				pricing.ErrPriceNotFound,
			)
		}
		return nil, infra.WrapRepoErr("failed to resolve price", err)
	}

	return &pricing.Record{
		ID:             id,
		ServiceType:    sType,
		ServiceSubtype: sSubtype,
		PriceCents:     priceCents,
		ValidFrom:      pgconv.TimeFromPgtype(validFrom),
		Active:         active,
	}, nil
}
