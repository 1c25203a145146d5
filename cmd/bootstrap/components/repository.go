package components

import (
	"renovecare/internal/domain/pricing"
	"renovecare/internal/infra/db"
	"renovecare/internal/infra/readstore"
	repo_impl "renovecare/internal/infra/repository"
	"renovecare/internal/usecase/commands"
	"renovecare/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		fx.Annotate(
			db.NewTxManager,
			fx.As(new(commands.TxManager)),
		),
		fx.Annotate(
			repo_impl.NewRequestRepository,
			fx.As(new(commands.RequestRepository)),
		),
		fx.Annotate(
			repo_impl.NewPaymentRepository,
			fx.As(new(commands.PaymentRepository)),
		),
		fx.Annotate(
			repo_impl.NewUserRepository,
			fx.As(new(commands.UserRepository)),
		),
		fx.Annotate(
			repo_impl.NewRateLimitRepository,
			fx.As(new(commands.RateLimitRepository)),
		),
		fx.Annotate(
			repo_impl.NewWebhookEventRepository,
			fx.As(new(commands.WebhookEventRepository)),
		),
		// Pricing reads skip the DBTX seam; resolution always hits the pool
		// so an active price flip is visible immediately.
		fx.Annotate(
			repo_impl.NewPricingRepository,
			fx.As(new(pricing.Source)),
		),
		fx.Annotate(
			readstore.NewRequestReadStore,
			fx.As(new(queries.RequestReadStore)),
		),
		fx.Annotate(
			readstore.NewPaymentReadStore,
			fx.As(new(queries.PaymentReadStore)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
