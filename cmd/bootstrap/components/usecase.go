package components

import (
	"log/slog"

	"renovecare/internal/domain/pricing"
	"renovecare/internal/infra/db"
	"renovecare/internal/infra/notify"
	"renovecare/internal/infra/provider"
	"renovecare/internal/pkg/clock"
	"renovecare/internal/pkg/config"
	"renovecare/internal/usecase/commands"
	"renovecare/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		pricing.NewResolver,
		NewPaymentProviderClient,
		fx.Annotate(
			NewStatusNotifier,
			fx.As(new(commands.StatusNotifier)),
		),
		NewRateLimiter,
		fx.Annotate(
			commands.NewRequestCommandService,
			fx.As(new(commands.RequestCommands)),
		),
		fx.Annotate(
			commands.NewPaymentCommandService,
			fx.As(new(commands.PaymentCommands)),
		),
		fx.Annotate(
			commands.NewWebhookCommandService,
			fx.As(new(commands.WebhookCommands)),
		),
		fx.Annotate(
			commands.NewAuthService,
			fx.As(new(commands.AuthCommands)),
		),
		fx.Annotate(
			queries.NewRequestQueryService,
			fx.As(new(queries.RequestQueries)),
		),
		fx.Annotate(
			queries.NewPaymentQueryService,
			fx.As(new(queries.PaymentQueries)),
		),
	),
)

func NewPaymentProviderClient(cfg config.Config) (*provider.MercadoPagoClient, commands.PaymentProvider) {
	client := provider.NewMercadoPagoClient(cfg.Payment)
	return client, client
}

func NewStatusNotifier(pool *pgxpool.Pool, logger *slog.Logger) *notify.PGNotifier {
	return notify.NewPGNotifier(pool, logger)
}

func NewRateLimiter(dbtx db.DBTX, repo commands.RateLimitRepository, cfg config.Config, clk clock.Clock, logger *slog.Logger) *commands.RateLimiter {
	return commands.NewRateLimiter(dbtx, repo, cfg.RateLimit.Window, clk, logger)
}
