package components

import (
	"context"
	"log/slog"

	"renovecare/internal/domain/request"
	"renovecare/internal/infra/notify"
	"renovecare/internal/usecase/commands"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Invoke(StartDeliveryWorker),
)

// StartDeliveryWorker finalizes signed requests in the background. Delivery
// is a system transition, so it rides the status change feed instead of
// waiting for an operator. The admin endpoint stays available as a manual
// fallback when the worker is down.
func StartDeliveryWorker(lc fx.Lifecycle, pool *pgxpool.Pool, cmds commands.RequestCommands, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	listener := notify.NewListener(pool, logger, func(ctx context.Context, ev notify.StatusEvent) {
		if ev.Status != request.StatusSigned.String() {
			return
		}
		if _, err := cmds.Deliver(ctx, ev.RequestID); err != nil {
			// A conflict just means another path delivered it first.
			logger.Warn("automatic delivery failed",
				slog.String("request_id", ev.RequestID.String()),
				slog.String("error", err.Error()))
		}
	})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go listener.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
