package components

import (
	"renovecare/internal/handler"
	"renovecare/internal/handler/api"
	"renovecare/internal/handler/middleware"
	"renovecare/internal/infra/provider"
	"renovecare/internal/usecase/commands"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAuthHandler,
		api.NewRequestHandler,
		api.NewPaymentHandler,
		NewWebhookHandler,
		NewHandlers,
		middleware.NewAuthMiddleware,
		middleware.NewRateLimitMiddleware,
	),
	fx.Invoke(
		handler.NewRouter,
	),
)

func NewWebhookHandler(cmds commands.WebhookCommands, client *provider.MercadoPagoClient) *api.WebhookHandler {
	return api.NewWebhookHandler(cmds, client)
}

func NewHandlers(
	auth *api.AuthHandler,
	request *api.RequestHandler,
	payment *api.PaymentHandler,
	webhook *api.WebhookHandler,
) handler.Handlers {
	return handler.Handlers{
		Auth:    auth,
		Request: request,
		Payment: payment,
		Webhook: webhook,
	}
}
