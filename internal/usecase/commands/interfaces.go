package commands

import (
	"context"

	"renovecare/internal/domain/request"
	"renovecare/internal/domain/user"

	"github.com/google/uuid"
)

// Handler-facing surfaces. Handlers depend on these so tests can swap the
// services out.

type RequestCommands interface {
	Submit(ctx context.Context, input SubmitRequestInput) (*request.Request, error)
	Claim(ctx context.Context, requestID, actorID uuid.UUID, role user.Role) (*request.Request, error)
	Approve(ctx context.Context, requestID, actorID uuid.UUID, role user.Role) (*request.Request, error)
	Reject(ctx context.Context, requestID, actorID uuid.UUID, role user.Role, reason string) (*request.Request, error)
	ForwardToDoctor(ctx context.Context, requestID, actorID uuid.UUID) (*request.Request, error)
	Sign(ctx context.Context, requestID, actorID uuid.UUID, role user.Role) (*request.Request, error)
	Deliver(ctx context.Context, requestID uuid.UUID) (*request.Request, error)
}

type PaymentCommands interface {
	CreateOrGet(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error)
}

type WebhookCommands interface {
	HandleProviderEvent(ctx context.Context, input ProviderEventInput) error
}

type AuthCommands interface {
	Login(ctx context.Context, email, plainPassword string) (*LoginResult, error)
	Register(ctx context.Context, input RegisterInput) (*user.User, error)
	CurrentUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

var (
	_ RequestCommands = (*RequestCommandService)(nil)
	_ PaymentCommands = (*PaymentCommandService)(nil)
	_ WebhookCommands = (*WebhookCommandService)(nil)
	_ AuthCommands    = (*AuthService)(nil)
)
