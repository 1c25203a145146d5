package commands

import (
	"context"
	"time"

	"renovecare/internal/domain/payment"
	"renovecare/internal/domain/ratelimit"
	"renovecare/internal/domain/request"
	"renovecare/internal/domain/user"
	"renovecare/internal/infra/db"
	"renovecare/internal/infra/notify"
	"renovecare/internal/infra/provider"

	"github.com/google/uuid"
)

// Repositories receive the DBTX explicitly so a command can compose several
// writes inside one transaction via TxManager.

type RequestRepository interface {
	Create(ctx context.Context, dbtx db.DBTX, req *request.Request) error
	FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*request.Request, error)
	UpdateGuarded(ctx context.Context, dbtx db.DBTX, req *request.Request, expected request.Guard) error
}

type PaymentRepository interface {
	Insert(ctx context.Context, dbtx db.DBTX, p *payment.Payment) error
	FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*payment.Payment, error)
	FindByIdempotencyKey(ctx context.Context, dbtx db.DBTX, key string) (*payment.Payment, error)
	FindActiveByRequest(ctx context.Context, dbtx db.DBTX, requestID uuid.UUID, variant request.Variant) (*payment.Payment, error)
	FindByProviderPaymentID(ctx context.Context, dbtx db.DBTX, providerPaymentID string) (*payment.Payment, error)
	UpdateStatusGuarded(ctx context.Context, dbtx db.DBTX, id uuid.UUID, from, to payment.Status) error
}

type UserRepository interface {
	Create(ctx context.Context, dbtx db.DBTX, u *user.User) error
	FindByEmail(ctx context.Context, dbtx db.DBTX, email string) (*user.User, error)
	FindByID(ctx context.Context, dbtx db.DBTX, id uuid.UUID) (*user.User, error)
}

type RateLimitRepository interface {
	PeekAttempts(ctx context.Context, dbtx db.DBTX, dimension ratelimit.Dimension, value, endpoint string, windowStart time.Time) (int64, error)
	RecordAttempt(ctx context.Context, dbtx db.DBTX, dimension ratelimit.Dimension, value, endpoint string, windowStart time.Time) error
}

type WebhookEventRepository interface {
	TryInsert(ctx context.Context, dbtx db.DBTX, provider, externalEventID, eventType string, payload []byte) (bool, error)
	MarkOutcome(ctx context.Context, dbtx db.DBTX, provider, externalEventID, status string, lastError *string) error
}

// PaymentProvider opens charges with the external processor and answers
// authoritative status lookups during webhook processing.
type PaymentProvider interface {
	Charge(ctx context.Context, req provider.ChargeRequest) (*provider.ChargeResult, error)
	PaymentStatus(ctx context.Context, providerPaymentID string) (string, error)
}

// StatusNotifier broadcasts request status changes. Notification failures are
// logged by implementations and never fail the command.
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, ev notify.StatusEvent) error
}

// TxManager runs fn inside a single database transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(dbtx db.DBTX) error) error
}
