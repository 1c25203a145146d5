package queries

import (
	"context"

	"renovecare/internal/domain/user"

	"github.com/google/uuid"
)

type RequestQueries interface {
	GetRequest(ctx context.Context, id, actorID uuid.UUID, role user.Role) (*RequestView, error)
	ListRequests(ctx context.Context, actorID uuid.UUID, role user.Role) ([]*RequestListItem, error)
}

type PaymentQueries interface {
	GetPayment(ctx context.Context, id, actorID uuid.UUID, role user.Role) (*PaymentView, error)
}

var (
	_ RequestQueries = (*RequestQueryService)(nil)
	_ PaymentQueries = (*PaymentQueryService)(nil)
)
