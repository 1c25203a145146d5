package queries

import (
	"context"

	"renovecare/internal/domain/user"
	"renovecare/internal/infra"
	"renovecare/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrPaymentNotFound = errs.New("payment not found")

type PaymentReadStore interface {
	FindByIDFor(ctx context.Context, id, actorID uuid.UUID, role user.Role) (*PaymentView, error)
}

type PaymentQueryService struct {
	reads PaymentReadStore
}

func NewPaymentQueryService(reads PaymentReadStore) *PaymentQueryService {
	return &PaymentQueryService{reads: reads}
}

func (s *PaymentQueryService) GetPayment(ctx context.Context, id, actorID uuid.UUID, role user.Role) (*PaymentView, error) {
	view, err := s.reads.FindByIDFor(ctx, id, actorID, role)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrPaymentNotFound)
		}
		return nil, errs.Wrap(err, "failed to get payment")
	}
	return view, nil
}
