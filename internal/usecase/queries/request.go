package queries

import (
	"context"

	"renovecare/internal/domain/user"
	"renovecare/internal/infra"
	"renovecare/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrRequestNotFound = errs.New("request not found")

const defaultListLimit = 50

type RequestReadStore interface {
	FindByIDFor(ctx context.Context, id, actorID uuid.UUID, role user.Role) (*RequestView, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID, limit int32) ([]*RequestListItem, error)
	ListQueueFor(ctx context.Context, actorID uuid.UUID, role user.Role, limit int32) ([]*RequestListItem, error)
}

type RequestQueryService struct {
	reads RequestReadStore
}

func NewRequestQueryService(reads RequestReadStore) *RequestQueryService {
	return &RequestQueryService{reads: reads}
}

func (s *RequestQueryService) GetRequest(ctx context.Context, id, actorID uuid.UUID, role user.Role) (*RequestView, error) {
	view, err := s.reads.FindByIDFor(ctx, id, actorID, role)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrRequestNotFound)
		}
		return nil, errs.Wrap(err, "failed to get request")
	}
	return view, nil
}

// ListRequests returns the patient's own requests, or the review queue for
// nurses, doctors and admin.
func (s *RequestQueryService) ListRequests(ctx context.Context, actorID uuid.UUID, role user.Role) ([]*RequestListItem, error) {
	var (
		items []*RequestListItem
		err   error
	)
	if role == user.RolePatient {
		items, err = s.reads.ListForPatient(ctx, actorID, defaultListLimit)
	} else {
		items, err = s.reads.ListQueueFor(ctx, actorID, role, defaultListLimit)
	}
	if err != nil {
		return nil, errs.Wrap(err, "failed to list requests")
	}
	return items, nil
}
