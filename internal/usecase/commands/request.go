package commands

import (
	"context"
	"errors"
	"log/slog"

	"renovecare/internal/domain/pricing"
	"renovecare/internal/domain/request"
	"renovecare/internal/domain/user"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/infra/notify"
	"renovecare/internal/pkg/clock"
	"renovecare/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrRequestNotFound     = errs.New("request not found")
	ErrInvalidPayload      = errs.New("invalid request payload")
	ErrForbidden           = errs.New("actor may not perform this action")
	ErrNotAssignee         = errs.New("actor does not hold this request")
	ErrInvalidTransition   = errs.New("transition not allowed from current status")
	ErrTerminalRequest     = errs.New("request is terminal")
	ErrClaimConflict       = errs.New("request was claimed by someone else")
	ErrStateConflict       = errs.New("request changed concurrently, retry")
	ErrPriceUnavailable    = errs.New("no price configured for this service")
	ErrRejectionReasonNeed = errs.New("rejection requires a reason")
)

type RequestCommandService struct {
	db       db.DBTX
	requests RequestRepository
	resolver *pricing.Resolver
	notifier StatusNotifier
	clock    clock.Clock
	logger   *slog.Logger
}

func NewRequestCommandService(
	dbtx db.DBTX,
	requests RequestRepository,
	resolver *pricing.Resolver,
	notifier StatusNotifier,
	clk clock.Clock,
	logger *slog.Logger,
) *RequestCommandService {
	return &RequestCommandService{
		db:       dbtx,
		requests: requests,
		resolver: resolver,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

type SubmitRequestInput struct {
	PatientID uuid.UUID
	Variant   request.Variant
	Payload   request.Payload
}

func (s *RequestCommandService) Submit(ctx context.Context, input SubmitRequestInput) (*request.Request, error) {
	req, err := request.NewRequest(input.Variant, input.PatientID, input.Payload, s.clock.Now())
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidPayload)
	}
	if err := s.requests.Create(ctx, s.db, req); err != nil {
		return nil, errs.Wrap(err, "failed to persist request")
	}
	s.broadcast(ctx, req)
	return req, nil
}

// Claim moves a submitted or forwarded request into the actor's review queue.
// The assignment column guard in the conditional write makes concurrent
// claims race safely: exactly one wins, the rest get ErrClaimConflict.
func (s *RequestCommandService) Claim(ctx context.Context, requestID, actorID uuid.UUID, role user.Role) (*request.Request, error) {
	return s.mutate(ctx, requestID, true, func(req *request.Request) error {
		return req.Claim(actorID, role, s.clock.Now())
	})
}

// Approve resolves the price server-side and locks it onto the request.
// Client-supplied amounts are never consulted.
func (s *RequestCommandService) Approve(ctx context.Context, requestID, actorID uuid.UUID, role user.Role) (*request.Request, error) {
	return s.mutate(ctx, requestID, false, func(req *request.Request) error {
		quote, err := s.resolver.ResolvePrice(ctx, req.Variant(), req.Payload())
		if err != nil {
			if errors.Is(err, pricing.ErrPriceNotFound) {
				return errs.Mark(err, ErrPriceUnavailable)
			}
			return errs.Wrap(err, "failed to resolve price")
		}
		return req.Approve(actorID, role, quote.PriceCents, quote.PricingVersionID, s.clock.Now())
	})
}

func (s *RequestCommandService) Reject(ctx context.Context, requestID, actorID uuid.UUID, role user.Role, reason string) (*request.Request, error) {
	rr, err := request.NewRejectionReason(reason)
	if err != nil {
		return nil, errs.Mark(err, ErrRejectionReasonNeed)
	}
	return s.mutate(ctx, requestID, false, func(req *request.Request) error {
		return req.Reject(actorID, role, rr, s.clock.Now())
	})
}

func (s *RequestCommandService) ForwardToDoctor(ctx context.Context, requestID, actorID uuid.UUID) (*request.Request, error) {
	return s.mutate(ctx, requestID, false, func(req *request.Request) error {
		return req.ForwardToDoctor(actorID, s.clock.Now())
	})
}

func (s *RequestCommandService) Sign(ctx context.Context, requestID, actorID uuid.UUID, role user.Role) (*request.Request, error) {
	return s.mutate(ctx, requestID, false, func(req *request.Request) error {
		return req.Sign(actorID, role, s.clock.Now())
	})
}

// Deliver is the final system step after signing.
func (s *RequestCommandService) Deliver(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	return s.mutate(ctx, requestID, false, func(req *request.Request) error {
		return req.Deliver(s.clock.Now())
	})
}

// mutate runs the load, mutate, conditional-write cycle shared by every
// lifecycle command. The guard snapshot is taken before fn mutates the
// entity so the write re-verifies exactly the state fn decided against.
func (s *RequestCommandService) mutate(ctx context.Context, requestID uuid.UUID, claiming bool, fn func(req *request.Request) error) (*request.Request, error) {
	req, err := s.requests.FindByID(ctx, s.db, requestID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrRequestNotFound)
		}
		return nil, errs.Wrap(err, "failed to load request")
	}

	guard := req.Guard()
	if err := fn(req); err != nil {
		return nil, translateDomainErr(err)
	}

	if err := s.requests.UpdateGuarded(ctx, s.db, req, guard); err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			if claiming {
				return nil, errs.Mark(err, ErrClaimConflict)
			}
			return nil, errs.Mark(err, ErrStateConflict)
		}
		return nil, errs.Wrap(err, "failed to persist request state")
	}

	s.broadcast(ctx, req)
	return req, nil
}

func (s *RequestCommandService) broadcast(ctx context.Context, req *request.Request) {
	ev := notify.StatusEvent{
		RequestID:  req.ID(),
		Status:     req.Status().String(),
		OccurredAt: s.clock.Now(),
	}
	if err := s.notifier.NotifyStatusChange(ctx, ev); err != nil {
		s.logger.Warn("status broadcast failed",
			slog.String("request_id", req.ID().String()),
			slog.String("error", err.Error()))
	}
}

func translateDomainErr(err error) error {
	switch {
	case errors.Is(err, ErrPriceUnavailable):
		return err
	case errors.Is(err, request.ErrTerminalState):
		return errs.Mark(err, ErrTerminalRequest)
	case errors.Is(err, request.ErrForbiddenRole):
		return errs.Mark(err, ErrForbidden)
	case errors.Is(err, request.ErrNotAssigned):
		return errs.Mark(err, ErrNotAssignee)
	case errors.Is(err, request.ErrAlreadyClaimed):
		return errs.Mark(err, ErrClaimConflict)
	case errors.Is(err, request.ErrInvalidTransition):
		return errs.Mark(err, ErrInvalidTransition)
	case errors.Is(err, request.ErrPriceAlreadySet),
		errors.Is(err, request.ErrPriceNotSet),
		errors.Is(err, request.ErrNegativePrice):
		return errs.Mark(err, ErrInvalidTransition)
	default:
		return errs.Wrap(err, "request command failed")
	}
}
