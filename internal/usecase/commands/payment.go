package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"renovecare/internal/domain/payment"
	"renovecare/internal/domain/request"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/infra/provider"
	"renovecare/internal/pkg/clock"
	"renovecare/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrRequestNotPayable   = errs.New("request is not awaiting payment")
	ErrActivePaymentExists = errs.New("request already has an active payment")
	ErrProviderFailure     = errs.New("payment provider failed, retry later")
	ErrPaymentRejected     = errs.New("payment was rejected by the provider")
)

type PaymentCommandService struct {
	db       db.DBTX
	requests RequestRepository
	payments PaymentRepository
	users    UserRepository
	provider PaymentProvider
	clock    clock.Clock
	logger   *slog.Logger
}

func NewPaymentCommandService(
	dbtx db.DBTX,
	requests RequestRepository,
	payments PaymentRepository,
	users UserRepository,
	prov PaymentProvider,
	clk clock.Clock,
	logger *slog.Logger,
) *PaymentCommandService {
	return &PaymentCommandService{
		db:       dbtx,
		requests: requests,
		payments: payments,
		users:    users,
		provider: prov,
		clock:    clk,
		logger:   logger,
	}
}

type CreatePaymentInput struct {
	RequestID uuid.UUID
	PayerID   uuid.UUID
	Method    payment.Method
}

type CreatePaymentResult struct {
	Payment *payment.Payment
	// Existed is true when an active payment already covered this charge and
	// was returned instead of opening a new one.
	Existed bool
}

// CreateOrGet opens a charge for an approved request, or returns the active
// payment already covering it. The deterministic idempotency key plus the
// partial unique index on active payments guarantee at most one active
// charge per request no matter how the call is raced or retried.
func (s *PaymentCommandService) CreateOrGet(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	req, err := s.requests.FindByID(ctx, s.db, input.RequestID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrRequestNotFound)
		}
		return nil, errs.Wrap(err, "failed to load request")
	}
	// Paying someone else's request reads as not found, same as a bad id.
	if req.PatientID() != input.PayerID {
		return nil, ErrRequestNotFound
	}
	if req.Status() != request.StatusApprovedPendingPay {
		return nil, ErrRequestNotPayable
	}
	priceCents := req.PriceCents()
	if priceCents == nil {
		return nil, ErrRequestNotPayable
	}

	subtype := req.Payload().ServiceSubtype(req.Variant())
	key := payment.IdempotencyKey(req.ID(), input.PayerID, req.Variant(), subtype)

	// Cheap pre-check so the common double-submit skips the provider call.
	// The constraints below remain the actual correctness mechanism.
	if existing, err := s.payments.FindByIdempotencyKey(ctx, s.db, key); err == nil {
		if existing.Status().IsActive() {
			return &CreatePaymentResult{Payment: existing, Existed: true}, nil
		}
	} else if !infra.IsKind(err, infra.KindNotFound) {
		return nil, errs.Wrap(err, "failed to check idempotency key")
	}
	if active, err := s.payments.FindActiveByRequest(ctx, s.db, req.ID(), req.Variant()); err == nil {
		if active.PayerID() == input.PayerID {
			return &CreatePaymentResult{Payment: active, Existed: true}, nil
		}
		return nil, ErrActivePaymentExists
	} else if !infra.IsKind(err, infra.KindNotFound) {
		return nil, errs.Wrap(err, "failed to check active payments")
	}

	payer, err := s.users.FindByID(ctx, s.db, input.PayerID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to load payer")
	}

	charge, err := s.provider.Charge(ctx, provider.ChargeRequest{
		RequestID:      req.ID(),
		IdempotencyKey: key,
		Method:         input.Method,
		AmountCents:    *priceCents,
		Description:    chargeDescription(req),
		PayerEmail:     payer.Email().String(),
	})
	if err != nil {
		if errors.Is(err, provider.ErrProviderRejected) {
			return nil, errs.Mark(err, ErrPaymentRejected)
		}
		return nil, errs.Mark(err, ErrProviderFailure)
	}

	// The version captured at approval, so the stamped row always matches
	// amount_cents_locked even if the price list rotated since.
	pricingVersionID := req.PricingVersionID()

	providerID := charge.ProviderPaymentID
	p, err := payment.NewPayment(req.ID(), req.Variant(), input.PayerID, input.Method,
		*priceCents, key, &providerID, pricingVersionID, charge.Artifacts)
	if err != nil {
		return nil, errs.Wrap(err, "failed to build payment")
	}

	if err := s.payments.Insert(ctx, s.db, p); err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			// Lost the race; hand back whichever row won.
			winner, ferr := s.payments.FindByIdempotencyKey(ctx, s.db, key)
			if ferr != nil {
				winner, ferr = s.payments.FindActiveByRequest(ctx, s.db, req.ID(), req.Variant())
			}
			if ferr != nil {
				return nil, errs.Wrap(ferr, "failed to load winning payment")
			}
			return &CreatePaymentResult{Payment: winner, Existed: true}, nil
		}
		return nil, errs.Wrap(err, "failed to insert payment")
	}

	return &CreatePaymentResult{Payment: p, Existed: false}, nil
}

func chargeDescription(req *request.Request) string {
	switch req.Variant() {
	case request.VariantPrescription:
		return "Renovação de receita"
	case request.VariantExam:
		return "Pedido de exame"
	case request.VariantConsultation:
		return "Teleconsulta"
	default:
		return fmt.Sprintf("Serviço %s", req.Variant())
	}
}
