//go:build unit

package commands_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"renovecare/internal/domain/payment"
	"renovecare/internal/domain/request"
	"renovecare/internal/infra"
	"renovecare/internal/infra/provider"
	"renovecare/internal/pkg/clock"
	"renovecare/internal/usecase/commands"
	"renovecare/tests/common/builder"
	commandsmock "renovecare/tests/mock/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PaymentCommandTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	requests *commandsmock.MockRequestRepository
	payments *commandsmock.MockPaymentRepository
	users    *commandsmock.MockUserRepository
	provider *commandsmock.MockPaymentProvider
	service  *commands.PaymentCommandService

	pricingVersionID uuid.UUID
}

func TestPaymentCommandSuite(t *testing.T) {
	suite.Run(t, new(PaymentCommandTestSuite))
}

func (s *PaymentCommandTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.requests = commandsmock.NewMockRequestRepository(s.ctrl)
	s.payments = commandsmock.NewMockPaymentRepository(s.ctrl)
	s.users = commandsmock.NewMockUserRepository(s.ctrl)
	s.provider = commandsmock.NewMockPaymentProvider(s.ctrl)

	s.pricingVersionID = uuid.New()

	s.service = commands.NewPaymentCommandService(
		nil,
		s.requests,
		s.payments,
		s.users,
		s.provider,
		clock.NewMockClock(time.Now()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func (s *PaymentCommandTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *PaymentCommandTestSuite) approvedRequest(payerID uuid.UUID) *request.Request {
	b := builder.NewRequestBuilder().
		WithStatus(request.StatusApprovedPendingPay).
		WithPrice(3990).
		WithPricingVersion(s.pricingVersionID)
	b.PatientID = payerID
	return b.Reconstruct()
}

func notFoundErr() error {
	return infra.WrapRepoErr("no rows", nil, infra.KindNotFound)
}

func (s *PaymentCommandTestSuite) TestCreateOrGet() {
	ctx := context.Background()
	payerID := uuid.New()
	payer := builder.NewUserBuilder().BuildDomain()

	s.Run("opens a charge and stores the payment", func() {
		req := s.approvedRequest(payerID)
		key := payment.IdempotencyKey(req.ID(), payerID, req.Variant(), "laboratory")

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)
		s.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any(), key).Return(nil, notFoundErr())
		s.payments.EXPECT().FindActiveByRequest(gomock.Any(), gomock.Any(), req.ID(), req.Variant()).Return(nil, notFoundErr())
		s.users.EXPECT().FindByID(gomock.Any(), gomock.Any(), payerID).Return(payer, nil)
		s.provider.EXPECT().Charge(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, charge provider.ChargeRequest) (*provider.ChargeResult, error) {
				s.Equal(key, charge.IdempotencyKey)
				s.Equal(int64(3990), charge.AmountCents)
				s.Equal(payment.MethodPix, charge.Method)
				return &provider.ChargeResult{ProviderPaymentID: "mp-123"}, nil
			})
		s.payments.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().NoError(err)
		s.False(result.Existed)
		s.Equal(int64(3990), result.Payment.AmountCentsLocked())
		s.Equal(key, result.Payment.IdempotencyKey())
		s.Equal(payment.StatusPending, result.Payment.Status())
		// The stamped version is the one locked onto the request at
		// approval, so it always matches amount_cents_locked even when
		// the active price list has rotated since.
		s.Require().NotNil(result.Payment.PricingVersionID())
		s.Equal(s.pricingVersionID, *result.Payment.PricingVersionID())
	})

	s.Run("double submit returns the active payment without charging again", func() {
		req := s.approvedRequest(payerID)
		key := payment.IdempotencyKey(req.ID(), payerID, req.Variant(), "laboratory")
		existing, err := payment.NewPayment(req.ID(), req.Variant(), payerID, payment.MethodPix, 3990, key, nil, nil, payment.CheckoutArtifacts{})
		s.Require().NoError(err)

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)
		s.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any(), key).Return(existing, nil)

		result, err := s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().NoError(err)
		s.True(result.Existed)
		s.Same(existing, result.Payment)
	})

	s.Run("failed previous payment does not block a retry", func() {
		req := s.approvedRequest(payerID)
		key := payment.IdempotencyKey(req.ID(), payerID, req.Variant(), "laboratory")
		failed := payment.ReconstructPayment(uuid.New(), req.ID(), req.Variant(), payerID,
			payment.MethodPix, 3990, key, payment.StatusFailed, nil, nil,
			payment.CheckoutArtifacts{}, time.Now(), time.Now())

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)
		s.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any(), key).Return(failed, nil)
		s.payments.EXPECT().FindActiveByRequest(gomock.Any(), gomock.Any(), req.ID(), req.Variant()).Return(nil, notFoundErr())
		s.users.EXPECT().FindByID(gomock.Any(), gomock.Any(), payerID).Return(payer, nil)
		s.provider.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(&provider.ChargeResult{ProviderPaymentID: "mp-456"}, nil)
		s.payments.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().NoError(err)
		s.False(result.Existed)
		s.Equal("mp-456", *result.Payment.ProviderPaymentID())
	})

	s.Run("insert race hands back the winning row", func() {
		req := s.approvedRequest(payerID)
		key := payment.IdempotencyKey(req.ID(), payerID, req.Variant(), "laboratory")
		winner, err := payment.NewPayment(req.ID(), req.Variant(), payerID, payment.MethodPix, 3990, key, nil, nil, payment.CheckoutArtifacts{})
		s.Require().NoError(err)

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)
		s.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any(), key).Return(nil, notFoundErr())
		s.payments.EXPECT().FindActiveByRequest(gomock.Any(), gomock.Any(), req.ID(), req.Variant()).Return(nil, notFoundErr())
		s.users.EXPECT().FindByID(gomock.Any(), gomock.Any(), payerID).Return(payer, nil)
		s.provider.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(&provider.ChargeResult{ProviderPaymentID: "mp-789"}, nil)
		s.payments.EXPECT().Insert(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(infra.WrapRepoErr("duplicate", nil, infra.KindDuplicateKey))
		s.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any(), key).Return(winner, nil)

		result, err := s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().NoError(err)
		s.True(result.Existed)
		s.Same(winner, result.Payment)
	})

	s.Run("provider outage surfaces as a retryable failure", func() {
		req := s.approvedRequest(payerID)

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)
		s.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, notFoundErr())
		s.payments.EXPECT().FindActiveByRequest(gomock.Any(), gomock.Any(), req.ID(), req.Variant()).Return(nil, notFoundErr())
		s.users.EXPECT().FindByID(gomock.Any(), gomock.Any(), payerID).Return(payer, nil)
		s.provider.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(nil, provider.ErrProviderUnavailable)

		_, err := s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().ErrorIs(err, commands.ErrProviderFailure)
	})

	s.Run("provider rejection is not retryable as-is", func() {
		req := s.approvedRequest(payerID)

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)
		s.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, notFoundErr())
		s.payments.EXPECT().FindActiveByRequest(gomock.Any(), gomock.Any(), req.ID(), req.Variant()).Return(nil, notFoundErr())
		s.users.EXPECT().FindByID(gomock.Any(), gomock.Any(), payerID).Return(payer, nil)
		s.provider.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(nil, provider.ErrProviderRejected)

		_, err := s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().ErrorIs(err, commands.ErrPaymentRejected)
	})

	s.Run("paying someone else's request reads as not found", func() {
		req := s.approvedRequest(uuid.New())

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)

		_, err := s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().ErrorIs(err, commands.ErrRequestNotFound)
	})

	s.Run("unapproved request is not payable", func() {
		b := builder.NewRequestBuilder()
		b.PatientID = payerID
		req := b.Reconstruct()

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)

		_, err := s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().ErrorIs(err, commands.ErrRequestNotPayable)
	})

	s.Run("another payer already holds the active payment", func() {
		req := s.approvedRequest(payerID)
		otherPayer := uuid.New()
		otherKey := payment.IdempotencyKey(req.ID(), otherPayer, req.Variant(), "laboratory")
		active, err := payment.NewPayment(req.ID(), req.Variant(), otherPayer, payment.MethodPix, 3990, otherKey, nil, nil, payment.CheckoutArtifacts{})
		s.Require().NoError(err)

		s.requests.EXPECT().FindByID(gomock.Any(), gomock.Any(), req.ID()).Return(req, nil)
		s.payments.EXPECT().FindByIdempotencyKey(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, notFoundErr())
		s.payments.EXPECT().FindActiveByRequest(gomock.Any(), gomock.Any(), req.ID(), req.Variant()).Return(active, nil)

		_, err = s.service.CreateOrGet(ctx, commands.CreatePaymentInput{
			RequestID: req.ID(),
			PayerID:   payerID,
			Method:    payment.MethodPix,
		})

		s.Require().ErrorIs(err, commands.ErrActivePaymentExists)
	})
}
