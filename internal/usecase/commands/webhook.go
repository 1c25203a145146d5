package commands

import (
	"context"
	"errors"
	"log/slog"

	"renovecare/internal/domain/payment"
	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/infra/notify"
	"renovecare/internal/infra/provider"
	"renovecare/internal/pkg/clock"
	"renovecare/internal/pkg/errs"
)

const (
	webhookOutcomeProcessed = "processed"
	webhookOutcomeIgnored   = "ignored"
	webhookOutcomeFailed    = "failed"
)

type WebhookCommandService struct {
	txm      TxManager
	requests RequestRepository
	payments PaymentRepository
	events   WebhookEventRepository
	provider PaymentProvider
	notifier StatusNotifier
	clock    clock.Clock
	logger   *slog.Logger
}

func NewWebhookCommandService(
	txm TxManager,
	requests RequestRepository,
	payments PaymentRepository,
	events WebhookEventRepository,
	prov PaymentProvider,
	notifier StatusNotifier,
	clk clock.Clock,
	logger *slog.Logger,
) *WebhookCommandService {
	return &WebhookCommandService{
		txm:      txm,
		requests: requests,
		payments: payments,
		events:   events,
		provider: prov,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// ProviderEventInput deliberately carries no payment status. The signature
// only covers data.id, so the status in a notification body is untrusted;
// the service asks the provider for the authoritative status instead.
type ProviderEventInput struct {
	Provider          string
	ExternalEventID   string
	EventType         string
	ProviderPaymentID string
	RawPayload        []byte
}

// HandleProviderEvent applies one provider notification exactly once. The
// unique (provider, external_event_id) insert is the dedupe gate; redelivered
// events hit the conflict and return without side effects. All writes for one
// event share a transaction so a crash mid-apply replays cleanly.
func (s *WebhookCommandService) HandleProviderEvent(ctx context.Context, input ProviderEventInput) error {
	var changed *notify.StatusEvent

	err := s.txm.WithinTx(ctx, func(dbtx db.DBTX) error {
		inserted, err := s.events.TryInsert(ctx, dbtx,
			input.Provider, input.ExternalEventID, input.EventType, input.RawPayload)
		if err != nil {
			return errs.Wrap(err, "failed to record webhook event")
		}
		if !inserted {
			return nil
		}

		ev, outcome, err := s.applyEvent(ctx, dbtx, input)
		if err != nil {
			msg := err.Error()
			if markErr := s.events.MarkOutcome(ctx, dbtx,
				input.Provider, input.ExternalEventID, webhookOutcomeFailed, &msg); markErr != nil {
				return errs.Wrap(markErr, "failed to mark webhook outcome")
			}
			return err
		}
		changed = ev
		return s.events.MarkOutcome(ctx, dbtx, input.Provider, input.ExternalEventID, outcome, nil)
	})
	if err != nil {
		return err
	}

	if changed != nil {
		if nerr := s.notifier.NotifyStatusChange(ctx, *changed); nerr != nil {
			s.logger.Warn("status broadcast failed",
				slog.String("request_id", changed.RequestID.String()),
				slog.String("error", nerr.Error()))
		}
	}
	return nil
}

func (s *WebhookCommandService) applyEvent(ctx context.Context, dbtx db.DBTX, input ProviderEventInput) (*notify.StatusEvent, string, error) {
	p, err := s.payments.FindByProviderPaymentID(ctx, dbtx, input.ProviderPaymentID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// Event for a charge we never opened; keep the dedupe row so the
			// provider stops retrying.
			return nil, webhookOutcomeIgnored, nil
		}
		return nil, "", errs.Wrap(err, "failed to correlate payment")
	}

	providerStatus, err := s.provider.PaymentStatus(ctx, input.ProviderPaymentID)
	if err != nil {
		if errors.Is(err, provider.ErrPaymentNotFound) {
			return nil, webhookOutcomeIgnored, nil
		}
		// The error rolls the dedupe row back, so the redelivery retries
		// the lookup.
		return nil, "", errs.Wrap(err, "failed to fetch provider payment status")
	}

	target, known := mapProviderStatus(providerStatus)
	if !known {
		return nil, webhookOutcomeIgnored, nil
	}

	if p.Status() == target {
		return nil, webhookOutcomeIgnored, nil
	}
	if err := s.payments.UpdateStatusGuarded(ctx, dbtx, p.ID(), p.Status(), target); err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			// Another delivery already moved the payment; nothing left to do.
			return nil, webhookOutcomeIgnored, nil
		}
		return nil, "", errs.Wrap(err, "failed to update payment status")
	}

	if target != payment.StatusCompleted {
		return nil, webhookOutcomeProcessed, nil
	}

	req, err := s.requests.FindByID(ctx, dbtx, p.RequestID())
	if err != nil {
		return nil, "", errs.Wrap(err, "failed to load paid request")
	}
	guard := req.Guard()
	if err := req.MarkPaid(s.clock.Now()); err != nil {
		return nil, "", translateDomainErr(err)
	}
	if req.Status() == guard.Status {
		// MarkPaid was a no-op on an already-paid request.
		return nil, webhookOutcomeProcessed, nil
	}
	if err := s.requests.UpdateGuarded(ctx, dbtx, req, guard); err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			return nil, webhookOutcomeIgnored, nil
		}
		return nil, "", errs.Wrap(err, "failed to persist paid request")
	}

	return &notify.StatusEvent{
		RequestID:  req.ID(),
		Status:     req.Status().String(),
		OccurredAt: s.clock.Now(),
	}, webhookOutcomeProcessed, nil
}

// mapProviderStatus translates Mercado Pago payment statuses onto ours.
func mapProviderStatus(providerStatus string) (payment.Status, bool) {
	switch providerStatus {
	case "approved":
		return payment.StatusCompleted, true
	case "pending", "in_process", "authorized":
		return payment.StatusProcessing, true
	case "rejected", "cancelled", "expired":
		return payment.StatusFailed, true
	case "refunded", "charged_back":
		return payment.StatusRefunded, true
	default:
		return "", false
	}
}
