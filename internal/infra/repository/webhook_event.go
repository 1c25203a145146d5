package repository

import (
	"context"

	"renovecare/internal/infra"
	"renovecare/internal/infra/db"
	"renovecare/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type WebhookEventRepository struct{}

func NewWebhookEventRepository() *WebhookEventRepository {
	return &WebhookEventRepository{}
}

const insertWebhookEventSQL = `
INSERT INTO webhook_events (id, provider, external_event_id, event_type, payload_raw, status, received_at)
VALUES ($1, $2, $3, $4, $5, 'pending', now())
ON CONFLICT (provider, external_event_id) DO NOTHING
RETURNING id`

// TryInsert claims a webhook event for processing. Returns false when the
// event was already recorded; processed events must not be re-applied, so
// callers check ProcessedStatus on the false path.
func (r *WebhookEventRepository) TryInsert(ctx context.Context, dbtx db.DBTX, provider, externalEventID, eventType string, payload []byte) (bool, error) {
	id := uuid.New()
	var inserted uuid.UUID
	err := dbtx.QueryRow(ctx, insertWebhookEventSQL, id, provider, externalEventID, eventType, payload).Scan(&inserted)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return false, nil
		}
		return false, infra.WrapRepoErr("failed to record webhook event", err)
	}
	return true, nil
}

const selectWebhookStatusSQL = `
SELECT status FROM webhook_events
WHERE provider = $1 AND external_event_id = $2`

func (r *WebhookEventRepository) ProcessedStatus(ctx context.Context, dbtx db.DBTX, provider, externalEventID string) (string, error) {
	var status string
	err := dbtx.QueryRow(ctx, selectWebhookStatusSQL, provider, externalEventID).Scan(&status)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return "", infra.WrapRepoErr("webhook event not found", err, infra.KindNotFound)
		}
		return "", infra.WrapRepoErr("failed to read webhook event", err)
	}
	return status, nil
}

const markWebhookEventSQL = `
UPDATE webhook_events SET status = $3, last_error = $4, processed_at = now()
WHERE provider = $1 AND external_event_id = $2`

func (r *WebhookEventRepository) MarkOutcome(ctx context.Context, dbtx db.DBTX, provider, externalEventID, status string, lastError *string) error {
	_, err := dbtx.Exec(ctx, markWebhookEventSQL, provider, externalEventID, status, pgconv.StringPtrToPgtype(lastError))
	if err != nil {
		return infra.WrapRepoErr("failed to mark webhook event", err)
	}
	return nil
}
