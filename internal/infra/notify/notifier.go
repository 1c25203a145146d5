package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"renovecare/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestChannel = "request_status_changed"

// StatusEvent is broadcast whenever a request changes status so interested
// processes (delivery workers, dashboards) can react without polling the
// whole table.
type StatusEvent struct {
	RequestID  uuid.UUID `json:"request_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Handler func(ctx context.Context, ev StatusEvent)

// PGNotifier publishes status events over Postgres NOTIFY.
type PGNotifier struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGNotifier(pool *pgxpool.Pool, logger *slog.Logger) *PGNotifier {
	return &PGNotifier{pool: pool, logger: logger}
}

func (n *PGNotifier) NotifyStatusChange(ctx context.Context, ev StatusEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errs.Wrap(err, "failed to encode status event")
	}
	if _, err := n.pool.Exec(ctx, "SELECT pg_notify($1, $2)", requestChannel, string(payload)); err != nil {
		return errs.Wrap(err, "failed to publish status event")
	}
	return nil
}

// Listener consumes status events. It prefers LISTEN/NOTIFY on a dedicated
// connection and falls back to polling the requests table when the pool
// cannot hold a connection long enough (pgbouncer in transaction mode).
type Listener struct {
	pool         *pgxpool.Pool
	logger       *slog.Logger
	handler      Handler
	pollInterval time.Duration
}

func NewListener(pool *pgxpool.Pool, logger *slog.Logger, handler Handler) *Listener {
	return &Listener{
		pool:         pool,
		logger:       logger,
		handler:      handler,
		pollInterval: 5 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := l.listenLoop(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("listen loop failed, falling back to polling",
				slog.String("error", err.Error()))
			l.pollOnce(ctx)
			select {
			case <-ctx.Done():
			case <-time.After(l.pollInterval):
			}
		}
	}
}

func (l *Listener) listenLoop(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return errs.Wrap(err, "failed to acquire listen connection")
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+requestChannel); err != nil {
		return errs.Wrap(err, "LISTEN not supported on this connection")
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return errs.Wrap(err, "failed waiting for notification")
		}
		var ev StatusEvent
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			l.logger.Warn("dropping malformed status event",
				slog.String("payload", notification.Payload))
			continue
		}
		l.handler(ctx, ev)
	}
}

func (l *Listener) pollOnce(ctx context.Context) {
	since := time.Now().Add(-l.pollInterval)
	rows, err := l.pool.Query(ctx,
		`SELECT id, status, updated_at FROM requests WHERE updated_at >= $1`, since)
	if err != nil {
		l.logger.Warn("status poll failed", slog.String("error", err.Error()))
		return
	}
	defer rows.Close()

	for rows.Next() {
		var ev StatusEvent
		if err := rows.Scan(&ev.RequestID, &ev.Status, &ev.OccurredAt); err != nil {
			l.logger.Warn("status poll scan failed", slog.String("error", err.Error()))
			return
		}
		l.handler(ctx, ev)
	}
}
