package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// WebhookEventRepository é a caixa de entrada dos webhooks: o id do evento é a chave
// de idempotência.
type WebhookEventRepository struct {
	DB *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{DB: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, e *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, provider, event, payload, status, attempts, received_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
	`
	_, err := r.DB.ExecContext(ctx, query, e.ID, e.Provider, e.Event, []byte(e.Payload), e.Status, e.ReceivedAt)
	return mapError(err)
}

func (r *WebhookEventRepository) FindByID(ctx context.Context, id string) (*entity.WebhookEvent, error) {
	query := `
		SELECT id, provider, event, payload, status, attempts, last_error, received_at, processed_at
		FROM webhook_events WHERE id = $1
	`
	return scanWebhookEvent(r.DB.QueryRowContext(ctx, query, id))
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id string) error {
	return expectOne(r.DB.ExecContext(ctx, `
		UPDATE webhook_events
		SET status = $2, attempts = attempts + 1, last_error = NULL, processed_at = NOW()
		WHERE id = $1
	`, id, entity.WebhookProcessed))
}

func (r *WebhookEventRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return expectOne(r.DB.ExecContext(ctx, `
		UPDATE webhook_events
		SET status = $2, attempts = attempts + 1, last_error = $3
		WHERE id = $1
	`, id, entity.WebhookFailed, reason))
}

func (r *WebhookEventRepository) ListRetryable(ctx context.Context, maxAttempts int, olderThan time.Time, limit int) ([]*entity.WebhookEvent, error) {
	query := `
		SELECT id, provider, event, payload, status, attempts, last_error, received_at, processed_at
		FROM webhook_events
		WHERE status IN ($1, $2) AND attempts < $3 AND received_at < $4
		ORDER BY received_at ASC
		LIMIT $5
	`
	rows, err := r.DB.QueryContext(ctx, query, entity.WebhookPending, entity.WebhookFailed, maxAttempts, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*entity.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanWebhookEvent(row rowScanner) (*entity.WebhookEvent, error) {
	var (
		e           entity.WebhookEvent
		payload     []byte
		lastError   sql.NullString
		processedAt sql.NullTime
	)
	err := row.Scan(
		&e.ID,
		&e.Provider,
		&e.Event,
		&payload,
		&e.Status,
		&e.Attempts,
		&lastError,
		&e.ReceivedAt,
		&processedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	e.Payload = payload
	e.LastError = fromNull(lastError)
	e.ProcessedAt = fromNullTime(processedAt)
	return &e, nil
}
