package entity

import (
	"context"
	"encoding/json"
	"time"
)

const (
	WebhookPending   = "PENDING"
	WebhookProcessed = "PROCESSED"
	WebhookFailed    = "FAILED"
)

// WebhookEvent guarda o payload cru recebido do Asaas para reprocessamento.
type WebhookEvent struct {
	ID          string          `json:"id"` // evt_xxxx do Asaas
	Provider    string          `json:"provider"`
	Event       string          `json:"event"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"last_error,omitempty"`
	ReceivedAt  time.Time       `json:"received_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

type WebhookEventRepositoryInterface interface {
	// Create devolve ErrDuplicate quando o id do evento já foi gravado.
	Create(ctx context.Context, e *WebhookEvent) error
	FindByID(ctx context.Context, id string) (*WebhookEvent, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
	ListRetryable(ctx context.Context, maxAttempts int, olderThan time.Time, limit int) ([]*WebhookEvent, error)
}
