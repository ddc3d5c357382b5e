package entity

import (
	"context"
	"time"
)

const (
	PaymentPending   = "PENDING"
	PaymentReceived  = "RECEIVED"
	PaymentConfirmed = "CONFIRMED"
	PaymentOverdue   = "OVERDUE"
	PaymentRefunded  = "REFUNDED"
	PaymentDeleted   = "DELETED"
)

// Payment espelha uma cobrança (pay_xxxx) do Asaas.
type Payment struct {
	ID              string     `json:"id"`
	OrganizationID  string     `json:"organization_id"`
	StudentID       string     `json:"student_id,omitempty"`
	AsaasCustomerID string     `json:"asaas_customer_id"`
	SubscriptionID  string     `json:"subscription_id,omitempty"`
	ValueCents      int        `json:"value_cents"`
	NetValueCents   int        `json:"net_value_cents"`
	BillingType     string     `json:"billing_type"`
	Status          string     `json:"status"`
	DueDate         time.Time  `json:"due_date"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	InvoiceURL      string     `json:"invoice_url,omitempty"`
	SyncedAt        time.Time  `json:"synced_at"`
}

// IsPaid indica se o Asaas já recebeu o dinheiro.
func (p *Payment) IsPaid() bool {
	return p.Status == PaymentReceived || p.Status == PaymentConfirmed
}

type PaymentRepositoryInterface interface {
	Upsert(ctx context.Context, p *Payment) error
	ListByStudent(ctx context.Context, organizationID, studentID string) ([]*Payment, error)
	SumReceivedBetween(ctx context.Context, organizationID string, from, to time.Time) (int, error)
	CountOverdue(ctx context.Context, organizationID string) (int, error)
}
