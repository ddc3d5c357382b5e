package entity

import (
	"context"
	"time"
)

// BillingSubscription espelha uma assinatura do Asaas (cobrança recorrente de uma matrícula).
type BillingSubscription struct {
	ID              string    `json:"id"` // sub_xxxx do Asaas
	OrganizationID  string    `json:"organization_id"`
	StudentID       string    `json:"student_id,omitempty"`
	EnrollmentID    string    `json:"enrollment_id,omitempty"`
	AsaasCustomerID string    `json:"asaas_customer_id"`
	ValueCents      int       `json:"value_cents"`
	Cycle           string    `json:"cycle"`        // MONTHLY, YEARLY
	BillingType     string    `json:"billing_type"` // BOLETO, PIX, CREDIT_CARD, UNDEFINED
	Status          string    `json:"status"`       // ACTIVE, INACTIVE, EXPIRED
	NextDueDate     time.Time `json:"next_due_date"`
	SyncedAt        time.Time `json:"synced_at"`
}

type BillingSubscriptionRepository interface {
	Upsert(ctx context.Context, sub *BillingSubscription) error
	FindByID(ctx context.Context, id string) (*BillingSubscription, error)
}
