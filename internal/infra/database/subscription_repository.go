package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// SubscriptionRepository espelha as assinaturas do Asaas (sub_xxxx) localmente.
type SubscriptionRepository struct {
	DB *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *entity.BillingSubscription) error {
	query := `
		INSERT INTO billing_subscriptions (
			id,
			organization_id,
			student_id,
			enrollment_id,
			asaas_customer_id,
			value_cents,
			cycle,
			billing_type,
			status,
			next_due_date,
			synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			student_id = COALESCE(EXCLUDED.student_id, billing_subscriptions.student_id),
			enrollment_id = COALESCE(EXCLUDED.enrollment_id, billing_subscriptions.enrollment_id),
			value_cents = EXCLUDED.value_cents,
			cycle = EXCLUDED.cycle,
			billing_type = EXCLUDED.billing_type,
			status = EXCLUDED.status,
			next_due_date = EXCLUDED.next_due_date,
			synced_at = EXCLUDED.synced_at
	`
	_, err := r.DB.ExecContext(ctx, query,
		sub.ID,
		sub.OrganizationID,
		nullString(sub.StudentID),
		nullString(sub.EnrollmentID),
		sub.AsaasCustomerID,
		sub.ValueCents,
		sub.Cycle,
		sub.BillingType,
		sub.Status,
		sub.NextDueDate,
		sub.SyncedAt,
	)
	return mapError(err)
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*entity.BillingSubscription, error) {
	query := `
		SELECT id, organization_id, student_id, enrollment_id, asaas_customer_id, value_cents,
			cycle, billing_type, status, next_due_date, synced_at
		FROM billing_subscriptions WHERE id = $1
	`
	var (
		sub                   entity.BillingSubscription
		studentID, enrollment sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&sub.ID,
		&sub.OrganizationID,
		&studentID,
		&enrollment,
		&sub.AsaasCustomerID,
		&sub.ValueCents,
		&sub.Cycle,
		&sub.BillingType,
		&sub.Status,
		&sub.NextDueDate,
		&sub.SyncedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	sub.StudentID = fromNull(studentID)
	sub.EnrollmentID = fromNull(enrollment)
	return &sub, nil
}
