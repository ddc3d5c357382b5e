package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type PaymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

// Upsert é idempotente por id do Asaas: webhook e sync podem chegar em qualquer ordem.
func (r *PaymentRepository) Upsert(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (id, organization_id, student_id, asaas_customer_id, subscription_id, value_cents,
			net_value_cents, billing_type, status, due_date, paid_at, invoice_url, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			student_id = COALESCE(EXCLUDED.student_id, payments.student_id),
			subscription_id = COALESCE(EXCLUDED.subscription_id, payments.subscription_id),
			value_cents = EXCLUDED.value_cents,
			net_value_cents = EXCLUDED.net_value_cents,
			billing_type = EXCLUDED.billing_type,
			status = EXCLUDED.status,
			due_date = EXCLUDED.due_date,
			paid_at = COALESCE(EXCLUDED.paid_at, payments.paid_at),
			invoice_url = COALESCE(EXCLUDED.invoice_url, payments.invoice_url),
			synced_at = EXCLUDED.synced_at
	`
	_, err := r.DB.ExecContext(ctx, query,
		p.ID,
		p.OrganizationID,
		nullString(p.StudentID),
		p.AsaasCustomerID,
		nullString(p.SubscriptionID),
		p.ValueCents,
		p.NetValueCents,
		p.BillingType,
		p.Status,
		p.DueDate,
		p.PaidAt,
		nullString(p.InvoiceURL),
		p.SyncedAt,
	)
	return mapError(err)
}

func (r *PaymentRepository) ListByStudent(ctx context.Context, organizationID, studentID string) ([]*entity.Payment, error) {
	query := `
		SELECT id, organization_id, student_id, asaas_customer_id, subscription_id, value_cents,
			net_value_cents, billing_type, status, due_date, paid_at, invoice_url, synced_at
		FROM payments
		WHERE organization_id = $1 AND student_id = $2
		ORDER BY due_date DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, organizationID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*entity.Payment
	for rows.Next() {
		var (
			p                        entity.Payment
			student, sub, invoiceURL sql.NullString
			paidAt                   sql.NullTime
		)
		if err := rows.Scan(
			&p.ID,
			&p.OrganizationID,
			&student,
			&p.AsaasCustomerID,
			&sub,
			&p.ValueCents,
			&p.NetValueCents,
			&p.BillingType,
			&p.Status,
			&p.DueDate,
			&paidAt,
			&invoiceURL,
			&p.SyncedAt,
		); err != nil {
			return nil, err
		}
		p.StudentID = fromNull(student)
		p.SubscriptionID = fromNull(sub)
		p.InvoiceURL = fromNull(invoiceURL)
		p.PaidAt = fromNullTime(paidAt)
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (r *PaymentRepository) SumReceivedBetween(ctx context.Context, organizationID string, from, to time.Time) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(value_cents), 0) FROM payments
		WHERE organization_id = $1 AND status IN ($2, $3) AND paid_at >= $4 AND paid_at <= $5
	`, organizationID, entity.PaymentReceived, entity.PaymentConfirmed, from, to).Scan(&total)
	return total, err
}

func (r *PaymentRepository) CountOverdue(ctx context.Context, organizationID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE organization_id = $1 AND status = $2`,
		organizationID, entity.PaymentOverdue).Scan(&n)
	return n, err
}
