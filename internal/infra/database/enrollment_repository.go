package database

import (
	"context"
	"database/sql"
	"log"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type EnrollmentRepository struct {
	DB *sql.DB
}

func NewEnrollmentRepository(db *sql.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

const enrollmentColumns = `id, organization_id, student_id, course_name, status, total_cents, installments,
	start_date, asaas_subscription_id, canceled_at, created_at, updated_at`

func (r *EnrollmentRepository) Create(ctx context.Context, e *entity.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, organization_id, student_id, course_name, status, total_cents, installments,
			start_date, asaas_subscription_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.DB.ExecContext(ctx, query,
		e.ID,
		e.OrganizationID,
		e.StudentID,
		e.CourseName,
		string(e.Status),
		e.TotalCents,
		e.Installments,
		e.StartDate,
		nullString(e.AsaasSubscriptionID),
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		log.Printf("❌ Erro ao salvar matrícula %s: %v", e.ID, err)
		return mapError(err)
	}
	return nil
}

func (r *EnrollmentRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE organization_id = $1 AND id = $2`
	return scanEnrollment(r.DB.QueryRowContext(ctx, query, organizationID, id))
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, organizationID, studentID string) ([]*entity.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments
		WHERE organization_id = $1 AND student_id = $2 ORDER BY start_date DESC`
	rows, err := r.DB.QueryContext(ctx, query, organizationID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*entity.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *EnrollmentRepository) Update(ctx context.Context, e *entity.Enrollment) error {
	query := `
		UPDATE enrollments SET
			course_name = $3, status = $4, total_cents = $5, installments = $6, start_date = $7,
			asaas_subscription_id = $8, canceled_at = $9, updated_at = $10
		WHERE organization_id = $1 AND id = $2
	`
	return expectOne(r.DB.ExecContext(ctx, query,
		e.OrganizationID,
		e.ID,
		e.CourseName,
		string(e.Status),
		e.TotalCents,
		e.Installments,
		e.StartDate,
		nullString(e.AsaasSubscriptionID),
		e.CanceledAt,
		e.UpdatedAt,
	))
}

// Delete só é usado como compensação quando a criação da matrícula falha no meio do caminho.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	return mapError(err)
}

func scanEnrollment(row rowScanner) (*entity.Enrollment, error) {
	var (
		e          entity.Enrollment
		status     string
		asaasSubID sql.NullString
		canceledAt sql.NullTime
	)
	err := row.Scan(
		&e.ID,
		&e.OrganizationID,
		&e.StudentID,
		&e.CourseName,
		&status,
		&e.TotalCents,
		&e.Installments,
		&e.StartDate,
		&asaasSubID,
		&canceledAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	e.Status = entity.EnrollmentStatus(status)
	e.AsaasSubscriptionID = fromNull(asaasSubID)
	e.CanceledAt = fromNullTime(canceledAt)
	return &e, nil
}
