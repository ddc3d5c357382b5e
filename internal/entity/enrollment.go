package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentCanceled  EnrollmentStatus = "CANCELED"
)

type Enrollment struct {
	ID                  string           `json:"id"`
	OrganizationID      string           `json:"organization_id"`
	StudentID           string           `json:"student_id"`
	CourseName          string           `json:"course_name"`
	Status              EnrollmentStatus `json:"status"`
	TotalCents          int              `json:"total_cents"`
	Installments        int              `json:"installments"`
	StartDate           time.Time        `json:"start_date"`
	AsaasSubscriptionID string           `json:"asaas_subscription_id,omitempty"`
	CanceledAt          *time.Time       `json:"canceled_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func NewEnrollment(organizationID, studentID, courseName string, totalCents, installments int, startDate time.Time) (*Enrollment, error) {
	if studentID == "" {
		return nil, errors.New("student_id is required")
	}
	if courseName == "" {
		return nil, errors.New("course_name is required")
	}
	if totalCents < 0 {
		return nil, errors.New("total_cents must not be negative")
	}
	if installments <= 0 {
		installments = 1
	}
	if startDate.IsZero() {
		startDate = time.Now()
	}

	now := time.Now()
	return &Enrollment{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		StudentID:      studentID,
		CourseName:     courseName,
		Status:         EnrollmentActive,
		TotalCents:     totalCents,
		Installments:   installments,
		StartDate:      startDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// InstallmentCents é o valor de cada cobrança mensal, arredondado para cima.
func (e *Enrollment) InstallmentCents() int {
	if e.Installments <= 1 {
		return e.TotalCents
	}
	return (e.TotalCents + e.Installments - 1) / e.Installments
}

type EnrollmentRepositoryInterface interface {
	Create(ctx context.Context, e *Enrollment) error
	FindByID(ctx context.Context, organizationID, id string) (*Enrollment, error)
	ListByStudent(ctx context.Context, organizationID, studentID string) ([]*Enrollment, error)
	Update(ctx context.Context, e *Enrollment) error
	Delete(ctx context.Context, id string) error
}
