package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/asaas"
	"github.com/xavierca1/ligue-crm/internal/infra/telemetry"
)

type CreateEnrollmentInput struct {
	StudentID     string `json:"student_id"`
	CourseName    string `json:"course_name"`
	TotalCents    int    `json:"total_cents"`
	Installments  int    `json:"installments"`
	StartDate     string `json:"start_date"`   // YYYY-MM-DD ou dd/mm/aaaa
	BillingType   string `json:"billing_type"` // BOLETO, PIX, CREDIT_CARD, UNDEFINED
	CreateBilling bool   `json:"create_billing"`
}

type EnrollmentUseCase struct {
	Repo          entity.EnrollmentRepositoryInterface
	Students      entity.StudentRepositoryInterface
	Subscriptions entity.BillingSubscriptionRepository
	Gateway       BillingGateway
	Auditor       Auditor
}

func NewEnrollmentUseCase(
	repo entity.EnrollmentRepositoryInterface,
	students entity.StudentRepositoryInterface,
	subs entity.BillingSubscriptionRepository,
	gateway BillingGateway,
	auditor Auditor,
) *EnrollmentUseCase {
	if auditor == nil {
		auditor = nopAuditor{}
	}
	return &EnrollmentUseCase{
		Repo:          repo,
		Students:      students,
		Subscriptions: subs,
		Gateway:       gateway,
		Auditor:       auditor,
	}
}

// CreateEnrollment grava a matrícula e, se pedido, abre cliente + assinatura no Asaas.
// Falha no Asaas desfaz a matrícula local (saga).
func (uc *EnrollmentUseCase) CreateEnrollment(ctx context.Context, actor Actor, input CreateEnrollmentInput) (*entity.Enrollment, error) {
	var errs []ValidationError
	if input.StudentID == "" {
		errs = append(errs, ValidationError{"student_id", "is required"})
	}
	if strings.TrimSpace(input.CourseName) == "" {
		errs = append(errs, ValidationError{"course_name", "is required"})
	}
	if input.TotalCents < 0 {
		errs = append(errs, ValidationError{"total_cents", "must not be negative"})
	}
	if input.CreateBilling && input.TotalCents == 0 {
		errs = append(errs, ValidationError{"total_cents", "must be positive to create billing"})
	}
	var start time.Time
	if input.StartDate != "" {
		d, ok := parseBRDate(input.StartDate)
		if !ok {
			errs = append(errs, ValidationError{"start_date", "must be a valid date (YYYY-MM-DD)"})
		} else {
			start, _ = time.Parse("2006-01-02", d)
		}
	}
	switch input.BillingType {
	case "", "BOLETO", "PIX", "CREDIT_CARD", "UNDEFINED":
	default:
		errs = append(errs, ValidationError{"billing_type", "must be BOLETO, PIX, CREDIT_CARD or UNDEFINED"})
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	student, err := uc.Students.FindByID(ctx, actor.OrganizationID, input.StudentID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("aluno")
		}
		return nil, dbError("failed to load student", err)
	}
	if !student.IsActive {
		return nil, &DomainError{Code: CodeInvalidStep, Message: "aluno inativo não pode ser matriculado"}
	}

	enrollment, err := entity.NewEnrollment(actor.OrganizationID, student.ID, strings.TrimSpace(input.CourseName), input.TotalCents, input.Installments, start)
	if err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}

	gatewayFailed := false
	txn := NewTransaction()

	txn.AddOperation("create_enrollment", func(ctx context.Context) error {
		return uc.Repo.Create(ctx, enrollment)
	})
	txn.AddCompensation("delete_enrollment", func(ctx context.Context) error {
		return uc.Repo.Delete(ctx, enrollment.ID)
	})

	if input.CreateBilling && uc.Gateway != nil {
		var sub *asaas.Subscription

		txn.AddOperation("ensure_asaas_customer", func(ctx context.Context) error {
			if student.AsaasCustomerID != "" {
				return nil
			}
			id, err := uc.Gateway.CreateCustomer(ctx, asaas.CreateCustomerInput{
				Name:              student.Name,
				Email:             student.Email,
				CpfCnpj:           student.CPF,
				MobilePhone:       student.Phone,
				PostalCode:        student.Address.ZipCode,
				AddressNumber:     student.Address.Number,
				ExternalReference: student.ID,
			})
			if err != nil {
				gatewayFailed = true
				return err
			}
			student.AsaasCustomerID = id
			student.UpdatedAt = time.Now()
			return uc.Students.Update(ctx, student)
		})
		// o cliente no Asaas pode ser reaproveitado numa próxima matrícula
		txn.AddCompensation("keep_asaas_customer", nil)

		txn.AddOperation("create_asaas_subscription", func(ctx context.Context) error {
			s, err := uc.Gateway.CreateSubscription(ctx, asaas.CreateSubscriptionInput{
				CustomerID:        student.AsaasCustomerID,
				Value:             float64(enrollment.InstallmentCents()) / 100.0,
				NextDueDate:       enrollment.StartDate.Format("2006-01-02"),
				Cycle:             "MONTHLY",
				BillingType:       input.BillingType,
				Description:       fmt.Sprintf("Matrícula %s", enrollment.CourseName),
				MaxPayments:       enrollment.Installments,
				ExternalReference: enrollment.ID,
			})
			if err != nil {
				gatewayFailed = true
				return err
			}
			sub = s
			return nil
		})
		txn.AddCompensation("cancel_asaas_subscription", func(ctx context.Context) error {
			return uc.Gateway.CancelSubscription(ctx, sub.ID)
		})

		txn.AddOperation("link_subscription", func(ctx context.Context) error {
			enrollment.AsaasSubscriptionID = sub.ID
			enrollment.UpdatedAt = time.Now()
			if err := uc.Repo.Update(ctx, enrollment); err != nil {
				return err
			}
			if uc.Subscriptions == nil {
				return nil
			}
			return uc.Subscriptions.Upsert(ctx, subscriptionFromAsaas(sub, student, enrollment.ID))
		})
	}

	if err := txn.Execute(ctx); err != nil {
		if gatewayFailed {
			telemetry.RecordIntegrationError("asaas")
			return nil, &TechnicalError{Code: CodeGateway, Message: "Asaas recusou a cobrança", Err: err}
		}
		return nil, dbError("failed to create enrollment", err)
	}

	uc.Auditor.Audit(ctx, actor, "enrollment.created", "enrollment", enrollment.ID, map[string]any{
		"student_id":   student.ID,
		"subscription": enrollment.AsaasSubscriptionID,
	})
	log.Printf("📚 Matrícula %s criada para aluno %s (assinatura: %q)", enrollment.ID, student.ID, enrollment.AsaasSubscriptionID)
	return enrollment, nil
}

func (uc *EnrollmentUseCase) ListEnrollments(ctx context.Context, actor Actor, studentID string) ([]*entity.Enrollment, error) {
	list, err := uc.Repo.ListByStudent(ctx, actor.OrganizationID, studentID)
	if err != nil {
		return nil, dbError("failed to list enrollments", err)
	}
	return list, nil
}

func (uc *EnrollmentUseCase) GetEnrollment(ctx context.Context, actor Actor, id string) (*entity.Enrollment, error) {
	e, err := uc.Repo.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("matrícula")
		}
		return nil, dbError("failed to load enrollment", err)
	}
	return e, nil
}

// CancelEnrollment cancela a assinatura no Asaas antes de marcar a matrícula como cancelada.
func (uc *EnrollmentUseCase) CancelEnrollment(ctx context.Context, actor Actor, id string) (*entity.Enrollment, error) {
	if !actor.CanManage() {
		return nil, forbidden("apenas administradores e gestores podem cancelar matrículas")
	}

	enrollment, err := uc.GetEnrollment(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != entity.EnrollmentActive {
		return nil, &DomainError{Code: CodeInvalidStep, Message: "apenas matrículas ativas podem ser canceladas"}
	}

	if enrollment.AsaasSubscriptionID != "" && uc.Gateway != nil {
		if err := uc.Gateway.CancelSubscription(ctx, enrollment.AsaasSubscriptionID); err != nil {
			telemetry.RecordIntegrationError("asaas")
			return nil, &TechnicalError{Code: CodeGateway, Message: "falha ao cancelar assinatura no Asaas", Err: err}
		}
	}

	now := time.Now()
	enrollment.Status = entity.EnrollmentCanceled
	enrollment.CanceledAt = &now
	enrollment.UpdatedAt = now
	if err := uc.Repo.Update(ctx, enrollment); err != nil {
		return nil, dbError("failed to cancel enrollment", err)
	}

	uc.Auditor.Audit(ctx, actor, "enrollment.canceled", "enrollment", enrollment.ID, nil)
	return enrollment, nil
}

func subscriptionFromAsaas(s *asaas.Subscription, student *entity.Student, enrollmentID string) *entity.BillingSubscription {
	sub := &entity.BillingSubscription{
		ID:              s.ID,
		OrganizationID:  student.OrganizationID,
		StudentID:       student.ID,
		EnrollmentID:    enrollmentID,
		AsaasCustomerID: s.Customer,
		ValueCents:      toCents(s.Value),
		Cycle:           s.Cycle,
		BillingType:     s.BillingType,
		Status:          s.Status,
		SyncedAt:        time.Now(),
	}
	if sub.AsaasCustomerID == "" {
		sub.AsaasCustomerID = student.AsaasCustomerID
	}
	if d, err := time.Parse("2006-01-02", s.NextDueDate); err == nil {
		sub.NextDueDate = d
	}
	return sub
}
