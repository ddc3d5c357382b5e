package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-crm/internal/entity"
)

type RecordConsentInput struct {
	SubjectType string `json:"subject_type"`
	SubjectID   string `json:"subject_id"`
	Purpose     string `json:"purpose"`
	Granted     bool   `json:"granted"`
	Version     string `json:"version"`
	IP          string `json:"-"`
}

// SubjectExport é o pacote devolvido no pedido de portabilidade (LGPD art. 18).
type SubjectExport struct {
	Student     *entity.Student      `json:"student"`
	Enrollments []*entity.Enrollment `json:"enrollments"`
	Payments    []*entity.Payment    `json:"payments"`
	Consents    []*entity.Consent    `json:"consents"`
	AuditLogs   []*entity.AuditLog   `json:"audit_logs"`
	ExportedAt  time.Time            `json:"exported_at"`
}

type ComplianceUseCase struct {
	Repo        entity.ComplianceRepositoryInterface
	Students    entity.StudentRepositoryInterface
	Enrollments entity.EnrollmentRepositoryInterface
	Payments    entity.PaymentRepositoryInterface
	Now         func() time.Time
}

func NewComplianceUseCase(
	repo entity.ComplianceRepositoryInterface,
	students entity.StudentRepositoryInterface,
	enrollments entity.EnrollmentRepositoryInterface,
	payments entity.PaymentRepositoryInterface,
) *ComplianceUseCase {
	return &ComplianceUseCase{
		Repo:        repo,
		Students:    students,
		Enrollments: enrollments,
		Payments:    payments,
		Now:         time.Now,
	}
}

func validSubject(t string) bool {
	return t == entity.SubjectLead || t == entity.SubjectStudent
}

func validPurpose(p string) bool {
	switch p {
	case entity.PurposeMarketing, entity.PurposeDataProcessing, entity.PurposeWhatsApp:
		return true
	}
	return false
}

func (uc *ComplianceUseCase) RecordConsent(ctx context.Context, actor Actor, input RecordConsentInput) (*entity.Consent, error) {
	var errs []ValidationError
	if !validSubject(input.SubjectType) {
		errs = append(errs, ValidationError{"subject_type", "must be lead or student"})
	}
	if input.SubjectID == "" {
		errs = append(errs, ValidationError{"subject_id", "is required"})
	}
	if !validPurpose(input.Purpose) {
		errs = append(errs, ValidationError{"purpose", "must be marketing, data_processing or whatsapp"})
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	version := strings.TrimSpace(input.Version)
	if version == "" {
		version = "v1"
	}
	c := &entity.Consent{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		SubjectType:    input.SubjectType,
		SubjectID:      input.SubjectID,
		Purpose:        input.Purpose,
		Granted:        input.Granted,
		Version:        version,
		IP:             input.IP,
		GrantedAt:      uc.Now(),
	}
	if err := uc.Repo.SaveConsent(ctx, c); err != nil {
		return nil, dbError("failed to save consent", err)
	}

	uc.Audit(ctx, actor, "consent.recorded", input.SubjectType, input.SubjectID, map[string]any{
		"purpose": input.Purpose,
		"granted": input.Granted,
		"version": version,
	})
	return c, nil
}

func (uc *ComplianceUseCase) RevokeConsent(ctx context.Context, actor Actor, subjectType, subjectID, purpose string) error {
	if !validSubject(subjectType) || subjectID == "" || !validPurpose(purpose) {
		return validationFailed([]ValidationError{{"consent", "subject_type, subject_id and purpose are required"}})
	}
	if err := uc.Repo.RevokeConsent(ctx, actor.OrganizationID, subjectType, subjectID, purpose, uc.Now()); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return notFound("consentimento")
		}
		return dbError("failed to revoke consent", err)
	}
	uc.Audit(ctx, actor, "consent.revoked", subjectType, subjectID, map[string]any{"purpose": purpose})
	return nil
}

func (uc *ComplianceUseCase) ListConsents(ctx context.Context, actor Actor, subjectType, subjectID string) ([]*entity.Consent, error) {
	list, err := uc.Repo.ListConsents(ctx, actor.OrganizationID, subjectType, subjectID)
	if err != nil {
		return nil, dbError("failed to list consents", err)
	}
	return list, nil
}

// HasConsent vale o registro mais recente para a finalidade: concedido e não revogado.
func (uc *ComplianceUseCase) HasConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string) (bool, error) {
	c, err := uc.Repo.LatestConsent(ctx, organizationID, subjectType, subjectID, purpose)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return c.Granted && c.RevokedAt == nil, nil
}

// Audit grava a trilha de auditoria. Nunca falha a operação de negócio.
func (uc *ComplianceUseCase) Audit(ctx context.Context, actor Actor, action, entityType, entityID string, metadata map[string]any) {
	raw := []byte("{}")
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err == nil {
			raw = b
		}
	}

	entry := &entity.AuditLog{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.UserID,
		Action:         action,
		EntityType:     entityType,
		EntityID:       entityID,
		Metadata:       string(raw),
		CreatedAt:      uc.Now(),
	}
	if err := uc.Repo.WriteAudit(ctx, entry); err != nil {
		log.Printf("⚠️ Falha ao gravar auditoria %s %s/%s: %v", action, entityType, entityID, err)
	}
}

func (uc *ComplianceUseCase) ListAuditLogs(ctx context.Context, actor Actor, entityType, entityID string, limit int) ([]*entity.AuditLog, error) {
	if !actor.CanManage() {
		return nil, forbidden("apenas administradores e gestores podem ver a auditoria")
	}
	list, err := uc.Repo.ListAudit(ctx, actor.OrganizationID, entityType, entityID, clampLimit(limit))
	if err != nil {
		return nil, dbError("failed to list audit logs", err)
	}
	return list, nil
}

// ExportSubjectData reúne tudo que o sistema guarda sobre um aluno.
func (uc *ComplianceUseCase) ExportSubjectData(ctx context.Context, actor Actor, studentID string) (*SubjectExport, error) {
	if !actor.CanManage() {
		return nil, forbidden("apenas administradores e gestores podem exportar dados")
	}

	student, err := uc.Students.FindByID(ctx, actor.OrganizationID, studentID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("aluno")
		}
		return nil, dbError("failed to load student", err)
	}

	export := &SubjectExport{Student: student, ExportedAt: uc.Now()}
	if export.Enrollments, err = uc.Enrollments.ListByStudent(ctx, actor.OrganizationID, student.ID); err != nil {
		return nil, dbError("failed to list enrollments", err)
	}
	if export.Payments, err = uc.Payments.ListByStudent(ctx, actor.OrganizationID, student.ID); err != nil {
		return nil, dbError("failed to list payments", err)
	}
	if export.Consents, err = uc.Repo.ListConsents(ctx, actor.OrganizationID, entity.SubjectStudent, student.ID); err != nil {
		return nil, dbError("failed to list consents", err)
	}
	if export.AuditLogs, err = uc.Repo.ListAudit(ctx, actor.OrganizationID, entity.SubjectStudent, student.ID, 500); err != nil {
		return nil, dbError("failed to list audit logs", err)
	}

	uc.Audit(ctx, actor, "student.exported", entity.SubjectStudent, student.ID, nil)
	return export, nil
}
