package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/telemetry"
)

type CreateLeadInput struct {
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	CPF              string   `json:"cpf"`
	Source           string   `json:"source"`
	Interest         string   `json:"interest"`
	Tags             []string `json:"tags"`
	Notes            string   `json:"notes"`
	OwnerID          string   `json:"owner_id"`
	ReferrerLeadID   string   `json:"referrer_lead_id"`
	ConsentMarketing bool     `json:"consent_marketing"`
	ConsentVersion   string   `json:"consent_version"`
	IP               string   `json:"-"`
}

type UpdateLeadInput struct {
	Name           *string   `json:"name"`
	Email          *string   `json:"email"`
	Phone          *string   `json:"phone"`
	CPF            *string   `json:"cpf"`
	Source         *string   `json:"source"`
	Interest       *string   `json:"interest"`
	Tags           *[]string `json:"tags"`
	Notes          *string   `json:"notes"`
	ReferrerLeadID *string   `json:"referrer_lead_id"`
}

type ConvertLeadInput struct {
	Name      string `json:"name"`
	CPF       string `json:"cpf"`
	BirthDate string `json:"birth_date"`
	ZipCode   string `json:"zip_code"`
}

type LeadUseCase struct {
	Repo        entity.LeadRepositoryInterface
	Users       entity.UserRepositoryInterface
	Contacts    entity.EmailContactRepositoryInterface
	Students    StudentService
	Consents    ConsentService
	Auditor     Auditor
	RateLimiter *RateLimiter
}

func NewLeadUseCase(
	repo entity.LeadRepositoryInterface,
	users entity.UserRepositoryInterface,
	contacts entity.EmailContactRepositoryInterface,
	students StudentService,
	consents ConsentService,
	auditor Auditor,
	limiter *RateLimiter,
) *LeadUseCase {
	if auditor == nil {
		auditor = nopAuditor{}
	}
	return &LeadUseCase{
		Repo:        repo,
		Users:       users,
		Contacts:    contacts,
		Students:    students,
		Consents:    consents,
		Auditor:     auditor,
		RateLimiter: limiter,
	}
}

// CaptureLead é a entrada pública (formulário do site). Limitada por IP e idempotente por email.
func (uc *LeadUseCase) CaptureLead(ctx context.Context, organizationID string, input CreateLeadInput) (*entity.Lead, error) {
	if organizationID == "" {
		return nil, validationFailed([]ValidationError{{"organization_id", "is required"}})
	}
	if uc.RateLimiter != nil {
		if err := uc.RateLimiter.Enforce(ctx, input.IP, ActionLeadCapture); err != nil {
			var rl *RateLimitError
			if errors.As(err, &rl) {
				telemetry.RecordRateLimited(ActionLeadCapture)
			}
			return nil, err
		}
	}

	if errs := ValidateLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := uc.buildLead(organizationID, input)
	if err != nil {
		return nil, err
	}

	// sem email não há chave de upsert
	if lead.Email != "" {
		err = uc.Repo.Upsert(ctx, lead)
	} else {
		err = uc.Repo.Create(ctx, lead)
	}
	if err != nil {
		return nil, dbError("failed to capture lead", err)
	}

	actor := SystemActor(organizationID)
	uc.afterCreate(ctx, actor, lead, input)
	uc.Auditor.Audit(ctx, actor, "lead.captured", entity.SubjectLead, lead.ID, map[string]any{"source": lead.Source})
	telemetry.RecordLeadCaptured(lead.Source)

	log.Printf("📥 Lead capturado: %s (org %s, origem %s)", lead.ID, organizationID, lead.Source)
	return lead, nil
}

func (uc *LeadUseCase) CreateLead(ctx context.Context, actor Actor, input CreateLeadInput) (*entity.Lead, error) {
	if errs := ValidateLeadInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	lead, err := uc.buildLead(actor.OrganizationID, input)
	if err != nil {
		return nil, err
	}

	if lead.OwnerID == "" {
		lead.OwnerID = actor.UserID
	} else if err := uc.checkOwner(ctx, actor, lead.OwnerID); err != nil {
		return nil, err
	}
	if lead.ReferrerLeadID != "" {
		if _, err := uc.find(ctx, actor.OrganizationID, lead.ReferrerLeadID); err != nil {
			return nil, validationFailed([]ValidationError{{"referrer_lead_id", "lead indicador não encontrado"}})
		}
	}

	if err := uc.Repo.Create(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, conflict("lead já cadastrado com este email")
		}
		return nil, dbError("failed to create lead", err)
	}

	uc.afterCreate(ctx, actor, lead, input)
	uc.Auditor.Audit(ctx, actor, "lead.created", entity.SubjectLead, lead.ID, nil)
	return lead, nil
}

func (uc *LeadUseCase) buildLead(organizationID string, input CreateLeadInput) (*entity.Lead, error) {
	lead, err := entity.NewLead(organizationID, input.Name, input.Email, input.Phone)
	if err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}
	if lead.Phone != "" {
		lead.Phone = NormalizePhone(lead.Phone)
	}
	lead.CPF = entity.NormalizeCPF(input.CPF)
	lead.Source = strings.ToLower(strings.TrimSpace(input.Source))
	lead.Interest = strings.TrimSpace(input.Interest)
	lead.Notes = input.Notes
	lead.OwnerID = input.OwnerID
	lead.ReferrerLeadID = input.ReferrerLeadID
	if input.Tags != nil {
		lead.Tags = input.Tags
	}
	if err := lead.Validate(); err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}
	return lead, nil
}

// afterCreate registra consentimento e contato de email; falhas aqui não desfazem o lead.
func (uc *LeadUseCase) afterCreate(ctx context.Context, actor Actor, lead *entity.Lead, input CreateLeadInput) {
	if !input.ConsentMarketing {
		return
	}
	if uc.Consents != nil {
		_, err := uc.Consents.RecordConsent(ctx, actor, RecordConsentInput{
			SubjectType: entity.SubjectLead,
			SubjectID:   lead.ID,
			Purpose:     entity.PurposeMarketing,
			Granted:     true,
			Version:     input.ConsentVersion,
			IP:          input.IP,
		})
		if err != nil {
			log.Printf("⚠️ Falha ao registrar consentimento do lead %s: %v", lead.ID, err)
		}
	}
	if uc.Contacts != nil && lead.Email != "" {
		now := time.Now()
		contact := &entity.EmailContact{
			OrganizationID: lead.OrganizationID,
			Email:          lead.Email,
			Name:           lead.Name,
			LeadID:         lead.ID,
			Tags:           lead.Tags,
			Subscribed:     true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := uc.Contacts.Upsert(ctx, contact); err != nil {
			log.Printf("⚠️ Falha ao criar contato de email do lead %s: %v", lead.ID, err)
		}
	}
}

func (uc *LeadUseCase) GetLead(ctx context.Context, actor Actor, id string) (*entity.Lead, error) {
	return uc.find(ctx, actor.OrganizationID, id)
}

func (uc *LeadUseCase) ListLeads(ctx context.Context, actor Actor, filter entity.LeadFilter) ([]*entity.Lead, error) {
	if filter.Stage != "" && !filter.Stage.Valid() {
		return nil, validationFailed([]ValidationError{{"stage", "is invalid"}})
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	leads, err := uc.Repo.List(ctx, actor.OrganizationID, filter)
	if err != nil {
		return nil, dbError("failed to list leads", err)
	}
	return leads, nil
}

func (uc *LeadUseCase) UpdateLead(ctx context.Context, actor Actor, id string, input UpdateLeadInput) (*entity.Lead, error) {
	lead, err := uc.find(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	var errs []ValidationError
	if input.Name != nil {
		lead.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != "" && !isValidEmail(email) {
			errs = append(errs, ValidationError{"email", "is invalid"})
		}
		lead.Email = email
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != "" {
			if !isValidPhoneNumber(phone) {
				errs = append(errs, ValidationError{"phone", "must be a valid phone number"})
			}
			phone = NormalizePhone(phone)
		}
		lead.Phone = phone
	}
	if input.CPF != nil {
		if *input.CPF != "" && !entity.ValidateCPF(*input.CPF) {
			errs = append(errs, ValidationError{"cpf", "is invalid"})
		}
		lead.CPF = entity.NormalizeCPF(*input.CPF)
	}
	if input.Source != nil {
		lead.Source = strings.ToLower(strings.TrimSpace(*input.Source))
	}
	if input.Interest != nil {
		lead.Interest = *input.Interest
	}
	if input.Tags != nil {
		lead.Tags = *input.Tags
	}
	if input.Notes != nil {
		lead.Notes = *input.Notes
	}
	if input.ReferrerLeadID != nil {
		ref := *input.ReferrerLeadID
		if ref == lead.ID {
			errs = append(errs, ValidationError{"referrer_lead_id", "lead cannot refer itself"})
		} else if ref != "" {
			if _, err := uc.find(ctx, actor.OrganizationID, ref); err != nil {
				errs = append(errs, ValidationError{"referrer_lead_id", "lead indicador não encontrado"})
			}
		}
		lead.ReferrerLeadID = ref
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if err := lead.Validate(); err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}

	lead.UpdatedAt = time.Now()
	if err := uc.Repo.Update(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, conflict("já existe um lead com este email")
		}
		return nil, dbError("failed to update lead", err)
	}

	uc.Auditor.Audit(ctx, actor, "lead.updated", entity.SubjectLead, lead.ID, nil)
	return lead, nil
}

// MoveLeadStage move o lead no funil. WON só é alcançado por ConvertLead.
func (uc *LeadUseCase) MoveLeadStage(ctx context.Context, actor Actor, id string, stage entity.LeadStage, lostReason string) (*entity.Lead, error) {
	if !stage.Valid() {
		return nil, validationFailed([]ValidationError{{"stage", "is invalid"}})
	}
	if stage == entity.LeadStageWon {
		return nil, &DomainError{Code: CodeInvalidStep, Message: "use a conversão em aluno para marcar o lead como ganho"}
	}

	lead, err := uc.find(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if lead.Stage == entity.LeadStageWon {
		return nil, &DomainError{Code: CodeInvalidStep, Message: "lead já convertido não pode mudar de etapa"}
	}
	if lead.Stage == stage {
		return lead, nil
	}

	from := lead.Stage
	now := time.Now()
	lead.Stage = stage
	lead.LastContactAt = &now
	lead.UpdatedAt = now
	if stage == entity.LeadStageLost {
		lead.LostReason = strings.TrimSpace(lostReason)
	} else {
		lead.LostReason = ""
	}

	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, dbError("failed to move lead", err)
	}

	uc.Auditor.Audit(ctx, actor, "lead.stage_changed", entity.SubjectLead, lead.ID, map[string]any{
		"from": from, "to": stage,
	})
	return lead, nil
}

func (uc *LeadUseCase) AssignLead(ctx context.Context, actor Actor, id, ownerID string) (*entity.Lead, error) {
	if ownerID == "" {
		return nil, validationFailed([]ValidationError{{"owner_id", "is required"}})
	}
	if !actor.CanManage() && ownerID != actor.UserID {
		return nil, forbidden("apenas gestores podem atribuir leads a outros usuários")
	}
	if err := uc.checkOwner(ctx, actor, ownerID); err != nil {
		return nil, err
	}

	lead, err := uc.find(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}

	previous := lead.OwnerID
	lead.OwnerID = ownerID
	lead.UpdatedAt = time.Now()
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return nil, dbError("failed to assign lead", err)
	}

	uc.Auditor.Audit(ctx, actor, "lead.assigned", entity.SubjectLead, lead.ID, map[string]any{
		"from": previous, "to": ownerID,
	})
	return lead, nil
}

func (uc *LeadUseCase) DeleteLead(ctx context.Context, actor Actor, id string) error {
	if !actor.CanManage() {
		return forbidden("apenas administradores e gestores podem excluir leads")
	}

	lead, err := uc.find(ctx, actor.OrganizationID, id)
	if err != nil {
		return err
	}
	if !lead.IsActive {
		return nil
	}

	lead.IsActive = false
	lead.UpdatedAt = time.Now()
	if err := uc.Repo.Update(ctx, lead); err != nil {
		return dbError("failed to delete lead", err)
	}

	uc.Auditor.Audit(ctx, actor, "lead.deleted", entity.SubjectLead, lead.ID, nil)
	return nil
}

// ConvertLead cria o aluno a partir do lead e fecha o lead como WON.
func (uc *LeadUseCase) ConvertLead(ctx context.Context, actor Actor, id string, input ConvertLeadInput) (*entity.Student, error) {
	lead, err := uc.find(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if lead.Stage == entity.LeadStageWon || lead.ConvertedStudentID != "" {
		return nil, conflict("lead já convertido")
	}
	if !lead.IsActive {
		return nil, &DomainError{Code: CodeInvalidStep, Message: "lead inativo não pode ser convertido"}
	}

	name := input.Name
	if name == "" {
		name = lead.Name
	}
	cpf := input.CPF
	if cpf == "" {
		cpf = lead.CPF
	}

	var student *entity.Student
	txn := NewTransaction()

	txn.AddOperation("create_student", func(ctx context.Context) error {
		s, err := uc.Students.CreateStudent(ctx, actor, CreateStudentInput{
			Name:      name,
			Email:     lead.Email,
			Phone:     lead.Phone,
			CPF:       cpf,
			BirthDate: input.BirthDate,
			ZipCode:   input.ZipCode,
			LeadID:    lead.ID,
		})
		student = s
		return err
	})
	txn.AddCompensation("deactivate_student", func(ctx context.Context) error {
		return uc.Students.DeactivateStudent(ctx, SystemActor(actor.OrganizationID), student.ID)
	})

	txn.AddOperation("close_lead", func(ctx context.Context) error {
		now := time.Now()
		lead.Stage = entity.LeadStageWon
		lead.ConvertedStudentID = student.ID
		lead.LostReason = ""
		lead.LastContactAt = &now
		lead.UpdatedAt = now
		return uc.Repo.Update(ctx, lead)
	})

	if err := txn.Execute(ctx); err != nil {
		// erros de negócio do aluno (CPF inválido, duplicado) sobem como estão
		var de *DomainError
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, dbError("failed to convert lead", err)
	}

	uc.Auditor.Audit(ctx, actor, "lead.converted", entity.SubjectLead, lead.ID, map[string]any{"student_id": student.ID})
	log.Printf("🎓 Lead %s convertido no aluno %s", lead.ID, student.ID)
	return student, nil
}

func (uc *LeadUseCase) find(ctx context.Context, organizationID, id string) (*entity.Lead, error) {
	lead, err := uc.Repo.FindByID(ctx, organizationID, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("lead")
		}
		return nil, dbError("failed to load lead", err)
	}
	return lead, nil
}

func (uc *LeadUseCase) checkOwner(ctx context.Context, actor Actor, ownerID string) error {
	if uc.Users == nil {
		return nil
	}
	user, err := uc.Users.FindByID(ctx, actor.OrganizationID, ownerID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return validationFailed([]ValidationError{{"owner_id", "usuário não encontrado"}})
		}
		return dbError("failed to load owner", err)
	}
	if !user.IsActive {
		return validationFailed([]ValidationError{{"owner_id", "usuário inativo"}})
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
