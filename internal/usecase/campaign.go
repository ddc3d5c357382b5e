package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/brevo"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/internal/infra/telemetry"
)

type TemplateInput struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

type ContactInput struct {
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Tags      []string `json:"tags"`
	LeadID    string   `json:"lead_id"`
	StudentID string   `json:"student_id"`
}

type CreateCampaignInput struct {
	Name         string     `json:"name"`
	TemplateID   string     `json:"template_id"`
	AudienceTags []string   `json:"audience_tags"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
}

type CampaignUseCase struct {
	Templates   entity.EmailTemplateRepositoryInterface
	Contacts    entity.EmailContactRepositoryInterface
	Campaigns   entity.EmailCampaignRepositoryInterface
	Consents    ConsentService
	Queue       QueuePublisher
	Sender      EmailSender
	Syncer      ContactSyncer
	RateLimiter *RateLimiter
	Auditor     Auditor
	Now         func() time.Time
}

func NewCampaignUseCase(
	templates entity.EmailTemplateRepositoryInterface,
	contacts entity.EmailContactRepositoryInterface,
	campaigns entity.EmailCampaignRepositoryInterface,
	consents ConsentService,
	queue QueuePublisher,
	sender EmailSender,
	syncer ContactSyncer,
	limiter *RateLimiter,
	auditor Auditor,
) *CampaignUseCase {
	if auditor == nil {
		auditor = nopAuditor{}
	}
	return &CampaignUseCase{
		Templates:   templates,
		Contacts:    contacts,
		Campaigns:   campaigns,
		Consents:    consents,
		Queue:       queue,
		Sender:      sender,
		Syncer:      syncer,
		RateLimiter: limiter,
		Auditor:     auditor,
		Now:         time.Now,
	}
}

// --- Templates ---

func validateTemplate(input TemplateInput) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(input.Name) == "" {
		errs = append(errs, ValidationError{"name", "is required"})
	}
	if strings.TrimSpace(input.Subject) == "" {
		errs = append(errs, ValidationError{"subject", "is required"})
	} else if err := mail.Validate(input.Subject); err != nil {
		errs = append(errs, ValidationError{"subject", "invalid template: " + err.Error()})
	}
	if strings.TrimSpace(input.HTMLBody) == "" {
		errs = append(errs, ValidationError{"html_body", "is required"})
	} else if err := mail.Validate(input.HTMLBody); err != nil {
		errs = append(errs, ValidationError{"html_body", "invalid template: " + err.Error()})
	}
	return errs
}

func (uc *CampaignUseCase) CreateTemplate(ctx context.Context, actor Actor, input TemplateInput) (*entity.EmailTemplate, error) {
	if errs := validateTemplate(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	now := uc.Now()
	t := &entity.EmailTemplate{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		Subject:        input.Subject,
		HTMLBody:       input.HTMLBody,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.Templates.Create(ctx, t); err != nil {
		return nil, dbError("failed to create template", err)
	}
	uc.Auditor.Audit(ctx, actor, "email_template.created", "email_template", t.ID, nil)
	return t, nil
}

func (uc *CampaignUseCase) ListTemplates(ctx context.Context, actor Actor) ([]*entity.EmailTemplate, error) {
	list, err := uc.Templates.List(ctx, actor.OrganizationID)
	if err != nil {
		return nil, dbError("failed to list templates", err)
	}
	return list, nil
}

func (uc *CampaignUseCase) GetTemplate(ctx context.Context, actor Actor, id string) (*entity.EmailTemplate, error) {
	t, err := uc.Templates.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("template")
		}
		return nil, dbError("failed to load template", err)
	}
	return t, nil
}

func (uc *CampaignUseCase) UpdateTemplate(ctx context.Context, actor Actor, id string, input TemplateInput) (*entity.EmailTemplate, error) {
	if errs := validateTemplate(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	t, err := uc.GetTemplate(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	t.Name = strings.TrimSpace(input.Name)
	t.Subject = input.Subject
	t.HTMLBody = input.HTMLBody
	t.UpdatedAt = uc.Now()
	if err := uc.Templates.Update(ctx, t); err != nil {
		return nil, dbError("failed to update template", err)
	}
	uc.Auditor.Audit(ctx, actor, "email_template.updated", "email_template", t.ID, nil)
	return t, nil
}

func (uc *CampaignUseCase) DeleteTemplate(ctx context.Context, actor Actor, id string) error {
	if _, err := uc.GetTemplate(ctx, actor, id); err != nil {
		return err
	}
	if err := uc.Templates.Delete(ctx, actor.OrganizationID, id); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return conflict("template em uso por campanhas")
		}
		return dbError("failed to delete template", err)
	}
	uc.Auditor.Audit(ctx, actor, "email_template.deleted", "email_template", id, nil)
	return nil
}

// PreviewTemplate renderiza o template com dados de exemplo.
func (uc *CampaignUseCase) PreviewTemplate(ctx context.Context, actor Actor, id string, data mail.TemplateData) (string, string, error) {
	t, err := uc.GetTemplate(ctx, actor, id)
	if err != nil {
		return "", "", err
	}
	if data.Name == "" {
		data.Name = "Maria da Silva"
	}
	subject, body, err := mail.Render(t.Subject, t.HTMLBody, data)
	if err != nil {
		return "", "", validationFailed([]ValidationError{{"html_body", err.Error()}})
	}
	return subject, body, nil
}

// --- Contatos ---

func (uc *CampaignUseCase) UpsertContact(ctx context.Context, actor Actor, input ContactInput) (*entity.EmailContact, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !isValidEmail(email) {
		return nil, validationFailed([]ValidationError{{"email", "is invalid"}})
	}

	now := uc.Now()
	c := &entity.EmailContact{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		Email:          email,
		Name:           strings.TrimSpace(input.Name),
		LeadID:         input.LeadID,
		StudentID:      input.StudentID,
		Tags:           input.Tags,
		Subscribed:     true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if err := uc.Contacts.Upsert(ctx, c); err != nil {
		return nil, dbError("failed to save contact", err)
	}
	return c, nil
}

func (uc *CampaignUseCase) ListContacts(ctx context.Context, actor Actor, tags []string) ([]*entity.EmailContact, error) {
	list, err := uc.Contacts.ListSubscribed(ctx, actor.OrganizationID, tags)
	if err != nil {
		return nil, dbError("failed to list contacts", err)
	}
	return list, nil
}

func (uc *CampaignUseCase) Unsubscribe(ctx context.Context, organizationID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return validationFailed([]ValidationError{{"email", "is required"}})
	}
	if err := uc.Contacts.Unsubscribe(ctx, organizationID, email); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return notFound("contato")
		}
		return dbError("failed to unsubscribe", err)
	}
	log.Printf("📭 Contato %s descadastrado (org %s)", email, organizationID)
	return nil
}

// SyncContacts empurra para o Brevo os contatos alterados desde a última sincronização.
func (uc *CampaignUseCase) SyncContacts(ctx context.Context) (int, error) {
	if uc.Syncer == nil {
		return 0, nil
	}
	pending, err := uc.Contacts.ListPendingSync(ctx, 200)
	if err != nil {
		return 0, fmt.Errorf("falha ao listar contatos pendentes: %w", err)
	}

	synced := 0
	for _, c := range pending {
		first, last := splitName(c.Name)
		id, err := uc.Syncer.UpsertContact(ctx, brevo.Contact{
			Email:     c.Email,
			FirstName: first,
			LastName:  last,
			Tags:      c.Tags,
			Blacklist: !c.Subscribed,
		})
		if err != nil {
			if errors.Is(err, brevo.ErrNotConfigured) {
				return synced, nil
			}
			telemetry.RecordIntegrationError("brevo")
			log.Printf("⚠️ Brevo: falha ao sincronizar %s: %v", c.Email, err)
			continue
		}
		if err := uc.Contacts.MarkSynced(ctx, c.ID, id); err != nil {
			return synced, fmt.Errorf("falha ao marcar contato sincronizado: %w", err)
		}
		synced++
	}
	if synced > 0 {
		log.Printf("📇 Brevo: %d contatos sincronizados", synced)
	}
	return synced, nil
}

// --- Campanhas ---

func (uc *CampaignUseCase) CreateCampaign(ctx context.Context, actor Actor, input CreateCampaignInput) (*entity.EmailCampaign, error) {
	var errs []ValidationError
	if strings.TrimSpace(input.Name) == "" {
		errs = append(errs, ValidationError{"name", "is required"})
	}
	if input.TemplateID == "" {
		errs = append(errs, ValidationError{"template_id", "is required"})
	}
	if input.ScheduledAt != nil && !input.ScheduledAt.After(uc.Now()) {
		errs = append(errs, ValidationError{"scheduled_at", "must be in the future"})
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if _, err := uc.GetTemplate(ctx, actor, input.TemplateID); err != nil {
		return nil, err
	}

	now := uc.Now()
	c := &entity.EmailCampaign{
		ID:             uuid.New().String(),
		OrganizationID: actor.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		TemplateID:     input.TemplateID,
		AudienceTags:   input.AudienceTags,
		Status:         entity.CampaignDraft,
		ScheduledAt:    input.ScheduledAt,
		CreatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.AudienceTags == nil {
		c.AudienceTags = []string{}
	}
	if c.ScheduledAt != nil {
		c.Status = entity.CampaignScheduled
	}

	if err := uc.Campaigns.Create(ctx, c); err != nil {
		return nil, dbError("failed to create campaign", err)
	}
	uc.Auditor.Audit(ctx, actor, "email_campaign.created", "email_campaign", c.ID, map[string]any{"status": c.Status})
	return c, nil
}

func (uc *CampaignUseCase) ListCampaigns(ctx context.Context, actor Actor) ([]*entity.EmailCampaign, error) {
	list, err := uc.Campaigns.List(ctx, actor.OrganizationID)
	if err != nil {
		return nil, dbError("failed to list campaigns", err)
	}
	return list, nil
}

func (uc *CampaignUseCase) GetCampaign(ctx context.Context, actor Actor, id string) (*entity.EmailCampaign, error) {
	c, err := uc.Campaigns.FindByID(ctx, actor.OrganizationID, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("campanha")
		}
		return nil, dbError("failed to load campaign", err)
	}
	return c, nil
}

func (uc *CampaignUseCase) CancelCampaign(ctx context.Context, actor Actor, id string) (*entity.EmailCampaign, error) {
	c, err := uc.GetCampaign(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.CampaignDraft && c.Status != entity.CampaignScheduled {
		return nil, &DomainError{Code: CodeInvalidStep, Message: "só campanhas em rascunho ou agendadas podem ser canceladas"}
	}

	c.Status = entity.CampaignCanceled
	c.UpdatedAt = uc.Now()
	if err := uc.Campaigns.Update(ctx, c); err != nil {
		return nil, dbError("failed to cancel campaign", err)
	}
	uc.Auditor.Audit(ctx, actor, "email_campaign.canceled", "email_campaign", c.ID, nil)
	return c, nil
}

// SendCampaign dispara imediatamente uma campanha em rascunho ou agendada.
func (uc *CampaignUseCase) SendCampaign(ctx context.Context, actor Actor, id string) (*entity.EmailCampaign, error) {
	if !actor.CanManage() {
		return nil, forbidden("apenas administradores e gestores podem enviar campanhas")
	}
	if uc.RateLimiter != nil {
		if err := uc.RateLimiter.Enforce(ctx, actor.OrganizationID, ActionCampaignSend); err != nil {
			telemetry.RecordRateLimited(ActionCampaignSend)
			return nil, err
		}
	}

	c, err := uc.GetCampaign(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.CampaignDraft && c.Status != entity.CampaignScheduled {
		return nil, &DomainError{Code: CodeInvalidStep, Message: "campanha já enviada ou cancelada"}
	}

	if err := uc.startSending(ctx, c); err != nil {
		return nil, err
	}
	uc.Auditor.Audit(ctx, actor, "email_campaign.sent", "email_campaign", c.ID, map[string]any{"recipients": c.TotalRecipients})
	return c, nil
}

// DispatchScheduled inicia as campanhas agendadas cujo horário já passou.
func (uc *CampaignUseCase) DispatchScheduled(ctx context.Context) error {
	due, err := uc.Campaigns.ListDueScheduled(ctx, uc.Now())
	if err != nil {
		return fmt.Errorf("falha ao listar campanhas agendadas: %w", err)
	}
	for _, c := range due {
		if err := uc.startSending(ctx, c); err != nil {
			log.Printf("❌ Campanha agendada %s não iniciou: %v", c.ID, err)
			continue
		}
		uc.Auditor.Audit(ctx, SystemActor(c.OrganizationID), "email_campaign.sent", "email_campaign", c.ID, map[string]any{"recipients": c.TotalRecipients, "scheduled": true})
	}
	return nil
}

func (uc *CampaignUseCase) startSending(ctx context.Context, c *entity.EmailCampaign) error {
	contacts, err := uc.Contacts.ListSubscribed(ctx, c.OrganizationID, c.AudienceTags)
	if err != nil {
		return dbError("failed to resolve audience", err)
	}

	recipients := make([]*entity.EmailContact, 0, len(contacts))
	for _, ct := range contacts {
		ok, err := uc.hasMarketingConsent(ctx, ct)
		if err != nil {
			return dbError("failed to check consent", err)
		}
		if ok {
			recipients = append(recipients, ct)
		}
	}

	c.TotalRecipients = len(recipients)
	c.SentCount, c.FailedCount = 0, 0
	c.Status = entity.CampaignSending
	if len(recipients) == 0 {
		c.Status = entity.CampaignSent
	}
	c.UpdatedAt = uc.Now()
	if err := uc.Campaigns.Update(ctx, c); err != nil {
		return dbError("failed to update campaign", err)
	}

	for _, ct := range recipients {
		err := uc.Queue.PublishCampaignSend(ctx, queue.CampaignSendPayload{
			OrganizationID: c.OrganizationID,
			CampaignID:     c.ID,
			ContactID:      ct.ID,
		})
		if err != nil {
			log.Printf("⚠️ Falha ao enfileirar envio %s -> %s: %v", c.ID, ct.Email, err)
			if _, err := uc.recordResult(ctx, c.ID, false); err != nil {
				return err
			}
		}
	}

	log.Printf("📣 Campanha %s iniciada para %d destinatários", c.ID, len(recipients))
	return nil
}

// Contatos ligados a lead/aluno precisam de consentimento de marketing vigente; inscrições
// diretas na newsletter já são o próprio consentimento.
func (uc *CampaignUseCase) hasMarketingConsent(ctx context.Context, ct *entity.EmailContact) (bool, error) {
	if uc.Consents == nil {
		return true, nil
	}
	switch {
	case ct.StudentID != "":
		return uc.Consents.HasConsent(ctx, ct.OrganizationID, entity.SubjectStudent, ct.StudentID, entity.PurposeMarketing)
	case ct.LeadID != "":
		return uc.Consents.HasConsent(ctx, ct.OrganizationID, entity.SubjectLead, ct.LeadID, entity.PurposeMarketing)
	}
	return true, nil
}

// DeliverCampaignEmail é chamado pelo worker para cada destinatário. Qualquer falha depois
// de achar a campanha conta como failed, para o total fechar e a campanha sair de SENDING;
// erro só volta quando nem o resultado pôde ser gravado.
func (uc *CampaignUseCase) DeliverCampaignEmail(ctx context.Context, payload queue.CampaignSendPayload) error {
	c, err := uc.Campaigns.FindByID(ctx, payload.OrganizationID, payload.CampaignID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			log.Printf("ℹ️ Campanha %s não existe mais, descartando envio", payload.CampaignID)
			return nil
		}
		log.Printf("❌ Campanha %s indisponível para %s: %v", payload.CampaignID, payload.ContactID, err)
		return uc.recordFailure(ctx, payload.CampaignID, fmt.Errorf("campanha %s: %w", payload.CampaignID, err))
	}
	if c.Status != entity.CampaignSending {
		log.Printf("ℹ️ Campanha %s não está em envio (%s), descartando", c.ID, c.Status)
		return nil
	}

	contact, err := uc.Contacts.FindByID(ctx, payload.OrganizationID, payload.ContactID)
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			log.Printf("❌ Contato %s indisponível: %v", payload.ContactID, err)
		}
		return uc.recordFailure(ctx, c.ID, fmt.Errorf("contato %s: %w", payload.ContactID, err))
	}
	if !contact.Subscribed {
		_, err = uc.recordResult(ctx, c.ID, false)
		return err
	}

	tmpl, err := uc.Templates.FindByID(ctx, c.OrganizationID, c.TemplateID)
	if err != nil {
		log.Printf("❌ Template %s indisponível para a campanha %s: %v", c.TemplateID, c.ID, err)
		return uc.recordFailure(ctx, c.ID, fmt.Errorf("template %s: %w", c.TemplateID, err))
	}

	sent := true
	subject, body, err := mail.Render(tmpl.Subject, tmpl.HTMLBody, mail.TemplateData{Name: contact.Name, FirstName: mail.FirstName(contact.Name), Email: contact.Email})
	if err == nil {
		_, err = uc.Sender.Send(ctx, mail.Message{
			To:      contact.Email,
			ToName:  contact.Name,
			Subject: subject,
			HTML:    body,
			Tags:    []string{"campaign:" + c.ID},
		})
	}
	if err != nil {
		log.Printf("❌ Email da campanha %s para %s falhou: %v", c.ID, contact.Email, err)
		sent = false
	}

	_, err = uc.recordResult(ctx, c.ID, sent)
	return err
}

// recordFailure conta o destinatário como failed; se nem isso grava, devolve a causa
// original junto para o worker tentar de novo.
func (uc *CampaignUseCase) recordFailure(ctx context.Context, campaignID string, cause error) error {
	if _, err := uc.recordResult(ctx, campaignID, false); err != nil {
		return errors.Join(cause, err)
	}
	return nil
}

func (uc *CampaignUseCase) recordResult(ctx context.Context, campaignID string, sent bool) (*entity.EmailCampaign, error) {
	telemetry.RecordCampaignEmail(sent)

	updated, err := uc.Campaigns.IncrementResult(ctx, campaignID, sent)
	if err != nil {
		return nil, fmt.Errorf("falha ao registrar resultado da campanha: %w", err)
	}
	if updated.Done() && updated.Status == entity.CampaignSending {
		updated.Status = entity.CampaignSent
		updated.UpdatedAt = uc.Now()
		if err := uc.Campaigns.Update(ctx, updated); err != nil {
			return nil, fmt.Errorf("falha ao concluir campanha: %w", err)
		}
		log.Printf("✅ Campanha %s concluída: %d enviados, %d falhas", updated.ID, updated.SentCount, updated.FailedCount)
	}
	return updated, nil
}

func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
