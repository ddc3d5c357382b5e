package usecase

import (
	"context"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/asaas"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/brevo"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
)

// Actor é o membro da equipe autenticado em nome de quem o caso de uso roda.
type Actor struct {
	UserID         string
	OrganizationID string
	Role           entity.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == entity.RoleAdmin
}

func (a Actor) CanManage() bool {
	return a.Role == entity.RoleAdmin || a.Role == entity.RoleManager
}

// SystemActor é usado pelos jobs e webhooks.
func SystemActor(organizationID string) Actor {
	return Actor{UserID: "system", OrganizationID: organizationID, Role: entity.RoleAdmin}
}

type BillingGateway interface {
	CreateCustomer(ctx context.Context, input asaas.CreateCustomerInput) (string, error)
	CreateSubscription(ctx context.Context, input asaas.CreateSubscriptionInput) (*asaas.Subscription, error)
	CancelSubscription(ctx context.Context, id string) error
	ListPayments(ctx context.Context, params asaas.ListParams) (*asaas.Page[asaas.Payment], error)
	ListSubscriptions(ctx context.Context, params asaas.ListParams) (*asaas.Page[asaas.Subscription], error)
}

type QueuePublisher interface {
	PublishWebhookEvent(ctx context.Context, payload queue.WebhookEventPayload) error
	PublishCampaignSend(ctx context.Context, payload queue.CampaignSendPayload) error
}

type WhatsAppSender interface {
	SendText(ctx context.Context, phone, body string) (string, error)
}

type ReplySuggester interface {
	Suggest(ctx context.Context, conversationID, lastMessage string) (string, error)
}

type EmailSender interface {
	Send(ctx context.Context, msg mail.Message) (string, error)
}

type ContactSyncer interface {
	UpsertContact(ctx context.Context, contact brevo.Contact) (int64, error)
}

type Auditor interface {
	Audit(ctx context.Context, actor Actor, action, entityType, entityID string, metadata map[string]any)
}

type ConsentService interface {
	RecordConsent(ctx context.Context, actor Actor, input RecordConsentInput) (*entity.Consent, error)
	HasConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string) (bool, error)
}

// StudentService é o que a conversão de lead e a importação precisam do caso de uso de alunos.
type StudentService interface {
	CreateStudent(ctx context.Context, actor Actor, input CreateStudentInput) (*entity.Student, error)
	DeactivateStudent(ctx context.Context, actor Actor, id string) error
}

type LeadService interface {
	CreateLead(ctx context.Context, actor Actor, input CreateLeadInput) (*entity.Lead, error)
}

type nopAuditor struct{}

func (nopAuditor) Audit(context.Context, Actor, string, string, string, map[string]any) {}
