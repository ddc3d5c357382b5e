package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/asaas"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/brevo"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
)

// ============ REPOSITÓRIOS ============

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.Lead, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, organizationID string, filter entity.LeadFilter) ([]*entity.Lead, error) {
	args := m.Called(ctx, organizationID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) CountByStage(ctx context.Context, organizationID string) (map[entity.LeadStage]int, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.LeadStage]int), args.Error(1)
}

func (m *MockLeadRepository) CountCreatedSince(ctx context.Context, organizationID string, since time.Time) (int, error) {
	args := m.Called(ctx, organizationID, since)
	return args.Int(0), args.Error(1)
}

type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) Create(ctx context.Context, s *entity.Student) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStudentRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.Student, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

func (m *MockStudentRepository) FindByCPF(ctx context.Context, organizationID, cpf string) (*entity.Student, error) {
	args := m.Called(ctx, organizationID, cpf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

func (m *MockStudentRepository) FindByAsaasCustomerID(ctx context.Context, id string) (*entity.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

func (m *MockStudentRepository) List(ctx context.Context, organizationID string, filter entity.StudentFilter) ([]*entity.Student, error) {
	args := m.Called(ctx, organizationID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Student), args.Error(1)
}

func (m *MockStudentRepository) Update(ctx context.Context, s *entity.Student) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStudentRepository) CountActive(ctx context.Context, organizationID string) (int, error) {
	args := m.Called(ctx, organizationID)
	return args.Int(0), args.Error(1)
}

type MockEnrollmentRepository struct {
	mock.Mock
}

func (m *MockEnrollmentRepository) Create(ctx context.Context, e *entity.Enrollment) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEnrollmentRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.Enrollment, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) ListByStudent(ctx context.Context, organizationID, studentID string) ([]*entity.Enrollment, error) {
	args := m.Called(ctx, organizationID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepository) Update(ctx context.Context, e *entity.Enrollment) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEnrollmentRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockWebhookEventRepository struct {
	mock.Mock
}

func (m *MockWebhookEventRepository) Create(ctx context.Context, e *entity.WebhookEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockWebhookEventRepository) FindByID(ctx context.Context, id string) (*entity.WebhookEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) MarkProcessed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockWebhookEventRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *MockWebhookEventRepository) ListRetryable(ctx context.Context, maxAttempts int, olderThan time.Time, limit int) ([]*entity.WebhookEvent, error) {
	args := m.Called(ctx, maxAttempts, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.WebhookEvent), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Upsert(ctx context.Context, p *entity.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockPaymentRepository) ListByStudent(ctx context.Context, organizationID, studentID string) ([]*entity.Payment, error) {
	args := m.Called(ctx, organizationID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumReceivedBetween(ctx context.Context, organizationID string, from, to time.Time) (int, error) {
	args := m.Called(ctx, organizationID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentRepository) CountOverdue(ctx context.Context, organizationID string) (int, error) {
	args := m.Called(ctx, organizationID)
	return args.Int(0), args.Error(1)
}

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, sub *entity.BillingSubscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockSubscriptionRepository) FindByID(ctx context.Context, id string) (*entity.BillingSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.BillingSubscription), args.Error(1)
}

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) FindOrCreateByPhone(ctx context.Context, organizationID, phone, contactName string) (*entity.Conversation, error) {
	args := m.Called(ctx, organizationID, phone, contactName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.Conversation, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Conversation), args.Error(1)
}

func (m *MockConversationRepository) List(ctx context.Context, organizationID string, limit, offset int) ([]*entity.Conversation, error) {
	args := m.Called(ctx, organizationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Conversation), args.Error(1)
}

func (m *MockConversationRepository) AddMessage(ctx context.Context, msg *entity.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockConversationRepository) UpdateMessageStatus(ctx context.Context, id, status, providerMessageID string) error {
	return m.Called(ctx, id, status, providerMessageID).Error(0)
}

func (m *MockConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Message), args.Error(1)
}

func (m *MockConversationRepository) MarkRead(ctx context.Context, organizationID, id string) error {
	return m.Called(ctx, organizationID, id).Error(0)
}

type MockEmailTemplateRepository struct {
	mock.Mock
}

func (m *MockEmailTemplateRepository) Create(ctx context.Context, t *entity.EmailTemplate) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockEmailTemplateRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.EmailTemplate, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateRepository) List(ctx context.Context, organizationID string) ([]*entity.EmailTemplate, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateRepository) Update(ctx context.Context, t *entity.EmailTemplate) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockEmailTemplateRepository) Delete(ctx context.Context, organizationID, id string) error {
	return m.Called(ctx, organizationID, id).Error(0)
}

type MockEmailContactRepository struct {
	mock.Mock
}

func (m *MockEmailContactRepository) Upsert(ctx context.Context, c *entity.EmailContact) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockEmailContactRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.EmailContact, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailContact), args.Error(1)
}

func (m *MockEmailContactRepository) ListSubscribed(ctx context.Context, organizationID string, tags []string) ([]*entity.EmailContact, error) {
	args := m.Called(ctx, organizationID, tags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.EmailContact), args.Error(1)
}

func (m *MockEmailContactRepository) ListPendingSync(ctx context.Context, limit int) ([]*entity.EmailContact, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.EmailContact), args.Error(1)
}

func (m *MockEmailContactRepository) MarkSynced(ctx context.Context, id string, brevoID int64) error {
	return m.Called(ctx, id, brevoID).Error(0)
}

func (m *MockEmailContactRepository) Unsubscribe(ctx context.Context, organizationID, email string) error {
	return m.Called(ctx, organizationID, email).Error(0)
}

type MockEmailCampaignRepository struct {
	mock.Mock
}

func (m *MockEmailCampaignRepository) Create(ctx context.Context, c *entity.EmailCampaign) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockEmailCampaignRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.EmailCampaign, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailCampaign), args.Error(1)
}

func (m *MockEmailCampaignRepository) List(ctx context.Context, organizationID string) ([]*entity.EmailCampaign, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.EmailCampaign), args.Error(1)
}

func (m *MockEmailCampaignRepository) Update(ctx context.Context, c *entity.EmailCampaign) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockEmailCampaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*entity.EmailCampaign, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.EmailCampaign), args.Error(1)
}

func (m *MockEmailCampaignRepository) IncrementResult(ctx context.Context, id string, sent bool) (*entity.EmailCampaign, error) {
	args := m.Called(ctx, id, sent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.EmailCampaign), args.Error(1)
}

type MockComplianceRepository struct {
	mock.Mock
}

func (m *MockComplianceRepository) SaveConsent(ctx context.Context, c *entity.Consent) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockComplianceRepository) LatestConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string) (*entity.Consent, error) {
	args := m.Called(ctx, organizationID, subjectType, subjectID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Consent), args.Error(1)
}

func (m *MockComplianceRepository) ListConsents(ctx context.Context, organizationID, subjectType, subjectID string) ([]*entity.Consent, error) {
	args := m.Called(ctx, organizationID, subjectType, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Consent), args.Error(1)
}

func (m *MockComplianceRepository) RevokeConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string, at time.Time) error {
	return m.Called(ctx, organizationID, subjectType, subjectID, purpose, at).Error(0)
}

func (m *MockComplianceRepository) WriteAudit(ctx context.Context, a *entity.AuditLog) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockComplianceRepository) ListAudit(ctx context.Context, organizationID, entityType, entityID string, limit int) ([]*entity.AuditLog, error) {
	args := m.Called(ctx, organizationID, entityType, entityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.AuditLog), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) UpsertByClerkID(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) FindByClerkID(ctx context.Context, clerkID string) (*entity.User, error) {
	args := m.Called(ctx, clerkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.User, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, organizationID, id string, role entity.Role) error {
	return m.Called(ctx, organizationID, id, role).Error(0)
}

func (m *MockUserRepository) DeactivateByClerkID(ctx context.Context, clerkID string) error {
	return m.Called(ctx, clerkID).Error(0)
}

// memRateLimitRepo guarda os hits em memória; mais legível que mock para janelas de tempo.
type memRateLimitRepo struct {
	hits []entity.RateLimitHit
}

func (r *memRateLimitRepo) CountSince(_ context.Context, identifier, action string, since, until time.Time) (int, time.Time, error) {
	var count int
	var oldest time.Time
	for _, h := range r.hits {
		if h.Identifier != identifier || h.Action != action {
			continue
		}
		if h.CreatedAt.Before(since) || h.CreatedAt.After(until) {
			continue
		}
		if count == 0 || h.CreatedAt.Before(oldest) {
			oldest = h.CreatedAt
		}
		count++
	}
	return count, oldest, nil
}

func (r *memRateLimitRepo) Insert(_ context.Context, hit entity.RateLimitHit) error {
	r.hits = append(r.hits, hit)
	return nil
}

// ============ SERVIÇOS EXTERNOS ============

type MockBillingGateway struct {
	mock.Mock
}

func (m *MockBillingGateway) CreateCustomer(ctx context.Context, input asaas.CreateCustomerInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockBillingGateway) CreateSubscription(ctx context.Context, input asaas.CreateSubscriptionInput) (*asaas.Subscription, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asaas.Subscription), args.Error(1)
}

func (m *MockBillingGateway) CancelSubscription(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBillingGateway) ListPayments(ctx context.Context, params asaas.ListParams) (*asaas.Page[asaas.Payment], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asaas.Page[asaas.Payment]), args.Error(1)
}

func (m *MockBillingGateway) ListSubscriptions(ctx context.Context, params asaas.ListParams) (*asaas.Page[asaas.Subscription], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asaas.Page[asaas.Subscription]), args.Error(1)
}

type MockQueuePublisher struct {
	mock.Mock
}

func (m *MockQueuePublisher) PublishWebhookEvent(ctx context.Context, payload queue.WebhookEventPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockQueuePublisher) PublishCampaignSend(ctx context.Context, payload queue.CampaignSendPayload) error {
	return m.Called(ctx, payload).Error(0)
}

type MockWhatsAppSender struct {
	mock.Mock
}

func (m *MockWhatsAppSender) SendText(ctx context.Context, phone, body string) (string, error) {
	args := m.Called(ctx, phone, body)
	return args.String(0), args.Error(1)
}

type MockReplySuggester struct {
	mock.Mock
}

func (m *MockReplySuggester) Suggest(ctx context.Context, conversationID, lastMessage string) (string, error) {
	args := m.Called(ctx, conversationID, lastMessage)
	return args.String(0), args.Error(1)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type MockContactSyncer struct {
	mock.Mock
}

func (m *MockContactSyncer) UpsertContact(ctx context.Context, c brevo.Contact) (int64, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(int64), args.Error(1)
}

type MockConsentService struct {
	mock.Mock
}

func (m *MockConsentService) RecordConsent(ctx context.Context, actor Actor, input RecordConsentInput) (*entity.Consent, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Consent), args.Error(1)
}

func (m *MockConsentService) HasConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string) (bool, error) {
	args := m.Called(ctx, organizationID, subjectType, subjectID, purpose)
	return args.Bool(0), args.Error(1)
}

type MockStudentService struct {
	mock.Mock
}

func (m *MockStudentService) CreateStudent(ctx context.Context, actor Actor, input CreateStudentInput) (*entity.Student, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

func (m *MockStudentService) DeactivateStudent(ctx context.Context, actor Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) CreateLead(ctx context.Context, actor Actor, input CreateLeadInput) (*entity.Lead, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

// recordingAuditor captura as ações auditadas.
type recordingAuditor struct {
	actions []string
}

func (a *recordingAuditor) Audit(_ context.Context, _ Actor, action, _, _ string, _ map[string]any) {
	a.actions = append(a.actions, action)
}

const (
	testOrg  = "org-1"
	validCPF = "52998224725"
)

var (
	adminActor = Actor{UserID: "user-admin", OrganizationID: testOrg, Role: entity.RoleAdmin}
	agentActor = Actor{UserID: "user-agent", OrganizationID: testOrg, Role: entity.RoleAgent}
)
