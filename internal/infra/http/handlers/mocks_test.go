package handlers

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) CaptureLead(ctx context.Context, organizationID string, input usecase.CreateLeadInput) (*entity.Lead, error) {
	args := m.Called(ctx, organizationID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadService) CreateLead(ctx context.Context, actor usecase.Actor, input usecase.CreateLeadInput) (*entity.Lead, error) {
	args := m.Called(ctx, actor, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadService) GetLead(ctx context.Context, actor usecase.Actor, id string) (*entity.Lead, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadService) ListLeads(ctx context.Context, actor usecase.Actor, filter entity.LeadFilter) ([]*entity.Lead, error) {
	args := m.Called(ctx, actor, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Lead), args.Error(1)
}

func (m *MockLeadService) UpdateLead(ctx context.Context, actor usecase.Actor, id string, input usecase.UpdateLeadInput) (*entity.Lead, error) {
	args := m.Called(ctx, actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadService) MoveLeadStage(ctx context.Context, actor usecase.Actor, id string, stage entity.LeadStage, lostReason string) (*entity.Lead, error) {
	args := m.Called(ctx, actor, id, stage, lostReason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadService) AssignLead(ctx context.Context, actor usecase.Actor, id, ownerID string) (*entity.Lead, error) {
	args := m.Called(ctx, actor, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadService) DeleteLead(ctx context.Context, actor usecase.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockLeadService) ConvertLead(ctx context.Context, actor usecase.Actor, id string, input usecase.ConvertLeadInput) (*entity.Student, error) {
	args := m.Called(ctx, actor, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Student), args.Error(1)
}

type MockBillingReceiver struct {
	mock.Mock
}

func (m *MockBillingReceiver) ReceiveWebhook(ctx context.Context, body []byte) (bool, error) {
	args := m.Called(ctx, body)
	return args.Bool(0), args.Error(1)
}

type MockClerkUsers struct {
	mock.Mock
}

func (m *MockClerkUsers) SyncClerkUser(ctx context.Context, input usecase.ClerkUserInput) (*entity.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockClerkUsers) DeleteClerkUser(ctx context.Context, clerkID string) error {
	return m.Called(ctx, clerkID).Error(0)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) ListConversations(ctx context.Context, actor usecase.Actor, limit, offset int) ([]*entity.Conversation, error) {
	args := m.Called(ctx, actor, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Conversation), args.Error(1)
}

func (m *MockChatService) GetMessages(ctx context.Context, actor usecase.Actor, conversationID string, limit int) ([]*entity.Message, error) {
	args := m.Called(ctx, actor, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Message), args.Error(1)
}

func (m *MockChatService) SendMessage(ctx context.Context, actor usecase.Actor, conversationID, body string) (*entity.Message, error) {
	args := m.Called(ctx, actor, conversationID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Message), args.Error(1)
}

func (m *MockChatService) ReceiveMessage(ctx context.Context, input usecase.InboundMessageInput) (*entity.Message, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Message), args.Error(1)
}

func (m *MockChatService) SuggestReply(ctx context.Context, actor usecase.Actor, conversationID string) (string, error) {
	args := m.Called(ctx, actor, conversationID)
	return args.String(0), args.Error(1)
}

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Preview(ctx context.Context, actor usecase.Actor, kind string, r io.Reader) (*usecase.ImportPreview, error) {
	args := m.Called(ctx, actor, kind, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ImportPreview), args.Error(1)
}

func (m *MockImportService) Execute(ctx context.Context, actor usecase.Actor, kind string, r io.Reader, mapping map[string]string) (*usecase.ImportResult, error) {
	args := m.Called(ctx, actor, kind, r, mapping)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ImportResult), args.Error(1)
}

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

type stubBroker struct{ closed bool }

func (s stubBroker) IsClosed() bool { return s.closed }
