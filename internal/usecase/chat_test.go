package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-crm/internal/entity"
)

func conversation() *entity.Conversation {
	return &entity.Conversation{ID: "conv-1", OrganizationID: testOrg, Phone: "5511999998888", ContactName: "Ana"}
}

func TestSendMessageDeliversThroughWhatsApp(t *testing.T) {
	repo := new(MockConversationRepository)
	repo.On("FindByID", mock.Anything, testOrg, "conv-1").Return(conversation(), nil)
	repo.On("AddMessage", mock.Anything, mock.MatchedBy(func(m *entity.Message) bool {
		return m.Status == entity.MessagePending
	})).Return(nil)
	repo.On("UpdateMessageStatus", mock.Anything, mock.Anything, entity.MessageSent, "wamid.1").Return(nil)

	wa := new(MockWhatsAppSender)
	wa.On("SendText", mock.Anything, "5511999998888", "Olá!").Return("wamid.1", nil)

	uc := NewChatUseCase(repo, wa, nil, nil)

	msg, err := uc.SendMessage(context.Background(), agentActor, "conv-1", "  Olá!  ")

	require.NoError(t, err)
	assert.Equal(t, entity.MessageSent, msg.Status)
	assert.Equal(t, "wamid.1", msg.ProviderMessageID)
	assert.Equal(t, entity.DirectionOutbound, msg.Direction)
	assert.Equal(t, agentActor.UserID, msg.SentByUserID)
}

func TestSendMessageProviderFailureStoresFailedMessage(t *testing.T) {
	repo := new(MockConversationRepository)
	repo.On("FindByID", mock.Anything, testOrg, "conv-1").Return(conversation(), nil)
	repo.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateMessageStatus", mock.Anything, mock.Anything, entity.MessageFailed, "").Return(nil)

	wa := new(MockWhatsAppSender)
	wa.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("131047 re-engagement"))

	uc := NewChatUseCase(repo, wa, nil, nil)

	msg, err := uc.SendMessage(context.Background(), agentActor, "conv-1", "oi")

	require.NoError(t, err)
	assert.Equal(t, entity.MessageFailed, msg.Status)
	repo.AssertExpectations(t)
}

func TestSendMessageStoreFailureDoesNotSend(t *testing.T) {
	repo := new(MockConversationRepository)
	repo.On("FindByID", mock.Anything, testOrg, "conv-1").Return(conversation(), nil)
	repo.On("AddMessage", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	wa := new(MockWhatsAppSender)

	uc := NewChatUseCase(repo, wa, nil, nil)

	_, err := uc.SendMessage(context.Background(), agentActor, "conv-1", "oi")

	require.Error(t, err)
	wa.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageStatusUpdateFailureStillReturnsDelivered(t *testing.T) {
	repo := new(MockConversationRepository)
	repo.On("FindByID", mock.Anything, testOrg, "conv-1").Return(conversation(), nil)
	repo.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateMessageStatus", mock.Anything, mock.Anything, entity.MessageSent, "wamid.2").Return(errors.New("connection reset"))
	wa := new(MockWhatsAppSender)
	wa.On("SendText", mock.Anything, mock.Anything, "oi").Return("wamid.2", nil)

	uc := NewChatUseCase(repo, wa, nil, nil)

	msg, err := uc.SendMessage(context.Background(), agentActor, "conv-1", "oi")

	require.NoError(t, err)
	assert.Equal(t, entity.MessageSent, msg.Status)
	assert.Equal(t, "wamid.2", msg.ProviderMessageID)
}

func TestSendMessageRateLimitedPerUser(t *testing.T) {
	repo := new(MockConversationRepository)
	repo.On("FindByID", mock.Anything, testOrg, "conv-1").Return(conversation(), nil)
	repo.On("AddMessage", mock.Anything, mock.Anything).Return(nil)
	repo.On("UpdateMessageStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	wa := new(MockWhatsAppSender)
	wa.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return("wamid", nil)

	limiter := NewRateLimiter(&memRateLimitRepo{})
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.Now = func() time.Time { return now }

	uc := NewChatUseCase(repo, wa, nil, limiter)
	for i := 0; i < 30; i++ {
		_, err := uc.SendMessage(context.Background(), agentActor, "conv-1", "msg")
		require.NoError(t, err)
	}

	_, err := uc.SendMessage(context.Background(), agentActor, "conv-1", "msg")
	var rl *RateLimitError
	assert.ErrorAs(t, err, &rl)
}

func TestSendMessageRejectsEmptyBody(t *testing.T) {
	uc := NewChatUseCase(new(MockConversationRepository), nil, nil, nil)

	_, err := uc.SendMessage(context.Background(), agentActor, "conv-1", "   ")

	assert.Equal(t, CodeValidation, DomainCode(err))
}

func TestReceiveMessageIgnoresRedelivery(t *testing.T) {
	repo := new(MockConversationRepository)
	repo.On("FindOrCreateByPhone", mock.Anything, testOrg, "5511999998888", "Ana").Return(conversation(), nil)
	repo.On("AddMessage", mock.Anything, mock.Anything).Return(entity.ErrDuplicate)

	uc := NewChatUseCase(repo, nil, nil, nil)

	msg, err := uc.ReceiveMessage(context.Background(), InboundMessageInput{
		OrganizationID:    testOrg,
		Phone:             "11999998888",
		ContactName:       "Ana",
		Body:              "oi",
		ProviderMessageID: "wamid.in",
	})

	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestSuggestReplyUsesLatestInbound(t *testing.T) {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := new(MockConversationRepository)
	repo.On("FindByID", mock.Anything, testOrg, "conv-1").Return(conversation(), nil)
	repo.On("ListMessages", mock.Anything, "conv-1", 20).Return([]*entity.Message{
		{Direction: entity.DirectionInbound, Body: "qual o preço?", CreatedAt: base},
		{Direction: entity.DirectionOutbound, Body: "R$ 199", CreatedAt: base.Add(time.Minute)},
		{Direction: entity.DirectionInbound, Body: "tem parcelamento?", CreatedAt: base.Add(2 * time.Minute)},
	}, nil)

	ai := new(MockReplySuggester)
	ai.On("Suggest", mock.Anything, "conv-1", "tem parcelamento?").Return("Sim, em até 12x.", nil)

	uc := NewChatUseCase(repo, nil, ai, nil)

	got, err := uc.SuggestReply(context.Background(), agentActor, "conv-1")

	require.NoError(t, err)
	assert.Equal(t, "Sim, em até 12x.", got)
}

func TestSuggestReplyDisabled(t *testing.T) {
	uc := NewChatUseCase(new(MockConversationRepository), nil, nil, nil)

	_, err := uc.SuggestReply(context.Background(), agentActor, "conv-1")

	assert.Equal(t, CodeInvalidStep, DomainCode(err))
}
