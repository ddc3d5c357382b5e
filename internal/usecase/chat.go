package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/telemetry"
)

const maxMessageLength = 4096

type InboundMessageInput struct {
	OrganizationID    string
	Phone             string
	ContactName       string
	Body              string
	ProviderMessageID string
}

type ChatUseCase struct {
	Repo        entity.ConversationRepositoryInterface
	WhatsApp    WhatsAppSender
	Suggester   ReplySuggester
	RateLimiter *RateLimiter
}

func NewChatUseCase(repo entity.ConversationRepositoryInterface, wa WhatsAppSender, suggester ReplySuggester, limiter *RateLimiter) *ChatUseCase {
	return &ChatUseCase{
		Repo:        repo,
		WhatsApp:    wa,
		Suggester:   suggester,
		RateLimiter: limiter,
	}
}

func (uc *ChatUseCase) ListConversations(ctx context.Context, actor Actor, limit, offset int) ([]*entity.Conversation, error) {
	list, err := uc.Repo.List(ctx, actor.OrganizationID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, dbError("failed to list conversations", err)
	}
	return list, nil
}

// GetMessages devolve o histórico e zera o contador de não lidas.
func (uc *ChatUseCase) GetMessages(ctx context.Context, actor Actor, conversationID string, limit int) ([]*entity.Message, error) {
	conv, err := uc.find(ctx, actor.OrganizationID, conversationID)
	if err != nil {
		return nil, err
	}

	msgs, err := uc.Repo.ListMessages(ctx, conv.ID, clampLimit(limit))
	if err != nil {
		return nil, dbError("failed to list messages", err)
	}
	if conv.UnreadCount > 0 {
		if err := uc.Repo.MarkRead(ctx, actor.OrganizationID, conv.ID); err != nil {
			log.Printf("⚠️ Falha ao marcar conversa %s como lida: %v", conv.ID, err)
		}
	}
	return msgs, nil
}

// SendMessage grava a mensagem como PENDING, envia pelo WhatsApp e fecha o status. Falha no
// envio não é erro da chamada: a mensagem volta com status FAILED para a interface mostrar.
func (uc *ChatUseCase) SendMessage(ctx context.Context, actor Actor, conversationID, body string) (*entity.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationFailed([]ValidationError{{"body", "is required"}})
	}
	if len(body) > maxMessageLength {
		return nil, validationFailed([]ValidationError{{"body", "must not exceed 4096 characters"}})
	}

	if uc.RateLimiter != nil {
		if err := uc.RateLimiter.Enforce(ctx, actor.UserID, ActionChatSend); err != nil {
			telemetry.RecordRateLimited(ActionChatSend)
			return nil, err
		}
	}

	conv, err := uc.find(ctx, actor.OrganizationID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := entity.NewMessage(conv.ID, entity.DirectionOutbound, body)
	msg.SentByUserID = actor.UserID
	msg.Status = entity.MessagePending

	// sem registro não envia: nada sai pelo WhatsApp sem estar no histórico
	if err := uc.Repo.AddMessage(ctx, msg); err != nil {
		return nil, dbError("failed to store message", err)
	}

	providerID, sendErr := "", error(nil)
	if uc.WhatsApp == nil {
		sendErr = errors.New("whatsapp não configurado")
	} else {
		providerID, sendErr = uc.WhatsApp.SendText(ctx, conv.Phone, body)
	}
	msg.Status = entity.MessageSent
	if sendErr != nil {
		log.Printf("❌ Falha ao enviar WhatsApp na conversa %s: %v", conv.ID, sendErr)
		telemetry.RecordIntegrationError("whatsapp")
		msg.Status = entity.MessageFailed
	}
	msg.ProviderMessageID = providerID

	if err := uc.Repo.UpdateMessageStatus(ctx, msg.ID, msg.Status, msg.ProviderMessageID); err != nil {
		// o envio já aconteceu; a mensagem fica PENDING no banco até alguém reconciliar
		log.Printf("⚠️ Mensagem %s enviada (%s) mas o status não foi gravado: %v", msg.ID, msg.Status, err)
	}
	return msg, nil
}

// ReceiveMessage registra uma mensagem recebida pelo webhook do WhatsApp.
// Reentregas do mesmo wamid são ignoradas.
func (uc *ChatUseCase) ReceiveMessage(ctx context.Context, input InboundMessageInput) (*entity.Message, error) {
	if input.OrganizationID == "" || input.Phone == "" || strings.TrimSpace(input.Body) == "" {
		return nil, validationFailed([]ValidationError{{"message", "organization, phone and body are required"}})
	}

	phone := NormalizePhone(input.Phone)
	conv, err := uc.Repo.FindOrCreateByPhone(ctx, input.OrganizationID, phone, input.ContactName)
	if err != nil {
		return nil, dbError("failed to resolve conversation", err)
	}

	msg := entity.NewMessage(conv.ID, entity.DirectionInbound, input.Body)
	msg.Status = entity.MessageReceived
	msg.ProviderMessageID = input.ProviderMessageID

	if err := uc.Repo.AddMessage(ctx, msg); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, nil
		}
		return nil, dbError("failed to store message", err)
	}

	log.Printf("💬 Mensagem recebida de %s na conversa %s", phone, conv.ID)
	return msg, nil
}

// SuggestReply pede ao assistente (Dify) uma resposta para a última mensagem recebida.
func (uc *ChatUseCase) SuggestReply(ctx context.Context, actor Actor, conversationID string) (string, error) {
	if uc.Suggester == nil {
		return "", &DomainError{Code: CodeInvalidStep, Message: "sugestões de IA desativadas"}
	}

	conv, err := uc.find(ctx, actor.OrganizationID, conversationID)
	if err != nil {
		return "", err
	}

	msgs, err := uc.Repo.ListMessages(ctx, conv.ID, 20)
	if err != nil {
		return "", dbError("failed to list messages", err)
	}

	var last *entity.Message
	for _, m := range msgs {
		if m.Direction == entity.DirectionInbound && (last == nil || m.CreatedAt.After(last.CreatedAt)) {
			last = m
		}
	}
	if last == nil {
		return "", &DomainError{Code: CodeInvalidStep, Message: "nenhuma mensagem do contato para responder"}
	}

	suggestion, err := uc.Suggester.Suggest(ctx, conv.ID, last.Body)
	if err != nil {
		telemetry.RecordIntegrationError("dify")
		return "", &TechnicalError{Code: CodeGateway, Message: "falha ao gerar sugestão", Err: err}
	}
	return suggestion, nil
}

func (uc *ChatUseCase) find(ctx context.Context, organizationID, id string) (*entity.Conversation, error) {
	conv, err := uc.Repo.FindByID(ctx, organizationID, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("conversa")
		}
		return nil, dbError("failed to load conversation", err)
	}
	return conv, nil
}
