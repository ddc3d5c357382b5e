package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	DirectionInbound  = "IN"
	DirectionOutbound = "OUT"

	MessagePending  = "PENDING"
	MessageSent     = "SENT"
	MessageFailed   = "FAILED"
	MessageReceived = "RECEIVED"
)

type Conversation struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Phone          string    `json:"phone"`
	ContactName    string    `json:"contact_name"`
	LeadID         string    `json:"lead_id,omitempty"`
	StudentID      string    `json:"student_id,omitempty"`
	UnreadCount    int       `json:"unread_count"`
	LastMessageAt  time.Time `json:"last_message_at"`
	CreatedAt      time.Time `json:"created_at"`
}

type Message struct {
	ID                string    `json:"id"`
	ConversationID    string    `json:"conversation_id"`
	Direction         string    `json:"direction"`
	Body              string    `json:"body"`
	Status            string    `json:"status"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	SentByUserID      string    `json:"sent_by_user_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func NewMessage(conversationID, direction, body string) *Message {
	return &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Direction:      direction,
		Body:           body,
		CreatedAt:      time.Now(),
	}
}

type ConversationRepositoryInterface interface {
	// FindOrCreateByPhone devolve a conversa de (organização, telefone), criando se preciso.
	FindOrCreateByPhone(ctx context.Context, organizationID, phone, contactName string) (*Conversation, error)
	FindByID(ctx context.Context, organizationID, id string) (*Conversation, error)
	List(ctx context.Context, organizationID string, limit, offset int) ([]*Conversation, error)
	AddMessage(ctx context.Context, m *Message) error
	UpdateMessageStatus(ctx context.Context, id, status, providerMessageID string) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error)
	MarkRead(ctx context.Context, organizationID, id string) error
}
