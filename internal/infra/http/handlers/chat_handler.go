package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/whatsapp"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type ChatService interface {
	ListConversations(ctx context.Context, actor usecase.Actor, limit, offset int) ([]*entity.Conversation, error)
	GetMessages(ctx context.Context, actor usecase.Actor, conversationID string, limit int) ([]*entity.Message, error)
	SendMessage(ctx context.Context, actor usecase.Actor, conversationID, body string) (*entity.Message, error)
	ReceiveMessage(ctx context.Context, input usecase.InboundMessageInput) (*entity.Message, error)
	SuggestReply(ctx context.Context, actor usecase.Actor, conversationID string) (string, error)
}

type ChatHandler struct {
	Chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{Chat: chat}
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Chat.ListConversations(r.Context(), a, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entity.Conversation{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	msgs, err := h.Chat.GetMessages(r.Context(), a, chi.URLParam(r, "id"), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*entity.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Body string `json:"body"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	msg, err := h.Chat.SendMessage(r.Context(), a, chi.URLParam(r, "id"), body.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// a mensagem volta mesmo com falha no envio, com status FAILED
	status := http.StatusCreated
	if msg.Status == entity.MessageFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, msg)
}

func (h *ChatHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	suggestion, err := h.Chat.SuggestReply(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"suggestion": suggestion})
}

// WhatsAppWebhookHandler recebe as notificações da Cloud API da Meta.
type WhatsAppWebhookHandler struct {
	Chat           ChatService
	VerifyToken    string
	OrganizationID string
}

func NewWhatsAppWebhookHandler(chat ChatService, verifyToken, organizationID string) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{Chat: chat, VerifyToken: verifyToken, OrganizationID: organizationID}
}

// Verify responde o handshake GET da Meta com o hub.challenge.
func (h *WhatsAppWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if h.VerifyToken == "" || q.Get("hub.mode") != "subscribe" || !tokenEqual(q.Get("hub.verify_token"), h.VerifyToken) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, q.Get("hub.challenge"))
}

// Receive sempre responde 200 depois de ler o corpo: a Meta reenvia em qualquer outro status.
func (h *WhatsAppWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var payload whatsapp.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("⚠️ WhatsApp: payload inválido: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	for _, in := range payload.TextMessages() {
		_, err := h.Chat.ReceiveMessage(r.Context(), usecase.InboundMessageInput{
			OrganizationID:    h.OrganizationID,
			Phone:             in.From,
			ContactName:       in.ContactName,
			Body:              in.Body,
			ProviderMessageID: in.ProviderMessageID,
		})
		if err != nil {
			log.Printf("❌ WhatsApp: falha ao gravar mensagem %s: %v", in.ProviderMessageID, err)
		}
	}
	w.WriteHeader(http.StatusOK)
}
