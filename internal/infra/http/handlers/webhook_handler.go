package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	svix "github.com/svix/svix-webhooks/go"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

type BillingWebhookReceiver interface {
	ReceiveWebhook(ctx context.Context, body []byte) (bool, error)
}

// AsaasWebhookHandler só persiste e enfileira; o processamento fica no worker.
type AsaasWebhookHandler struct {
	Billing BillingWebhookReceiver
	Token   string
}

func NewAsaasWebhookHandler(billing BillingWebhookReceiver, token string) *AsaasWebhookHandler {
	return &AsaasWebhookHandler{Billing: billing, Token: token}
}

func (h *AsaasWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Token == "" || !tokenEqual(r.Header.Get("asaas-access-token"), h.Token) {
		log.Printf("🚫 Webhook Asaas com token inválido de %s", clientIP(r))
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "token inválido")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "corpo ilegível")
		return
	}

	duplicate, err := h.Billing.ReceiveWebhook(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if duplicate {
		log.Printf("🔁 Webhook Asaas duplicado ignorado")
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type ClerkUserSyncer interface {
	SyncClerkUser(ctx context.Context, input usecase.ClerkUserInput) (*entity.User, error)
	DeleteClerkUser(ctx context.Context, clerkID string) error
}

type clerkEvent struct {
	Type string        `json:"type"`
	Data clerkUserData `json:"data"`
}

type clerkUserData struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PublicMetadata struct {
		OrganizationID string `json:"organization_id"`
		Role           string `json:"role"`
	} `json:"public_metadata"`
}

func (d clerkUserData) primaryEmail() string {
	for _, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

// ClerkWebhookHandler mantém a tabela users em dia. O Clerk assina via Svix.
type ClerkWebhookHandler struct {
	Users                 ClerkUserSyncer
	verifier              *svix.Webhook
	DefaultOrganizationID string
}

func NewClerkWebhookHandler(users ClerkUserSyncer, secret, defaultOrganizationID string) (*ClerkWebhookHandler, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return &ClerkWebhookHandler{Users: users, verifier: wh, DefaultOrganizationID: defaultOrganizationID}, nil
}

func (h *ClerkWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "corpo ilegível")
		return
	}
	if err := h.verifier.Verify(body, r.Header); err != nil {
		log.Printf("🚫 Webhook Clerk com assinatura inválida: %v", err)
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "assinatura inválida")
		return
	}

	var event clerkEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return
	}

	switch event.Type {
	case "user.created", "user.updated":
		org := event.Data.PublicMetadata.OrganizationID
		if org == "" {
			org = h.DefaultOrganizationID
		}
		_, err = h.Users.SyncClerkUser(r.Context(), usecase.ClerkUserInput{
			ClerkID:        event.Data.ID,
			Email:          event.Data.primaryEmail(),
			Name:           strings.TrimSpace(event.Data.FirstName + " " + event.Data.LastName),
			OrganizationID: org,
			Role:           entity.Role(strings.ToUpper(event.Data.PublicMetadata.Role)),
		})
	case "user.deleted":
		err = h.Users.DeleteClerkUser(r.Context(), event.Data.ID)
	default:
		log.Printf("ℹ️ Webhook Clerk ignorado: %s", event.Type)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
