package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type CampaignService interface {
	CreateTemplate(ctx context.Context, actor usecase.Actor, input usecase.TemplateInput) (*entity.EmailTemplate, error)
	ListTemplates(ctx context.Context, actor usecase.Actor) ([]*entity.EmailTemplate, error)
	GetTemplate(ctx context.Context, actor usecase.Actor, id string) (*entity.EmailTemplate, error)
	UpdateTemplate(ctx context.Context, actor usecase.Actor, id string, input usecase.TemplateInput) (*entity.EmailTemplate, error)
	DeleteTemplate(ctx context.Context, actor usecase.Actor, id string) error
	PreviewTemplate(ctx context.Context, actor usecase.Actor, id string, data mail.TemplateData) (string, string, error)

	UpsertContact(ctx context.Context, actor usecase.Actor, input usecase.ContactInput) (*entity.EmailContact, error)
	ListContacts(ctx context.Context, actor usecase.Actor, tags []string) ([]*entity.EmailContact, error)
	Unsubscribe(ctx context.Context, organizationID, email string) error

	CreateCampaign(ctx context.Context, actor usecase.Actor, input usecase.CreateCampaignInput) (*entity.EmailCampaign, error)
	ListCampaigns(ctx context.Context, actor usecase.Actor) ([]*entity.EmailCampaign, error)
	GetCampaign(ctx context.Context, actor usecase.Actor, id string) (*entity.EmailCampaign, error)
	CancelCampaign(ctx context.Context, actor usecase.Actor, id string) (*entity.EmailCampaign, error)
	SendCampaign(ctx context.Context, actor usecase.Actor, id string) (*entity.EmailCampaign, error)
}

type EmailHandler struct {
	Campaigns             CampaignService
	DefaultOrganizationID string
}

func NewEmailHandler(campaigns CampaignService, defaultOrganizationID string) *EmailHandler {
	return &EmailHandler{Campaigns: campaigns, DefaultOrganizationID: defaultOrganizationID}
}

// --- templates ---

func (h *EmailHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Campaigns.ListTemplates(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entity.EmailTemplate{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EmailHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.TemplateInput
	if !decodeJSON(w, r, &input) {
		return
	}
	tpl, err := h.Campaigns.CreateTemplate(r.Context(), a, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *EmailHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	tpl, err := h.Campaigns.GetTemplate(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *EmailHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.TemplateInput
	if !decodeJSON(w, r, &input) {
		return
	}
	tpl, err := h.Campaigns.UpdateTemplate(r.Context(), a, chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *EmailHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.Campaigns.DeleteTemplate(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EmailHandler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	data := mail.TemplateData{
		Name:           body.Name,
		FirstName:      mail.FirstName(body.Name),
		Email:          body.Email,
		UnsubscribeURL: "#",
	}
	subject, html, err := h.Campaigns.PreviewTemplate(r.Context(), a, chi.URLParam(r, "id"), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"subject": subject, "html": html})
}

// --- contatos ---

func (h *EmailHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Campaigns.ListContacts(r.Context(), a, splitCSV(r.URL.Query().Get("tags")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entity.EmailContact{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EmailHandler) UpsertContact(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.ContactInput
	if !decodeJSON(w, r, &input) {
		return
	}
	contact, err := h.Campaigns.UpsertContact(r.Context(), a, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (h *EmailHandler) UnsubscribeContact(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.Campaigns.Unsubscribe(r.Context(), a.OrganizationID, body.Email); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublicUnsubscribe atende o link de descadastro dos emails (POST /public/unsubscribe).
// Responde 204 mesmo para email desconhecido, para não revelar a base.
func (h *EmailHandler) PublicUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrganizationID string `json:"organization_id"`
		Email          string `json:"email"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	org := body.OrganizationID
	if org == "" {
		org = h.DefaultOrganizationID
	}
	err := h.Campaigns.Unsubscribe(r.Context(), org, body.Email)
	if err != nil && usecase.DomainCode(err) != usecase.CodeNotFound {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- campanhas ---

func (h *EmailHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Campaigns.ListCampaigns(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entity.EmailCampaign{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EmailHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.CreateCampaignInput
	if !decodeJSON(w, r, &input) {
		return
	}
	c, err := h.Campaigns.CreateCampaign(r.Context(), a, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *EmailHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	c, err := h.Campaigns.GetCampaign(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *EmailHandler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	c, err := h.Campaigns.SendCampaign(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

func (h *EmailHandler) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	c, err := h.Campaigns.CancelCampaign(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
