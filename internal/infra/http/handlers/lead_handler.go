package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type LeadService interface {
	CaptureLead(ctx context.Context, organizationID string, input usecase.CreateLeadInput) (*entity.Lead, error)
	CreateLead(ctx context.Context, actor usecase.Actor, input usecase.CreateLeadInput) (*entity.Lead, error)
	GetLead(ctx context.Context, actor usecase.Actor, id string) (*entity.Lead, error)
	ListLeads(ctx context.Context, actor usecase.Actor, filter entity.LeadFilter) ([]*entity.Lead, error)
	UpdateLead(ctx context.Context, actor usecase.Actor, id string, input usecase.UpdateLeadInput) (*entity.Lead, error)
	MoveLeadStage(ctx context.Context, actor usecase.Actor, id string, stage entity.LeadStage, lostReason string) (*entity.Lead, error)
	AssignLead(ctx context.Context, actor usecase.Actor, id, ownerID string) (*entity.Lead, error)
	DeleteLead(ctx context.Context, actor usecase.Actor, id string) error
	ConvertLead(ctx context.Context, actor usecase.Actor, id string, input usecase.ConvertLeadInput) (*entity.Student, error)
}

type LeadHandler struct {
	Leads                 LeadService
	DefaultOrganizationID string
}

func NewLeadHandler(leads LeadService, defaultOrganizationID string) *LeadHandler {
	return &LeadHandler{Leads: leads, DefaultOrganizationID: defaultOrganizationID}
}

type CaptureLeadRequest struct {
	usecase.CreateLeadInput
	OrganizationID string `json:"organization_id"`
}

type CaptureLeadResponse struct {
	Success bool   `json:"success"`
	LeadID  string `json:"lead_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CaptureLead (POST /public/leads) atende o formulário do site, sem autenticação.
func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	var req CaptureLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	org := req.OrganizationID
	if org == "" {
		org = h.DefaultOrganizationID
	}
	input := req.CreateLeadInput
	input.IP = clientIP(r)
	// campos internos não vêm do formulário público
	input.OwnerID = ""
	input.Notes = ""

	lead, err := h.Leads.CaptureLead(r.Context(), org, input)
	if err != nil {
		var rl *usecase.RateLimitError
		if errors.As(err, &rl) {
			writeError(w, r, err)
			return
		}
		status, msg := http.StatusInternalServerError, "não foi possível registrar o contato"
		if code := usecase.DomainCode(err); code != "" {
			status, msg = statusForCode(code), err.Error()
		} else {
			log.Printf("❌ Captura de lead falhou: %v", err)
		}
		writeJSON(w, status, CaptureLeadResponse{Success: false, Error: msg})
		return
	}

	writeJSON(w, http.StatusOK, CaptureLeadResponse{Success: true, LeadID: lead.ID})
}

func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	leads, err := h.Leads.ListLeads(r.Context(), a, entity.LeadFilter{
		Stage:   entity.LeadStage(q.Get("stage")),
		OwnerID: q.Get("owner_id"),
		Search:  q.Get("search"),
		Limit:   queryInt(r, "limit", 50),
		Offset:  queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if leads == nil {
		leads = []*entity.Lead{}
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.CreateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.IP = clientIP(r)

	lead, err := h.Leads.CreateLead(r.Context(), a, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	lead, err := h.Leads.GetLead(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.UpdateLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}
	lead, err := h.Leads.UpdateLead(r.Context(), a, chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) MoveStage(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Stage      entity.LeadStage `json:"stage"`
		LostReason string           `json:"lost_reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	lead, err := h.Leads.MoveLeadStage(r.Context(), a, chi.URLParam(r, "id"), body.Stage, body.LostReason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Assign(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		OwnerID string `json:"owner_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	lead, err := h.Leads.AssignLead(r.Context(), a, chi.URLParam(r, "id"), body.OwnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) Convert(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.ConvertLeadInput
	if !decodeJSON(w, r, &input) {
		return
	}
	student, err := h.Leads.ConvertLead(r.Context(), a, chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.Leads.DeleteLead(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
