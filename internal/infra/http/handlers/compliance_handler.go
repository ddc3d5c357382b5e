package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type ComplianceService interface {
	RecordConsent(ctx context.Context, actor usecase.Actor, input usecase.RecordConsentInput) (*entity.Consent, error)
	RevokeConsent(ctx context.Context, actor usecase.Actor, subjectType, subjectID, purpose string) error
	ListConsents(ctx context.Context, actor usecase.Actor, subjectType, subjectID string) ([]*entity.Consent, error)
	ListAuditLogs(ctx context.Context, actor usecase.Actor, entityType, entityID string, limit int) ([]*entity.AuditLog, error)
}

type ComplianceHandler struct {
	Compliance ComplianceService
}

func NewComplianceHandler(compliance ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{Compliance: compliance}
}

func (h *ComplianceHandler) RecordConsent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.RecordConsentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.IP = clientIP(r)
	c, err := h.Compliance.RecordConsent(r.Context(), a, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// RevokeConsent atende DELETE /api/consents/{subjectType}/{subjectID}/{purpose}.
func (h *ComplianceHandler) RevokeConsent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	err := h.Compliance.RevokeConsent(r.Context(), a,
		chi.URLParam(r, "subjectType"), chi.URLParam(r, "subjectID"), chi.URLParam(r, "purpose"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ComplianceHandler) ListConsents(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("subject_type") == "" || q.Get("subject_id") == "" {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "subject_type e subject_id são obrigatórios")
		return
	}
	list, err := h.Compliance.ListConsents(r.Context(), a, q.Get("subject_type"), q.Get("subject_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entity.Consent{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ComplianceHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.Compliance.ListAuditLogs(r.Context(), a, q.Get("entity_type"), q.Get("entity_id"), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entity.AuditLog{}
	}
	writeJSON(w, http.StatusOK, list)
}
