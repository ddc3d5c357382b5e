package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type EnrollmentService interface {
	CreateEnrollment(ctx context.Context, actor usecase.Actor, input usecase.CreateEnrollmentInput) (*entity.Enrollment, error)
	ListEnrollments(ctx context.Context, actor usecase.Actor, studentID string) ([]*entity.Enrollment, error)
	GetEnrollment(ctx context.Context, actor usecase.Actor, id string) (*entity.Enrollment, error)
	CancelEnrollment(ctx context.Context, actor usecase.Actor, id string) (*entity.Enrollment, error)
}

type EnrollmentHandler struct {
	Enrollments EnrollmentService
}

func NewEnrollmentHandler(enrollments EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{Enrollments: enrollments}
}

func (h *EnrollmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.CreateEnrollmentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	enrollment, err := h.Enrollments.CreateEnrollment(r.Context(), a, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollment)
}

// ListByStudent atende GET /api/students/{id}/enrollments.
func (h *EnrollmentHandler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	list, err := h.Enrollments.ListEnrollments(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*entity.Enrollment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *EnrollmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	enrollment, err := h.Enrollments.GetEnrollment(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

func (h *EnrollmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	enrollment, err := h.Enrollments.CancelEnrollment(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}
