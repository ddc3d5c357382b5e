package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type StudentService interface {
	CreateStudent(ctx context.Context, actor usecase.Actor, input usecase.CreateStudentInput) (*entity.Student, error)
	GetStudent(ctx context.Context, actor usecase.Actor, id string) (*entity.Student, error)
	ListStudents(ctx context.Context, actor usecase.Actor, filter entity.StudentFilter) ([]*entity.Student, error)
	UpdateStudent(ctx context.Context, actor usecase.Actor, id string, input usecase.UpdateStudentInput) (*entity.Student, error)
	DeactivateStudent(ctx context.Context, actor usecase.Actor, id string) error
	AnonymizeStudent(ctx context.Context, actor usecase.Actor, id string) error
}

type PaymentLister interface {
	ListStudentPayments(ctx context.Context, actor usecase.Actor, studentID string) ([]*entity.Payment, error)
}

type SubjectExporter interface {
	ExportSubjectData(ctx context.Context, actor usecase.Actor, studentID string) (*usecase.SubjectExport, error)
}

type StudentHandler struct {
	Students StudentService
	Payments PaymentLister
	Exporter SubjectExporter
}

func NewStudentHandler(students StudentService, payments PaymentLister, exporter SubjectExporter) *StudentHandler {
	return &StudentHandler{Students: students, Payments: payments, Exporter: exporter}
}

func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	students, err := h.Students.ListStudents(r.Context(), a, entity.StudentFilter{
		Search:     r.URL.Query().Get("search"),
		OnlyActive: r.URL.Query().Get("active") != "false",
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if students == nil {
		students = []*entity.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.CreateStudentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	student, err := h.Students.CreateStudent(r.Context(), a, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	student, err := h.Students.GetStudent(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input usecase.UpdateStudentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	student, err := h.Students.UpdateStudent(r.Context(), a, chi.URLParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// Deactivate é o DELETE: o aluno fica inativo, os dados continuam.
func (h *StudentHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.Students.DeactivateStudent(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StudentHandler) Anonymize(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.Students.AnonymizeStudent(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StudentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	payments, err := h.Payments.ListStudentPayments(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if payments == nil {
		payments = []*entity.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *StudentHandler) Export(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	export, err := h.Exporter.ExportSubjectData(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="titular-`+chi.URLParam(r, "id")+`.json"`)
	writeJSON(w, http.StatusOK, export)
}
