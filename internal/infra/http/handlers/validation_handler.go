package handlers

import (
	"context"
	"net/http"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type CPFChecker interface {
	CheckCPF(ctx context.Context, actor usecase.Actor, cpf string) error
}

type ValidationHandler struct {
	Students CPFChecker
}

func NewValidationHandler(students CPFChecker) *ValidationHandler {
	return &ValidationHandler{Students: students}
}

// Handle (POST /api/students/validate) é a pré-checagem do formulário de matrícula:
// 400 para CPF inválido, 409 se já existe aluno ativo com o CPF.
func (h *ValidationHandler) Handle(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var input struct {
		CPF string `json:"cpf"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.CPF == "" {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "cpf é obrigatório")
		return
	}

	if err := h.Students.CheckCPF(r.Context(), a, input.CPF); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
