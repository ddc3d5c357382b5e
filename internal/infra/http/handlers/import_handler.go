package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const maxUploadBytes = 10 << 20

type ImportService interface {
	Preview(ctx context.Context, actor usecase.Actor, kind string, r io.Reader) (*usecase.ImportPreview, error)
	Execute(ctx context.Context, actor usecase.Actor, kind string, r io.Reader, mapping map[string]string) (*usecase.ImportResult, error)
}

type ImportHandler struct {
	Imports ImportService
}

func NewImportHandler(imports ImportService) *ImportHandler {
	return &ImportHandler{Imports: imports}
}

// uploadedFile lê o campo "file" do multipart.
func uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "envie o CSV no campo 'file' (máx. 10MB)")
		return nil, false
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "campo 'file' ausente")
		return nil, false
	}
	return f, true
}

// Preview atende POST /api/imports/{kind}/preview.
func (h *ImportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	f, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer f.Close()

	preview, err := h.Imports.Preview(r.Context(), a, chi.URLParam(r, "kind"), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// Execute atende POST /api/imports/{kind}. O campo "mapping" é um JSON header -> campo.
func (h *ImportHandler) Execute(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	f, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer f.Close()

	var mapping map[string]string
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, usecase.CodeValidation, "mapping deve ser um objeto JSON")
			return
		}
	}

	result, err := h.Imports.Execute(r.Context(), a, chi.URLParam(r, "kind"), f, mapping)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
