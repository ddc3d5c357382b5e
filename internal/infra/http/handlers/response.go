package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string                    `json:"error"`
	Message string                    `json:"message"`
	Fields  []usecase.ValidationError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeError traduz os erros dos use cases para HTTP.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *usecase.RateLimitError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		writeErrorResponse(w, http.StatusTooManyRequests, usecase.CodeRateLimited, rl.Error())
		return
	}

	var de *usecase.DomainError
	if errors.As(err, &de) {
		writeJSON(w, statusForCode(de.Code), ErrorResponse{Error: de.Code, Message: de.Message, Fields: de.Fields})
		return
	}

	log.Printf("❌ %s %s: %v", r.Method, r.URL.Path, err)
	code := usecase.CodeDatabase
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		code = te.Code
	}
	writeErrorResponse(w, http.StatusInternalServerError, code, "erro interno")
}

func statusForCode(code string) int {
	switch {
	case code == usecase.CodeValidation || code == usecase.CodeInvalidCPF:
		return http.StatusBadRequest
	case code == usecase.CodeNotFound:
		return http.StatusNotFound
	case code == usecase.CodeForbidden:
		return http.StatusForbidden
	case code == usecase.CodeConflict || strings.HasPrefix(code, "DUPLICATE_"):
		return http.StatusConflict
	case code == usecase.CodeInvalidStep:
		return http.StatusUnprocessableEntity
	case code == usecase.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "JSON inválido")
		return false
	}
	return true
}

// actor lê o principal colocado pelo middleware de auth. Rotas protegidas sempre têm um.
func actor(w http.ResponseWriter, r *http.Request) (usecase.Actor, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "não autenticado")
		return usecase.Actor{}, false
	}
	return p.Actor(), true
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// clientIP lê o RemoteAddr; atrás de proxy confiável o middleware.RealIP já o reescreveu.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
