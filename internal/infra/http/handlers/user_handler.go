package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type RoleUpdater interface {
	UpdateRole(ctx context.Context, actor usecase.Actor, userID string, role entity.Role) (*entity.User, error)
}

type DashboardService interface {
	GetDashboard(ctx context.Context, actor usecase.Actor) (*usecase.Dashboard, error)
}

type UserHandler struct {
	Users     RoleUpdater
	Dashboard DashboardService
}

func NewUserHandler(users RoleUpdater, dashboard DashboardService) *UserHandler {
	return &UserHandler{Users: users, Dashboard: dashboard}
}

// Me devolve o principal da sessão; o front usa para montar o menu por papel.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":         a.UserID,
		"organization_id": a.OrganizationID,
		"role":            string(a.Role),
	})
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Role entity.Role `json:"role"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	user, err := h.Users.UpdateRole(r.Context(), a, chi.URLParam(r, "id"), body.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	d, err := h.Dashboard.GetDashboard(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
