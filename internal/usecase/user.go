package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-crm/internal/entity"
)

// ClerkUserInput é o recorte do evento user.created/user.updated do Clerk.
type ClerkUserInput struct {
	ClerkID        string
	Email          string
	Name           string
	OrganizationID string
	Role           entity.Role
}

// Principal é o usuário autenticado resolvido a partir do JWT.
type Principal struct {
	UserID         string
	ClerkID        string
	OrganizationID string
	Role           entity.Role
}

func (p Principal) Actor() Actor {
	return Actor{UserID: p.UserID, OrganizationID: p.OrganizationID, Role: p.Role}
}

var ErrInactiveUser = errors.New("usuário inativo")

type UserUseCase struct {
	Repo    entity.UserRepositoryInterface
	Auditor Auditor
}

func NewUserUseCase(repo entity.UserRepositoryInterface, auditor Auditor) *UserUseCase {
	if auditor == nil {
		auditor = nopAuditor{}
	}
	return &UserUseCase{Repo: repo, Auditor: auditor}
}

// SyncClerkUser cria ou atualiza o usuário local. O papel só é definido na criação;
// depois disso quem manda é UpdateRole.
func (uc *UserUseCase) SyncClerkUser(ctx context.Context, input ClerkUserInput) (*entity.User, error) {
	if input.ClerkID == "" {
		return nil, validationFailed([]ValidationError{{"id", "is required"}})
	}
	if input.OrganizationID == "" {
		return nil, validationFailed([]ValidationError{{"organization_id", "is required"}})
	}

	now := time.Now()
	user := &entity.User{
		ID:             uuid.New().String(),
		ClerkID:        input.ClerkID,
		OrganizationID: input.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		Role:           input.Role,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if !user.Role.Valid() {
		user.Role = entity.RoleAgent
	}

	if existing, err := uc.Repo.FindByClerkID(ctx, input.ClerkID); err == nil {
		user.ID = existing.ID
		user.Role = existing.Role
		user.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, dbError("failed to load user", err)
	}

	if err := uc.Repo.UpsertByClerkID(ctx, user); err != nil {
		return nil, dbError("failed to sync user", err)
	}
	log.Printf("👤 Usuário Clerk %s sincronizado (org %s, papel %s)", user.ClerkID, user.OrganizationID, user.Role)
	return user, nil
}

func (uc *UserUseCase) DeleteClerkUser(ctx context.Context, clerkID string) error {
	if clerkID == "" {
		return validationFailed([]ValidationError{{"id", "is required"}})
	}
	if err := uc.Repo.DeactivateByClerkID(ctx, clerkID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil
		}
		return dbError("failed to deactivate user", err)
	}
	log.Printf("🚫 Usuário Clerk %s desativado", clerkID)
	return nil
}

// UpdateRole troca o papel de um usuário da mesma organização. Só ADMIN, e nunca o próprio.
func (uc *UserUseCase) UpdateRole(ctx context.Context, actor Actor, userID string, role entity.Role) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("apenas administradores podem alterar papéis")
	}
	if !role.Valid() {
		return nil, validationFailed([]ValidationError{{"role", "must be ADMIN, MANAGER or AGENT"}})
	}
	if userID == actor.UserID {
		return nil, forbidden("não é possível alterar o próprio papel")
	}

	user, err := uc.Repo.FindByID(ctx, actor.OrganizationID, userID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("usuário")
		}
		return nil, dbError("failed to load user", err)
	}
	previous := user.Role

	if err := uc.Repo.UpdateRole(ctx, actor.OrganizationID, userID, role); err != nil {
		return nil, dbError("failed to update role", err)
	}
	user.Role = role
	user.UpdatedAt = time.Now()

	uc.Auditor.Audit(ctx, actor, "user.role_changed", "user", user.ID, map[string]any{
		"from": string(previous),
		"to":   string(role),
	})
	return user, nil
}

// ResolvePrincipal carrega o usuário local do sub do JWT.
func (uc *UserUseCase) ResolvePrincipal(ctx context.Context, clerkID string) (*Principal, error) {
	user, err := uc.Repo.FindByClerkID(ctx, clerkID)
	if err != nil {
		return nil, fmt.Errorf("usuário %s: %w", clerkID, err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return &Principal{
		UserID:         user.ID,
		ClerkID:        user.ClerkID,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
	}, nil
}
