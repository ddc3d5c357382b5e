package entity

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleAgent   Role = "AGENT"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleAgent
}

// User é um membro da equipe autenticado pelo Clerk.
type User struct {
	ID             string    `json:"id"`
	ClerkID        string    `json:"clerk_id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type UserRepositoryInterface interface {
	UpsertByClerkID(ctx context.Context, u *User) error
	FindByClerkID(ctx context.Context, clerkID string) (*User, error)
	FindByID(ctx context.Context, organizationID, id string) (*User, error)
	UpdateRole(ctx context.Context, organizationID, id string, role Role) error
	DeactivateByClerkID(ctx context.Context, clerkID string) error
}
