package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, clerk_id, organization_id, name, email, role, is_active, created_at, updated_at`

// UpsertByClerkID sincroniza o usuário vindo do Clerk. O papel local é preservado; só entra
// no INSERT.
func (r *UserRepository) UpsertByClerkID(ctx context.Context, u *entity.User) error {
	query := `
		INSERT INTO users (id, clerk_id, organization_id, name, email, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (clerk_id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id, role, created_at
	`
	var role string
	err := r.DB.QueryRowContext(ctx, query,
		u.ID,
		u.ClerkID,
		u.OrganizationID,
		u.Name,
		u.Email,
		string(u.Role),
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	).Scan(&u.ID, &role, &u.CreatedAt)
	if err != nil {
		return mapError(err)
	}
	u.Role = entity.Role(role)
	return nil
}

func (r *UserRepository) FindByClerkID(ctx context.Context, clerkID string) (*entity.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE clerk_id = $1`, clerkID))
}

func (r *UserRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE organization_id = $1 AND id = $2`, organizationID, id))
}

func (r *UserRepository) UpdateRole(ctx context.Context, organizationID, id string, role entity.Role) error {
	return expectOne(r.DB.ExecContext(ctx,
		`UPDATE users SET role = $3, updated_at = NOW() WHERE organization_id = $1 AND id = $2`,
		organizationID, id, string(role)))
}

func (r *UserRepository) DeactivateByClerkID(ctx context.Context, clerkID string) error {
	return expectOne(r.DB.ExecContext(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE clerk_id = $1`, clerkID))
}

func scanUser(row rowScanner) (*entity.User, error) {
	var u entity.User
	var role string
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.OrganizationID,
		&u.Name,
		&u.Email,
		&role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	u.Role = entity.Role(role)
	return &u, nil
}
