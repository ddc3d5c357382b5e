package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/crypto"
)

type LeadRepository struct {
	DB    *sql.DB
	Vault *crypto.Vault
}

func NewLeadRepository(db *sql.DB, vault *crypto.Vault) *LeadRepository {
	return &LeadRepository{DB: db, Vault: vault}
}

const leadColumns = `id, organization_id, name, email, phone, cpf, source, interest, stage, tags, notes,
	owner_id, referrer_lead_id, converted_student_id, lost_reason, is_active, last_contact_at, created_at, updated_at`

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	cpf, err := r.Vault.Encrypt(lead.CPF)
	if err != nil {
		return fmt.Errorf("erro ao cifrar cpf: %w", err)
	}

	query := `
		INSERT INTO leads (id, organization_id, name, email, phone, cpf, source, interest, stage, tags, notes,
			owner_id, referrer_lead_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.OrganizationID,
		lead.Name,
		nullString(lead.Email),
		nullString(lead.Phone),
		nullString(cpf),
		nullString(lead.Source),
		nullString(lead.Interest),
		string(lead.Stage),
		pq.Array(nonNil(lead.Tags)),
		nullString(lead.Notes),
		nullString(lead.OwnerID),
		nullString(lead.ReferrerLeadID),
		lead.IsActive,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	return mapError(err)
}

// Upsert é usado na captura pública: mesmo email na mesma organização atualiza o lead
// existente sem mexer na etapa do funil.
func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) error {
	cpf, err := r.Vault.Encrypt(lead.CPF)
	if err != nil {
		return fmt.Errorf("erro ao cifrar cpf: %w", err)
	}

	query := `
		INSERT INTO leads (id, organization_id, name, email, phone, cpf, source, interest, stage, tags, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, NOW(), NOW())
		ON CONFLICT (organization_id, email)
		DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), leads.name),
			phone = COALESCE(EXCLUDED.phone, leads.phone),
			cpf = COALESCE(EXCLUDED.cpf, leads.cpf),
			source = COALESCE(leads.source, EXCLUDED.source),
			interest = COALESCE(EXCLUDED.interest, leads.interest),
			is_active = TRUE,
			updated_at = NOW()
		RETURNING id, stage, owner_id, is_active, created_at, updated_at
	`

	var stage string
	var owner sql.NullString
	err = r.DB.QueryRowContext(ctx, query,
		lead.ID,
		lead.OrganizationID,
		lead.Name,
		nullString(lead.Email),
		nullString(lead.Phone),
		nullString(cpf),
		nullString(lead.Source),
		nullString(lead.Interest),
		string(lead.Stage),
		pq.Array(nonNil(lead.Tags)),
	).Scan(
		&lead.ID,
		&stage,
		&owner,
		&lead.IsActive,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	lead.Stage = entity.LeadStage(stage)
	lead.OwnerID = fromNull(owner)
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE organization_id = $1 AND id = $2`
	return r.scan(r.DB.QueryRowContext(ctx, query, organizationID, id))
}

func (r *LeadRepository) List(ctx context.Context, organizationID string, filter entity.LeadFilter) ([]*entity.Lead, error) {
	var sb strings.Builder
	args := []any{organizationID}
	sb.WriteString(`SELECT ` + leadColumns + ` FROM leads WHERE organization_id = $1 AND is_active = TRUE`)

	if filter.Stage != "" {
		args = append(args, string(filter.Stage))
		fmt.Fprintf(&sb, " AND stage = $%d", len(args))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		fmt.Fprintf(&sb, " AND owner_id = $%d", len(args))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		fmt.Fprintf(&sb, " AND (name ILIKE $%[1]d OR email ILIKE $%[1]d OR phone ILIKE $%[1]d)", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	cpf, err := r.Vault.Encrypt(lead.CPF)
	if err != nil {
		return fmt.Errorf("erro ao cifrar cpf: %w", err)
	}

	query := `
		UPDATE leads SET
			name = $3, email = $4, phone = $5, cpf = $6, source = $7, interest = $8, stage = $9, tags = $10,
			notes = $11, owner_id = $12, referrer_lead_id = $13, converted_student_id = $14, lost_reason = $15,
			is_active = $16, last_contact_at = $17, updated_at = $18
		WHERE organization_id = $1 AND id = $2
	`
	return expectOne(r.DB.ExecContext(ctx, query,
		lead.OrganizationID,
		lead.ID,
		lead.Name,
		nullString(lead.Email),
		nullString(lead.Phone),
		nullString(cpf),
		nullString(lead.Source),
		nullString(lead.Interest),
		string(lead.Stage),
		pq.Array(nonNil(lead.Tags)),
		nullString(lead.Notes),
		nullString(lead.OwnerID),
		nullString(lead.ReferrerLeadID),
		nullString(lead.ConvertedStudentID),
		nullString(lead.LostReason),
		lead.IsActive,
		lead.LastContactAt,
		lead.UpdatedAt,
	))
}

func (r *LeadRepository) CountByStage(ctx context.Context, organizationID string) (map[entity.LeadStage]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT stage, COUNT(*) FROM leads WHERE organization_id = $1 AND is_active = TRUE GROUP BY stage`,
		organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[entity.LeadStage]int)
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		counts[entity.LeadStage(stage)] = n
	}
	return counts, rows.Err()
}

func (r *LeadRepository) CountCreatedSince(ctx context.Context, organizationID string, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM leads WHERE organization_id = $1 AND created_at >= $2`,
		organizationID, since).Scan(&n)
	return n, err
}

func (r *LeadRepository) scan(row rowScanner) (*entity.Lead, error) {
	var (
		lead                                          entity.Lead
		email, phone, cpf, source, interest, notes    sql.NullString
		owner, referrer, converted, lostReason, stage sql.NullString
		lastContact                                   sql.NullTime
	)
	err := row.Scan(
		&lead.ID,
		&lead.OrganizationID,
		&lead.Name,
		&email,
		&phone,
		&cpf,
		&source,
		&interest,
		&stage,
		pq.Array(&lead.Tags),
		&notes,
		&owner,
		&referrer,
		&converted,
		&lostReason,
		&lead.IsActive,
		&lastContact,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	lead.Email = fromNull(email)
	lead.Phone = fromNull(phone)
	lead.Source = fromNull(source)
	lead.Interest = fromNull(interest)
	lead.Stage = entity.LeadStage(fromNull(stage))
	lead.Notes = fromNull(notes)
	lead.OwnerID = fromNull(owner)
	lead.ReferrerLeadID = fromNull(referrer)
	lead.ConvertedStudentID = fromNull(converted)
	lead.LostReason = fromNull(lostReason)
	lead.LastContactAt = fromNullTime(lastContact)
	if lead.Tags == nil {
		lead.Tags = []string{}
	}
	if lead.CPF, err = r.Vault.Decrypt(fromNull(cpf)); err != nil {
		return nil, fmt.Errorf("erro ao decifrar cpf do lead %s: %w", lead.ID, err)
	}
	return &lead, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
