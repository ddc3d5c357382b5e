package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/crypto"
)

// StudentRepository guarda o CPF cifrado e um hash (cpf_hash) para busca por igualdade.
type StudentRepository struct {
	DB    *sql.DB
	Vault *crypto.Vault
}

func NewStudentRepository(db *sql.DB, vault *crypto.Vault) *StudentRepository {
	return &StudentRepository{DB: db, Vault: vault}
}

const studentColumns = `id, organization_id, lead_id, name, email, phone, cpf, birth_date,
	street, number, complement, district, city, state, zip_code,
	asaas_customer_id, is_active, anonymized_at, created_at, updated_at`

func (r *StudentRepository) Create(ctx context.Context, s *entity.Student) error {
	cpf, err := r.Vault.Encrypt(s.CPF)
	if err != nil {
		return fmt.Errorf("erro ao cifrar cpf: %w", err)
	}

	query := `
		INSERT INTO students (id, organization_id, lead_id, name, email, phone, cpf, cpf_hash, birth_date,
			street, number, complement, district, city, state, zip_code,
			asaas_customer_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = r.DB.ExecContext(ctx, query,
		s.ID,
		s.OrganizationID,
		nullString(s.LeadID),
		s.Name,
		nullString(s.Email),
		nullString(s.Phone),
		cpf,
		r.Vault.Hash(s.CPF),
		nullString(s.BirthDate),
		nullString(s.Address.Street),
		nullString(s.Address.Number),
		nullString(s.Address.Complement),
		nullString(s.Address.District),
		nullString(s.Address.City),
		nullString(s.Address.State),
		nullString(s.Address.ZipCode),
		nullString(s.AsaasCustomerID),
		s.IsActive,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return mapError(err)
}

func (r *StudentRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE organization_id = $1 AND id = $2`
	return r.scan(r.DB.QueryRowContext(ctx, query, organizationID, id))
}

// FindByCPF prioriza o aluno ativo quando existe histórico com o mesmo CPF.
func (r *StudentRepository) FindByCPF(ctx context.Context, organizationID, cpf string) (*entity.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students
		WHERE organization_id = $1 AND cpf_hash = $2
		ORDER BY is_active DESC, created_at DESC LIMIT 1`
	return r.scan(r.DB.QueryRowContext(ctx, query, organizationID, r.Vault.Hash(entity.NormalizeCPF(cpf))))
}

// FindByAsaasCustomerID não filtra por organização: o id do Asaas é global e é assim que o
// webhook descobre o tenant.
func (r *StudentRepository) FindByAsaasCustomerID(ctx context.Context, asaasCustomerID string) (*entity.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE asaas_customer_id = $1 LIMIT 1`
	return r.scan(r.DB.QueryRowContext(ctx, query, asaasCustomerID))
}

func (r *StudentRepository) List(ctx context.Context, organizationID string, filter entity.StudentFilter) ([]*entity.Student, error) {
	var sb strings.Builder
	args := []any{organizationID}
	sb.WriteString(`SELECT ` + studentColumns + ` FROM students WHERE organization_id = $1`)

	if filter.OnlyActive {
		sb.WriteString(" AND is_active = TRUE")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		fmt.Fprintf(&sb, " AND (name ILIKE $%[1]d OR email ILIKE $%[1]d OR phone ILIKE $%[1]d)", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	fmt.Fprintf(&sb, " ORDER BY name ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*entity.Student
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

func (r *StudentRepository) Update(ctx context.Context, s *entity.Student) error {
	cpf, err := r.Vault.Encrypt(s.CPF)
	if err != nil {
		return fmt.Errorf("erro ao cifrar cpf: %w", err)
	}

	query := `
		UPDATE students SET
			lead_id = $3, name = $4, email = $5, phone = $6, cpf = $7, cpf_hash = $8, birth_date = $9,
			street = $10, number = $11, complement = $12, district = $13, city = $14, state = $15, zip_code = $16,
			asaas_customer_id = $17, is_active = $18, anonymized_at = $19, updated_at = $20
		WHERE organization_id = $1 AND id = $2
	`
	return expectOne(r.DB.ExecContext(ctx, query,
		s.OrganizationID,
		s.ID,
		nullString(s.LeadID),
		s.Name,
		nullString(s.Email),
		nullString(s.Phone),
		nullString(cpf),
		nullString(r.Vault.Hash(s.CPF)),
		nullString(s.BirthDate),
		nullString(s.Address.Street),
		nullString(s.Address.Number),
		nullString(s.Address.Complement),
		nullString(s.Address.District),
		nullString(s.Address.City),
		nullString(s.Address.State),
		nullString(s.Address.ZipCode),
		nullString(s.AsaasCustomerID),
		s.IsActive,
		s.AnonymizedAt,
		s.UpdatedAt,
	))
}

func (r *StudentRepository) CountActive(ctx context.Context, organizationID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM students WHERE organization_id = $1 AND is_active = TRUE`,
		organizationID).Scan(&n)
	return n, err
}

func (r *StudentRepository) scan(row rowScanner) (*entity.Student, error) {
	var (
		s                                          entity.Student
		lead, email, phone, cpf, birth, asaas      sql.NullString
		street, number, complement, district, city sql.NullString
		state, zip                                 sql.NullString
		anonymizedAt                               sql.NullTime
	)
	err := row.Scan(
		&s.ID,
		&s.OrganizationID,
		&lead,
		&s.Name,
		&email,
		&phone,
		&cpf,
		&birth,
		&street,
		&number,
		&complement,
		&district,
		&city,
		&state,
		&zip,
		&asaas,
		&s.IsActive,
		&anonymizedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	s.LeadID = fromNull(lead)
	s.Email = fromNull(email)
	s.Phone = fromNull(phone)
	s.BirthDate = fromNull(birth)
	s.AsaasCustomerID = fromNull(asaas)
	s.AnonymizedAt = fromNullTime(anonymizedAt)
	s.Address = entity.Address{
		Street:     fromNull(street),
		Number:     fromNull(number),
		Complement: fromNull(complement),
		District:   fromNull(district),
		City:       fromNull(city),
		State:      fromNull(state),
		ZipCode:    fromNull(zip),
	}
	if s.CPF, err = r.Vault.Decrypt(fromNull(cpf)); err != nil {
		return nil, fmt.Errorf("erro ao decifrar cpf do aluno %s: %w", s.ID, err)
	}
	return &s, nil
}
