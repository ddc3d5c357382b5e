package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Value Object: Address
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

type Student struct {
	ID              string     `json:"id"`
	OrganizationID  string     `json:"organization_id"`
	LeadID          string     `json:"lead_id,omitempty"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	CPF             string     `json:"cpf"`
	BirthDate       string     `json:"birth_date,omitempty"` // YYYY-MM-DD
	Address         Address    `json:"address"`
	AsaasCustomerID string     `json:"asaas_customer_id,omitempty"`
	IsActive        bool       `json:"is_active"`
	AnonymizedAt    *time.Time `json:"anonymized_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Factory
func NewStudent(organizationID, name, email, phone, cpf string) (*Student, error) {
	now := time.Now()
	s := &Student{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		Name:           strings.TrimSpace(name),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		Phone:          strings.TrimSpace(phone),
		CPF:            NormalizeCPF(cpf),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Student) Validate() error {
	if s.OrganizationID == "" {
		return errors.New("organization_id is required")
	}
	if s.Name == "" {
		return errors.New("name is required")
	}
	if !ValidateCPF(s.CPF) {
		return ErrInvalidCPF
	}
	return nil
}

type StudentFilter struct {
	Search     string
	OnlyActive bool
	Limit      int
	Offset     int
}

type StudentRepositoryInterface interface {
	Create(ctx context.Context, s *Student) error
	FindByID(ctx context.Context, organizationID, id string) (*Student, error)
	FindByCPF(ctx context.Context, organizationID, cpf string) (*Student, error)
	FindByAsaasCustomerID(ctx context.Context, asaasCustomerID string) (*Student, error)
	List(ctx context.Context, organizationID string, filter StudentFilter) ([]*Student, error)
	Update(ctx context.Context, s *Student) error
	CountActive(ctx context.Context, organizationID string) (int, error)
}
