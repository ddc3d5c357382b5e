package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type LeadStage string

const (
	LeadStageNew       LeadStage = "NEW"
	LeadStageContacted LeadStage = "CONTACTED"
	LeadStageQualified LeadStage = "QUALIFIED"
	LeadStageProposal  LeadStage = "PROPOSAL"
	LeadStageWon       LeadStage = "WON"
	LeadStageLost      LeadStage = "LOST"
)

func (s LeadStage) Valid() bool {
	switch s {
	case LeadStageNew, LeadStageContacted, LeadStageQualified, LeadStageProposal, LeadStageWon, LeadStageLost:
		return true
	}
	return false
}

// Ordem do funil usada pelo kanban e pelo dashboard.
var LeadStages = []LeadStage{
	LeadStageNew, LeadStageContacted, LeadStageQualified, LeadStageProposal, LeadStageWon, LeadStageLost,
}

type Lead struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	Name               string     `json:"name"`
	Email              string     `json:"email,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	CPF                string     `json:"cpf,omitempty"`
	Source             string     `json:"source,omitempty"` // instagram, indicacao, site...
	Interest           string     `json:"interest,omitempty"`
	Stage              LeadStage  `json:"stage"`
	Tags               []string   `json:"tags"`
	Notes              string     `json:"notes,omitempty"`
	OwnerID            string     `json:"owner_id,omitempty"`
	ReferrerLeadID     string     `json:"referrer_lead_id,omitempty"`
	ConvertedStudentID string     `json:"converted_student_id,omitempty"`
	LostReason         string     `json:"lost_reason,omitempty"`
	IsActive           bool       `json:"is_active"`
	LastContactAt      *time.Time `json:"last_contact_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func NewLead(organizationID, name, email, phone string) (*Lead, error) {
	now := time.Now()
	lead := &Lead{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		Name:           strings.TrimSpace(name),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		Phone:          strings.TrimSpace(phone),
		Stage:          LeadStageNew,
		Tags:           []string{},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := lead.Validate(); err != nil {
		return nil, err
	}
	return lead, nil
}

func (l *Lead) Validate() error {
	if l.OrganizationID == "" {
		return errors.New("organization_id is required")
	}
	if l.Email == "" && l.Phone == "" {
		return errors.New("email or phone is required")
	}
	if l.ReferrerLeadID != "" && l.ReferrerLeadID == l.ID {
		return errors.New("lead cannot refer itself")
	}
	return nil
}

type LeadFilter struct {
	Stage   LeadStage
	OwnerID string
	Search  string
	Limit   int
	Offset  int
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	Upsert(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, organizationID, id string) (*Lead, error)
	List(ctx context.Context, organizationID string, filter LeadFilter) ([]*Lead, error)
	Update(ctx context.Context, lead *Lead) error
	CountByStage(ctx context.Context, organizationID string) (map[LeadStage]int, error)
	CountCreatedSince(ctx context.Context, organizationID string, since time.Time) (int, error)
}
