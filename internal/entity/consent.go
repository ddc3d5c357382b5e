package entity

import (
	"context"
	"time"
)

const (
	SubjectLead    = "lead"
	SubjectStudent = "student"

	PurposeMarketing      = "marketing"
	PurposeDataProcessing = "data_processing"
	PurposeWhatsApp       = "whatsapp"
)

// Consent registra o consentimento LGPD de um titular para uma finalidade.
type Consent struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string     `json:"organization_id" gorm:"index"`
	SubjectType    string     `json:"subject_type"`
	SubjectID      string     `json:"subject_id" gorm:"index"`
	Purpose        string     `json:"purpose"`
	Granted        bool       `json:"granted"`
	Version        string     `json:"version"`
	IP             string     `json:"ip"`
	GrantedAt      time.Time  `json:"granted_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

func (Consent) TableName() string {
	return "lgpd_consents"
}

type AuditLog struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID string    `json:"organization_id" gorm:"index"`
	ActorID        string    `json:"actor_id"`
	Action         string    `json:"action"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id" gorm:"index"`
	Metadata       string    `json:"metadata" gorm:"type:jsonb"`
	CreatedAt      time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "lgpd_audit_logs"
}

type ComplianceRepositoryInterface interface {
	SaveConsent(ctx context.Context, c *Consent) error
	LatestConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string) (*Consent, error)
	ListConsents(ctx context.Context, organizationID, subjectType, subjectID string) ([]*Consent, error)
	RevokeConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string, at time.Time) error
	WriteAudit(ctx context.Context, a *AuditLog) error
	ListAudit(ctx context.Context, organizationID, entityType, entityID string, limit int) ([]*AuditLog, error)
}
