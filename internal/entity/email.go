package entity

import (
	"context"
	"time"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignScheduled CampaignStatus = "SCHEDULED"
	CampaignSending   CampaignStatus = "SENDING"
	CampaignSent      CampaignStatus = "SENT"
	CampaignCanceled  CampaignStatus = "CANCELED"
)

type EmailTemplate struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Subject        string    `json:"subject"`
	HTMLBody       string    `json:"html_body"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type EmailContact struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	LeadID         string     `json:"lead_id,omitempty"`
	StudentID      string     `json:"student_id,omitempty"`
	Tags           []string   `json:"tags"`
	Subscribed     bool       `json:"subscribed"`
	BrevoID        int64      `json:"brevo_id,omitempty"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
	SyncedAt       *time.Time `json:"synced_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type EmailCampaign struct {
	ID              string         `json:"id"`
	OrganizationID  string         `json:"organization_id"`
	Name            string         `json:"name"`
	TemplateID      string         `json:"template_id"`
	AudienceTags    []string       `json:"audience_tags"` // vazio = todos os inscritos
	Status          CampaignStatus `json:"status"`
	ScheduledAt     *time.Time     `json:"scheduled_at,omitempty"`
	TotalRecipients int            `json:"total_recipients"`
	SentCount       int            `json:"sent_count"`
	FailedCount     int            `json:"failed_count"`
	CreatedBy       string         `json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Done indica se todos os destinatários já têm resultado de envio.
func (c *EmailCampaign) Done() bool {
	return c.SentCount+c.FailedCount >= c.TotalRecipients
}

type EmailTemplateRepositoryInterface interface {
	Create(ctx context.Context, t *EmailTemplate) error
	FindByID(ctx context.Context, organizationID, id string) (*EmailTemplate, error)
	List(ctx context.Context, organizationID string) ([]*EmailTemplate, error)
	Update(ctx context.Context, t *EmailTemplate) error
	Delete(ctx context.Context, organizationID, id string) error
}

type EmailContactRepositoryInterface interface {
	Upsert(ctx context.Context, c *EmailContact) error
	FindByID(ctx context.Context, organizationID, id string) (*EmailContact, error)
	ListSubscribed(ctx context.Context, organizationID string, tags []string) ([]*EmailContact, error)
	ListPendingSync(ctx context.Context, limit int) ([]*EmailContact, error)
	MarkSynced(ctx context.Context, id string, brevoID int64) error
	Unsubscribe(ctx context.Context, organizationID, email string) error
}

type EmailCampaignRepositoryInterface interface {
	Create(ctx context.Context, c *EmailCampaign) error
	FindByID(ctx context.Context, organizationID, id string) (*EmailCampaign, error)
	List(ctx context.Context, organizationID string) ([]*EmailCampaign, error)
	Update(ctx context.Context, c *EmailCampaign) error
	ListDueScheduled(ctx context.Context, now time.Time) ([]*EmailCampaign, error)
	// IncrementResult soma em enviados ou falhos e devolve a campanha atualizada.
	IncrementResult(ctx context.Context, id string, sent bool) (*EmailCampaign, error)
}
