package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/xavierca1/ligue-crm/internal/entity"
)

// --- Templates ---

type EmailTemplateRepository struct {
	DB *sql.DB
}

func NewEmailTemplateRepository(db *sql.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{DB: db}
}

func (r *EmailTemplateRepository) Create(ctx context.Context, t *entity.EmailTemplate) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO email_templates (id, organization_id, name, subject, html_body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.OrganizationID, t.Name, t.Subject, t.HTMLBody, t.CreatedAt, t.UpdatedAt)
	return mapError(err)
}

func (r *EmailTemplateRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.EmailTemplate, error) {
	var t entity.EmailTemplate
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, organization_id, name, subject, html_body, created_at, updated_at
		FROM email_templates WHERE organization_id = $1 AND id = $2
	`, organizationID, id).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Subject, &t.HTMLBody, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *EmailTemplateRepository) List(ctx context.Context, organizationID string) ([]*entity.EmailTemplate, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, organization_id, name, subject, html_body, created_at, updated_at
		FROM email_templates WHERE organization_id = $1 ORDER BY name ASC
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*entity.EmailTemplate
	for rows.Next() {
		var t entity.EmailTemplate
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Subject, &t.HTMLBody, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func (r *EmailTemplateRepository) Update(ctx context.Context, t *entity.EmailTemplate) error {
	return expectOne(r.DB.ExecContext(ctx, `
		UPDATE email_templates SET name = $3, subject = $4, html_body = $5, updated_at = $6
		WHERE organization_id = $1 AND id = $2
	`, t.OrganizationID, t.ID, t.Name, t.Subject, t.HTMLBody, t.UpdatedAt))
}

func (r *EmailTemplateRepository) Delete(ctx context.Context, organizationID, id string) error {
	return expectOne(r.DB.ExecContext(ctx,
		`DELETE FROM email_templates WHERE organization_id = $1 AND id = $2`, organizationID, id))
}

// --- Contatos ---

type EmailContactRepository struct {
	DB *sql.DB
}

func NewEmailContactRepository(db *sql.DB) *EmailContactRepository {
	return &EmailContactRepository{DB: db}
}

const contactColumns = `id, organization_id, email, name, lead_id, student_id, tags, subscribed, brevo_id,
	unsubscribed_at, synced_at, created_at, updated_at`

// Upsert junta as tags e nunca reinscreve quem pediu descadastro. Qualquer alteração zera
// synced_at para o job do Brevo pegar o contato de novo.
func (r *EmailContactRepository) Upsert(ctx context.Context, c *entity.EmailContact) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO email_contacts (id, organization_id, email, name, lead_id, student_id, tags, subscribed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id, email) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), email_contacts.name),
			lead_id = COALESCE(EXCLUDED.lead_id, email_contacts.lead_id),
			student_id = COALESCE(EXCLUDED.student_id, email_contacts.student_id),
			tags = ARRAY(SELECT DISTINCT unnest(email_contacts.tags || EXCLUDED.tags)),
			synced_at = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING id, tags, subscribed, created_at
	`
	return mapError(r.DB.QueryRowContext(ctx, query,
		c.ID,
		c.OrganizationID,
		c.Email,
		c.Name,
		nullString(c.LeadID),
		nullString(c.StudentID),
		pq.Array(nonNil(c.Tags)),
		c.Subscribed,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID, pq.Array(&c.Tags), &c.Subscribed, &c.CreatedAt))
}

func (r *EmailContactRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.EmailContact, error) {
	return scanContact(r.DB.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM email_contacts WHERE organization_id = $1 AND id = $2`, organizationID, id))
}

// ListSubscribed filtra por interseção de tags; sem tags devolve todos os inscritos.
func (r *EmailContactRepository) ListSubscribed(ctx context.Context, organizationID string, tags []string) ([]*entity.EmailContact, error) {
	query := `SELECT ` + contactColumns + ` FROM email_contacts
		WHERE organization_id = $1 AND subscribed = TRUE AND (cardinality($2::text[]) = 0 OR tags && $2::text[])
		ORDER BY email ASC`
	return r.list(ctx, query, organizationID, pq.Array(nonNil(tags)))
}

func (r *EmailContactRepository) ListPendingSync(ctx context.Context, limit int) ([]*entity.EmailContact, error) {
	query := `SELECT ` + contactColumns + ` FROM email_contacts
		WHERE synced_at IS NULL OR updated_at > synced_at
		ORDER BY updated_at ASC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *EmailContactRepository) MarkSynced(ctx context.Context, id string, brevoID int64) error {
	return expectOne(r.DB.ExecContext(ctx,
		`UPDATE email_contacts SET brevo_id = NULLIF($2, 0), synced_at = NOW() WHERE id = $1`, id, brevoID))
}

func (r *EmailContactRepository) Unsubscribe(ctx context.Context, organizationID, email string) error {
	return expectOne(r.DB.ExecContext(ctx, `
		UPDATE email_contacts SET subscribed = FALSE, unsubscribed_at = NOW(), updated_at = NOW()
		WHERE organization_id = $1 AND email = $2
	`, organizationID, email))
}

func (r *EmailContactRepository) list(ctx context.Context, query string, args ...any) ([]*entity.EmailContact, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*entity.EmailContact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func scanContact(row rowScanner) (*entity.EmailContact, error) {
	var (
		c                      entity.EmailContact
		name, lead, student    sql.NullString
		brevoID                sql.NullInt64
		unsubscribed, syncedAt sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Email,
		&name,
		&lead,
		&student,
		pq.Array(&c.Tags),
		&c.Subscribed,
		&brevoID,
		&unsubscribed,
		&syncedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	c.Name = fromNull(name)
	c.LeadID = fromNull(lead)
	c.StudentID = fromNull(student)
	c.BrevoID = brevoID.Int64
	c.UnsubscribedAt = fromNullTime(unsubscribed)
	c.SyncedAt = fromNullTime(syncedAt)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, nil
}

// --- Campanhas ---

type EmailCampaignRepository struct {
	DB *sql.DB
}

func NewEmailCampaignRepository(db *sql.DB) *EmailCampaignRepository {
	return &EmailCampaignRepository{DB: db}
}

const campaignColumns = `id, organization_id, name, template_id, audience_tags, status, scheduled_at,
	total_recipients, sent_count, failed_count, created_by, created_at, updated_at`

func (r *EmailCampaignRepository) Create(ctx context.Context, c *entity.EmailCampaign) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO email_campaigns (id, organization_id, name, template_id, audience_tags, status, scheduled_at,
			total_recipients, sent_count, failed_count, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		c.ID,
		c.OrganizationID,
		c.Name,
		c.TemplateID,
		pq.Array(nonNil(c.AudienceTags)),
		string(c.Status),
		c.ScheduledAt,
		c.TotalRecipients,
		c.SentCount,
		c.FailedCount,
		c.CreatedBy,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return mapError(err)
}

func (r *EmailCampaignRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.EmailCampaign, error) {
	return scanCampaign(r.DB.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM email_campaigns WHERE organization_id = $1 AND id = $2`, organizationID, id))
}

func (r *EmailCampaignRepository) List(ctx context.Context, organizationID string) ([]*entity.EmailCampaign, error) {
	return r.list(ctx, `SELECT `+campaignColumns+` FROM email_campaigns
		WHERE organization_id = $1 ORDER BY created_at DESC`, organizationID)
}

func (r *EmailCampaignRepository) Update(ctx context.Context, c *entity.EmailCampaign) error {
	return expectOne(r.DB.ExecContext(ctx, `
		UPDATE email_campaigns SET
			name = $3, template_id = $4, audience_tags = $5, status = $6, scheduled_at = $7,
			total_recipients = $8, sent_count = $9, failed_count = $10, updated_at = $11
		WHERE organization_id = $1 AND id = $2
	`,
		c.OrganizationID,
		c.ID,
		c.Name,
		c.TemplateID,
		pq.Array(nonNil(c.AudienceTags)),
		string(c.Status),
		c.ScheduledAt,
		c.TotalRecipients,
		c.SentCount,
		c.FailedCount,
		c.UpdatedAt,
	))
}

func (r *EmailCampaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*entity.EmailCampaign, error) {
	return r.list(ctx, `SELECT `+campaignColumns+` FROM email_campaigns
		WHERE status = $1 AND scheduled_at <= $2 ORDER BY scheduled_at ASC`, string(entity.CampaignScheduled), now)
}

// IncrementResult é atômico no banco: vários consumidores da fila atualizam a mesma campanha.
func (r *EmailCampaignRepository) IncrementResult(ctx context.Context, id string, sent bool) (*entity.EmailCampaign, error) {
	column := "failed_count"
	if sent {
		column = "sent_count"
	}
	query := fmt.Sprintf(`UPDATE email_campaigns SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id = $1 RETURNING `+campaignColumns, column)
	return scanCampaign(r.DB.QueryRowContext(ctx, query, id))
}

func (r *EmailCampaignRepository) list(ctx context.Context, query string, args ...any) ([]*entity.EmailCampaign, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*entity.EmailCampaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func scanCampaign(row rowScanner) (*entity.EmailCampaign, error) {
	var (
		c           entity.EmailCampaign
		status      string
		scheduledAt sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Name,
		&c.TemplateID,
		pq.Array(&c.AudienceTags),
		&status,
		&scheduledAt,
		&c.TotalRecipients,
		&c.SentCount,
		&c.FailedCount,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	c.Status = entity.CampaignStatus(status)
	c.ScheduledAt = fromNullTime(scheduledAt)
	if c.AudienceTags == nil {
		c.AudienceTags = []string{}
	}
	return &c, nil
}
