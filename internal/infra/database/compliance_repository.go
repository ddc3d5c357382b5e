package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"gorm.io/gorm"
)

// ComplianceRepository é o store de LGPD (consentimentos + trilha de auditoria), em gorm
// sobre o mesmo pool do *sql.DB.
type ComplianceRepository struct {
	DB *gorm.DB
}

func NewComplianceRepository(db *gorm.DB) *ComplianceRepository {
	return &ComplianceRepository{DB: db}
}

func (r *ComplianceRepository) SaveConsent(ctx context.Context, c *entity.Consent) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *ComplianceRepository) LatestConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string) (*entity.Consent, error) {
	var c entity.Consent
	err := r.DB.WithContext(ctx).
		Where("organization_id = ? AND subject_type = ? AND subject_id = ? AND purpose = ?", organizationID, subjectType, subjectID, purpose).
		Order("granted_at DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ComplianceRepository) ListConsents(ctx context.Context, organizationID, subjectType, subjectID string) ([]*entity.Consent, error) {
	var list []*entity.Consent
	err := r.DB.WithContext(ctx).
		Where("organization_id = ? AND subject_type = ? AND subject_id = ?", organizationID, subjectType, subjectID).
		Order("granted_at DESC").
		Find(&list).Error
	return list, err
}

// RevokeConsent marca todos os registros ainda vigentes daquela finalidade.
func (r *ComplianceRepository) RevokeConsent(ctx context.Context, organizationID, subjectType, subjectID, purpose string, at time.Time) error {
	res := r.DB.WithContext(ctx).
		Model(&entity.Consent{}).
		Where("organization_id = ? AND subject_type = ? AND subject_id = ? AND purpose = ? AND revoked_at IS NULL",
			organizationID, subjectType, subjectID, purpose).
		Update("revoked_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *ComplianceRepository) WriteAudit(ctx context.Context, a *entity.AuditLog) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return r.DB.WithContext(ctx).Create(a).Error
}

// ListAudit aceita entityType/entityID vazios para listar a organização inteira.
func (r *ComplianceRepository) ListAudit(ctx context.Context, organizationID, entityType, entityID string, limit int) ([]*entity.AuditLog, error) {
	q := r.DB.WithContext(ctx).Where("organization_id = ?", organizationID)
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		q = q.Where("entity_id = ?", entityID)
	}

	var list []*entity.AuditLog
	err := q.Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}
