package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository implements shared.AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Save appends an audit record
func (r *GormAuditRepository) Save(ctx context.Context, record *shared.AuditRecord) error {
	var model models.AuditRecordModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindBySubject returns all audit records touching a subject, newest first
func (r *GormAuditRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]shared.AuditRecord, error) {
	var modelList []models.AuditRecordModel
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("occurred DESC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	records := make([]shared.AuditRecord, 0, len(modelList))
	for i := range modelList {
		records = append(records, *modelList[i].ToDomain())
	}
	return records, nil
}
