package persistence

import (
	"context"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRunReportRepository implements billing.RunReportRepository using GORM
type GormRunReportRepository struct {
	db *gorm.DB
}

// NewGormRunReportRepository creates a new GormRunReportRepository
func NewGormRunReportRepository(db *gorm.DB) *GormRunReportRepository {
	return &GormRunReportRepository{db: db}
}

// Save persists a run report
func (r *GormRunReportRepository) Save(ctx context.Context, report *billing.RunReport) error {
	var model models.RunReportModel
	model.FromDomain(report)
	return r.db.WithContext(ctx).Save(&model).Error
}
