package persistence

import (
	"context"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDiscrepancyReportRepository implements billing.DiscrepancyReportRepository using GORM
type GormDiscrepancyReportRepository struct {
	db *gorm.DB
}

// NewGormDiscrepancyReportRepository creates a new GormDiscrepancyReportRepository
func NewGormDiscrepancyReportRepository(db *gorm.DB) *GormDiscrepancyReportRepository {
	return &GormDiscrepancyReportRepository{db: db}
}

// Save persists a discrepancy report
func (r *GormDiscrepancyReportRepository) Save(ctx context.Context, report *billing.DiscrepancyReport) error {
	var model models.DiscrepancyReportModel
	model.FromDomain(report)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByPeriod returns reports whose period overlaps the given one
func (r *GormDiscrepancyReportRepository) FindByPeriod(ctx context.Context, period billing.BillingPeriod) ([]billing.DiscrepancyReport, error) {
	var modelList []models.DiscrepancyReportModel
	if err := r.db.WithContext(ctx).
		Where("period_start < ? AND period_end > ?", period.End, period.Start).
		Order("upstream_invoice_id ASC").
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	reports := make([]billing.DiscrepancyReport, 0, len(modelList))
	for i := range modelList {
		reports = append(reports, *modelList[i].ToDomain())
	}
	return reports, nil
}
