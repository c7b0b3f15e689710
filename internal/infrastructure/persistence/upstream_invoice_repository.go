package persistence

import (
	"context"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUpstreamInvoiceRepository implements billing.UpstreamInvoiceRepository using GORM
type GormUpstreamInvoiceRepository struct {
	db *gorm.DB
}

// NewGormUpstreamInvoiceRepository creates a new GormUpstreamInvoiceRepository
func NewGormUpstreamInvoiceRepository(db *gorm.DB) *GormUpstreamInvoiceRepository {
	return &GormUpstreamInvoiceRepository{db: db}
}

// FindByPeriod returns the provider invoices overlapping the period,
// restricted to the period's upstream invoice ids when it carries any
func (r *GormUpstreamInvoiceRepository) FindByPeriod(ctx context.Context, period billing.BillingPeriod) ([]billing.UpstreamInvoice, error) {
	query := r.db.WithContext(ctx).
		Where("period_start < ? AND period_end > ?", period.End, period.Start)
	if len(period.UpstreamInvoiceIDs) > 0 {
		query = query.Where("external_id IN ?", period.UpstreamInvoiceIDs)
	}

	var modelList []models.UpstreamInvoiceModel
	if err := query.Order("external_id ASC").Find(&modelList).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.UpstreamInvoice, 0, len(modelList))
	for i := range modelList {
		invoices = append(invoices, modelList[i].ToDomain())
	}
	return invoices, nil
}

// Save upserts a provider invoice keyed on its external id
func (r *GormUpstreamInvoiceRepository) Save(ctx context.Context, invoice *billing.UpstreamInvoice) error {
	var model models.UpstreamInvoiceModel
	model.FromDomain(*invoice)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		UpdateAll: true,
	}).Create(&model).Error
}
