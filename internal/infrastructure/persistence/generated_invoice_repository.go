package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormGeneratedInvoiceRepository implements billing.GeneratedInvoiceRepository using GORM
type GormGeneratedInvoiceRepository struct {
	db *gorm.DB
}

// NewGormGeneratedInvoiceRepository creates a new GormGeneratedInvoiceRepository
func NewGormGeneratedInvoiceRepository(db *gorm.DB) *GormGeneratedInvoiceRepository {
	return &GormGeneratedInvoiceRepository{db: db}
}

// FindByID finds a generated invoice by its ID
func (r *GormGeneratedInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.GeneratedInvoice, error) {
	var model models.GeneratedInvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenantPeriod finds the invoice covering a tenant-period, if any
func (r *GormGeneratedInvoiceRepository) FindByTenantPeriod(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod) (*billing.GeneratedInvoice, error) {
	var model models.GeneratedInvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period_start = ? AND period_end = ?", tenantID, period.Start, period.End).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a generated invoice
func (r *GormGeneratedInvoiceRepository) Save(ctx context.Context, invoice *billing.GeneratedInvoice) error {
	model := models.GeneratedInvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a draft invoice during an administrative reset
func (r *GormGeneratedInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.GeneratedInvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
