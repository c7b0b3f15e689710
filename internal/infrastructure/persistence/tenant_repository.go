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

// GormTenantRepository implements billing.TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalAccountID finds a tenant by the provider's account identifier
func (r *GormTenantRepository) FindByExternalAccountID(ctx context.Context, accountID string) (*billing.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("external_account_id = ?", accountID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns all tenants
func (r *GormTenantRepository) FindAll(ctx context.Context) ([]billing.Tenant, error) {
	var modelList []models.TenantModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&modelList).Error; err != nil {
		return nil, err
	}
	tenants := make([]billing.Tenant, 0, len(modelList))
	for i := range modelList {
		tenants = append(tenants, *modelList[i].ToDomain())
	}
	return tenants, nil
}
