package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPendingAttributionRepository implements billing.PendingAttributionRepository using GORM
type GormPendingAttributionRepository struct {
	db *gorm.DB
}

// NewGormPendingAttributionRepository creates a new GormPendingAttributionRepository
func NewGormPendingAttributionRepository(db *gorm.DB) *GormPendingAttributionRepository {
	return &GormPendingAttributionRepository{db: db}
}

// Save creates or updates a pending attribution entry
func (r *GormPendingAttributionRepository) Save(ctx context.Context, pending *billing.PendingAttribution) error {
	var model models.PendingAttributionModel
	model.FromDomain(pending)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByTransactionID finds the queue entry for a transaction, if any
func (r *GormPendingAttributionRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*billing.PendingAttribution, error) {
	var model models.PendingAttributionModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDue returns entries whose retry is due at the given time
func (r *GormPendingAttributionRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*billing.PendingAttribution, error) {
	var modelList []models.PendingAttributionModel
	if err := r.db.WithContext(ctx).
		Where("exhausted = ? AND next_retry_at <= ?", false, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	pending := make([]*billing.PendingAttribution, 0, len(modelList))
	for i := range modelList {
		pending = append(pending, modelList[i].ToDomain())
	}
	return pending, nil
}

// Delete removes a resolved entry
func (r *GormPendingAttributionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PendingAttributionModel{}, "id = ?", id).Error
}
