package persistence

import (
	"context"
	"time"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPricingRuleRepository implements billing.PricingRuleRepository using GORM
type GormPricingRuleRepository struct {
	db *gorm.DB
}

// NewGormPricingRuleRepository creates a new GormPricingRuleRepository
func NewGormPricingRuleRepository(db *gorm.DB) *GormPricingRuleRepository {
	return &GormPricingRuleRepository{db: db}
}

// Snapshot freezes the current rule set. Rule edits made while a run is in
// flight only take effect on the next run.
func (r *GormPricingRuleRepository) Snapshot(ctx context.Context) (*billing.RuleSetSnapshot, error) {
	var modelList []models.PricingRuleModel
	if err := r.db.WithContext(ctx).Find(&modelList).Error; err != nil {
		return nil, err
	}
	rules := make([]billing.PricingRule, 0, len(modelList))
	for i := range modelList {
		rules = append(rules, *modelList[i].ToDomain())
	}
	return billing.NewRuleSetSnapshot(rules, time.Now()), nil
}

// Save creates or updates a pricing rule
func (r *GormPricingRuleRepository) Save(ctx context.Context, rule *billing.PricingRule) error {
	model := models.PricingRuleModelFromDomain(rule)
	return r.db.WithContext(ctx).Save(model).Error
}
