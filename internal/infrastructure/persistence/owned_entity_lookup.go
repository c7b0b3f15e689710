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

// GormOwnedEntityLookup implements billing.OwnedEntityLookup against the
// owned_entities table maintained by the external sync subsystem. All
// queries are read-only.
type GormOwnedEntityLookup struct {
	db *gorm.DB
}

// NewGormOwnedEntityLookup creates a new GormOwnedEntityLookup
func NewGormOwnedEntityLookup(db *gorm.DB) *GormOwnedEntityLookup {
	return &GormOwnedEntityLookup{db: db}
}

// ShipmentTenant resolves the owning tenant of a shipment
func (l *GormOwnedEntityLookup) ShipmentTenant(ctx context.Context, shipmentID string) (uuid.UUID, error) {
	return l.tenantOf(ctx, billing.OwnedEntityShipment, shipmentID)
}

// InventoryItemTenant resolves the owning tenant of an inventory item
func (l *GormOwnedEntityLookup) InventoryItemTenant(ctx context.Context, itemID string) (uuid.UUID, error) {
	return l.tenantOf(ctx, billing.OwnedEntityInventoryItem, itemID)
}

// OrderTenant resolves the owning tenant of a sales order reference
func (l *GormOwnedEntityLookup) OrderTenant(ctx context.Context, orderReference string) (uuid.UUID, error) {
	var model models.OwnedEntityModel
	if err := l.db.WithContext(ctx).
		Where("kind = ? AND order_reference = ?", billing.OwnedEntityShipment, orderReference).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, err
	}
	return model.TenantID, nil
}

func (l *GormOwnedEntityLookup) tenantOf(ctx context.Context, kind billing.OwnedEntityKind, id string) (uuid.UUID, error) {
	var model models.OwnedEntityModel
	if err := l.db.WithContext(ctx).
		Where("kind = ? AND id = ?", kind, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, err
	}
	return model.TenantID, nil
}
