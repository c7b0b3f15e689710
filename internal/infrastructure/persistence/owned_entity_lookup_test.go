package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
)

// OwnedEntityModelSQLite is a SQLite-compatible version of OwnedEntityModel
// for testing
type OwnedEntityModelSQLite struct {
	ID             string `gorm:"primaryKey"`
	Kind           string `gorm:"primaryKey"`
	TenantID       string `gorm:"not null;index"`
	OrderReference string `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (OwnedEntityModelSQLite) TableName() string {
	return "owned_entities"
}

func setupOwnedEntityTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&OwnedEntityModelSQLite{}))
	return db
}

func seedOwnedEntity(t *testing.T, db *gorm.DB, id string, kind billing.OwnedEntityKind, tenantID uuid.UUID, orderRef string) {
	t.Helper()
	require.NoError(t, db.Create(&OwnedEntityModelSQLite{
		ID:             id,
		Kind:           string(kind),
		TenantID:       tenantID.String(),
		OrderReference: orderRef,
	}).Error)
}

func TestGormOwnedEntityLookup(t *testing.T) {
	db := setupOwnedEntityTestDB(t)
	lookup := NewGormOwnedEntityLookup(db)
	ctx := context.Background()

	acmeID := uuid.New()
	globexID := uuid.New()

	seedOwnedEntity(t, db, "ship_001", billing.OwnedEntityShipment, acmeID, "1043-5567812")
	seedOwnedEntity(t, db, "item_001", billing.OwnedEntityInventoryItem, globexID, "")

	t.Run("resolves a shipment to its tenant", func(t *testing.T) {
		tenantID, err := lookup.ShipmentTenant(ctx, "ship_001")
		require.NoError(t, err)
		assert.Equal(t, acmeID, tenantID)
	})

	t.Run("resolves an inventory item to its tenant", func(t *testing.T) {
		tenantID, err := lookup.InventoryItemTenant(ctx, "item_001")
		require.NoError(t, err)
		assert.Equal(t, globexID, tenantID)
	})

	t.Run("resolves an order reference through the fulfilling shipment", func(t *testing.T) {
		tenantID, err := lookup.OrderTenant(ctx, "1043-5567812")
		require.NoError(t, err)
		assert.Equal(t, acmeID, tenantID)
	})

	t.Run("an unsynced shipment is not found", func(t *testing.T) {
		_, err := lookup.ShipmentTenant(ctx, "ship_unsynced")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("kinds do not leak into each other", func(t *testing.T) {
		_, err := lookup.InventoryItemTenant(ctx, "ship_001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("an order reference on a non-shipment row does not resolve", func(t *testing.T) {
		seedOwnedEntity(t, db, "item_002", billing.OwnedEntityInventoryItem, globexID, "2000-7700001")

		_, err := lookup.OrderTenant(ctx, "2000-7700001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
