package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/shared"
)

// Tenant is a billed customer whose charges must be isolated from all others
type Tenant struct {
	shared.BaseEntity
	Name string

	// ExternalAccountID is the account identifier the fulfillment provider
	// knows this tenant by. Used to resolve owned entities, never to
	// attribute charges directly.
	ExternalAccountID string
}

// OwnedEntityKind identifies the kind of entity a tenant owns upstream
type OwnedEntityKind string

const (
	OwnedEntityShipment         OwnedEntityKind = "SHIPMENT"
	OwnedEntityInventoryItem    OwnedEntityKind = "INVENTORY_ITEM"
	OwnedEntityWarehouseReceipt OwnedEntityKind = "WAREHOUSE_RECEIPT"
)

// OwnedEntity is the join target for attribution: an upstream entity with a
// known owning tenant. Rows are written only by the external sync subsystem
// and are strictly read-only here.
type OwnedEntity struct {
	ID       string
	Kind     OwnedEntityKind
	TenantID uuid.UUID

	// OrderReference links shipments to the sales order they fulfil.
	// Return charges resolve through it.
	OrderReference string
}

// OwnedEntityLookup is the read-only port to the external sync subsystem.
// Implementations return shared.ErrNotFound when the entity has not synced
// yet; callers decide whether that means pending or unattributable.
type OwnedEntityLookup interface {
	// ShipmentTenant resolves the owning tenant of a shipment
	ShipmentTenant(ctx context.Context, shipmentID string) (uuid.UUID, error)

	// InventoryItemTenant resolves the owning tenant of an inventory item
	InventoryItemTenant(ctx context.Context, itemID string) (uuid.UUID, error)

	// OrderTenant resolves the owning tenant of a sales order reference
	OrderTenant(ctx context.Context, orderReference string) (uuid.UUID, error)
}

// TenantRepository provides access to tenants
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByExternalAccountID(ctx context.Context, accountID string) (*Tenant, error)
	FindAll(ctx context.Context) ([]Tenant, error)
}
