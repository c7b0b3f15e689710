package billing

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/shared"
)

// AttributionStatus is the outcome class of one attribution attempt
type AttributionStatus string

const (
	// AttributionStatusResolved means an owning tenant was found
	AttributionStatusResolved AttributionStatus = "RESOLVED"

	// AttributionStatusPending means the dependency (shipment, order) may not
	// have synced yet; the transaction is queued for bounded retry.
	AttributionStatusPending AttributionStatus = "PENDING"

	// AttributionStatusUnattributable means every applicable strategy was
	// exhausted. The transaction is surfaced for review and never billed.
	AttributionStatusUnattributable AttributionStatus = "UNATTRIBUTABLE"
)

// AttributionOutcome is the result of running the strategy chain on one
// transaction
type AttributionOutcome struct {
	Status   AttributionStatus
	TenantID uuid.UUID
	Strategy string
}

// AttributionStrategy is a named predicate + resolver pair. Strategies are
// declarative and independently testable; the resolver walks an ordered chain
// of them per reference type instead of embedded branching.
type AttributionStrategy interface {
	// Name identifies the strategy in logs and outcomes
	Name() string

	// Applies reports whether this strategy can attempt the transaction
	Applies(tx *Transaction) bool

	// Resolve attempts to find the owning tenant.
	// Returning (uuid.Nil, retryable=true, err) signals a pending dependency.
	Resolve(ctx context.Context, tx *Transaction) (tenantID uuid.UUID, retryable bool, err error)
}

// ShipmentStrategy resolves shipment-referenced charges through the owned
// shipment lookup. The shipment may not have synced yet, so misses are
// retryable.
type ShipmentStrategy struct {
	lookup OwnedEntityLookup
}

// NewShipmentStrategy creates a ShipmentStrategy
func NewShipmentStrategy(lookup OwnedEntityLookup) *ShipmentStrategy {
	return &ShipmentStrategy{lookup: lookup}
}

// Name identifies the strategy
func (s *ShipmentStrategy) Name() string { return "shipment_lookup" }

// Applies reports whether the transaction is shipment-referenced
func (s *ShipmentStrategy) Applies(tx *Transaction) bool {
	return tx.ReferenceType == ReferenceTypeShipment && tx.ReferenceID != ""
}

// Resolve looks up the owning tenant of the referenced shipment
func (s *ShipmentStrategy) Resolve(ctx context.Context, tx *Transaction) (uuid.UUID, bool, error) {
	tenantID, err := s.lookup.ShipmentTenant(ctx, tx.ReferenceID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, true, err
		}
		return uuid.Nil, false, err
	}
	return tenantID, false, nil
}

// StorageLocationKey is the decomposed composite reference of a storage
// charge: facility, inventory item, slot.
type StorageLocationKey struct {
	FacilityID      string
	InventoryItemID string
	Slot            string
}

// ParseStorageLocationKey decomposes a composite storage reference id of the
// form "<facility>-<inventory item>-<slot>".
func ParseStorageLocationKey(referenceID string) (StorageLocationKey, error) {
	parts := strings.SplitN(referenceID, "-", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return StorageLocationKey{}, shared.NewDomainError("INVALID_STORAGE_REFERENCE", "Storage reference is not a facility-item-slot composite")
	}
	return StorageLocationKey{
		FacilityID:      parts[0],
		InventoryItemID: parts[1],
		Slot:            parts[2],
	}, nil
}

// StorageLocationStrategy resolves storage-referenced charges strictly
// through the inventory-item component of the composite key. Facilities and
// upstream invoices group charges across tenants, so neither may ever be used
// as the attribution key.
type StorageLocationStrategy struct {
	lookup OwnedEntityLookup
}

// NewStorageLocationStrategy creates a StorageLocationStrategy
func NewStorageLocationStrategy(lookup OwnedEntityLookup) *StorageLocationStrategy {
	return &StorageLocationStrategy{lookup: lookup}
}

// Name identifies the strategy
func (s *StorageLocationStrategy) Name() string { return "storage_inventory_item" }

// Applies reports whether the transaction is storage-referenced
func (s *StorageLocationStrategy) Applies(tx *Transaction) bool {
	return tx.ReferenceType == ReferenceTypeStorageLocation && tx.ReferenceID != ""
}

// Resolve decomposes the composite key and resolves via the inventory item
func (s *StorageLocationStrategy) Resolve(ctx context.Context, tx *Transaction) (uuid.UUID, bool, error) {
	key, err := ParseStorageLocationKey(tx.ReferenceID)
	if err != nil {
		return uuid.Nil, false, err
	}
	tenantID, err := s.lookup.InventoryItemTenant(ctx, key.InventoryItemID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, true, err
		}
		return uuid.Nil, false, err
	}
	return tenantID, false, nil
}

// ReceivingChannelStrategy resolves warehouse receiving charges via the
// per-tenant channel that produced the record. When ingestion is not
// tenant-scoped the charge is unattributable.
type ReceivingChannelStrategy struct{}

// NewReceivingChannelStrategy creates a ReceivingChannelStrategy
func NewReceivingChannelStrategy() *ReceivingChannelStrategy {
	return &ReceivingChannelStrategy{}
}

// Name identifies the strategy
func (s *ReceivingChannelStrategy) Name() string { return "receiving_channel" }

// Applies reports whether the transaction is receiving-referenced and arrived
// on a tenant-scoped channel
func (s *ReceivingChannelStrategy) Applies(tx *Transaction) bool {
	return tx.ReferenceType == ReferenceTypeWarehouseReceiving && tx.IngestChannelTenantID != nil
}

// Resolve returns the channel tenant
func (s *ReceivingChannelStrategy) Resolve(ctx context.Context, tx *Transaction) (uuid.UUID, bool, error) {
	if tx.IngestChannelTenantID == nil {
		return uuid.Nil, false, shared.ErrNotFound
	}
	return *tx.IngestChannelTenantID, false, nil
}

// orderReferencePattern matches the order reference the provider embeds in
// return charge memos, e.g. "Return for order #1043-5567812".
var orderReferencePattern = regexp.MustCompile(`#?(\d{3,4}-\d{6,9})`)

// ExtractOrderReference pulls the embedded order reference out of free text.
// Returns empty string when no reference is present.
func ExtractOrderReference(text string) string {
	match := orderReferencePattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1]
}

// ReturnOrderStrategy resolves return charges by parsing the embedded order
// reference and resolving the owning order. Orders that have not synced yet
// are retryable.
type ReturnOrderStrategy struct {
	lookup OwnedEntityLookup
}

// NewReturnOrderStrategy creates a ReturnOrderStrategy
func NewReturnOrderStrategy(lookup OwnedEntityLookup) *ReturnOrderStrategy {
	return &ReturnOrderStrategy{lookup: lookup}
}

// Name identifies the strategy
func (s *ReturnOrderStrategy) Name() string { return "return_order_reference" }

// Applies reports whether the transaction is return-referenced with an order
// reference somewhere in its reference id or memo
func (s *ReturnOrderStrategy) Applies(tx *Transaction) bool {
	if tx.ReferenceType != ReferenceTypeReturn {
		return false
	}
	return ExtractOrderReference(tx.ReferenceID) != "" || ExtractOrderReference(tx.Memo) != ""
}

// Resolve parses the order reference and resolves its tenant
func (s *ReturnOrderStrategy) Resolve(ctx context.Context, tx *Transaction) (uuid.UUID, bool, error) {
	orderRef := ExtractOrderReference(tx.ReferenceID)
	if orderRef == "" {
		orderRef = ExtractOrderReference(tx.Memo)
	}
	if orderRef == "" {
		return uuid.Nil, false, shared.ErrNotFound
	}
	tenantID, err := s.lookup.OrderTenant(ctx, orderRef)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, true, err
		}
		return uuid.Nil, false, err
	}
	return tenantID, false, nil
}

// AttributionResolver runs the ordered strategy chain for a transaction's
// reference type. Resolution is idempotent and monotonic: an already
// attributed transaction is returned as resolved without touching strategies.
type AttributionResolver struct {
	chains map[ReferenceType][]AttributionStrategy
}

// NewAttributionResolver builds the default strategy chains over the given
// owned-entity lookup
func NewAttributionResolver(lookup OwnedEntityLookup) *AttributionResolver {
	return &AttributionResolver{
		chains: map[ReferenceType][]AttributionStrategy{
			ReferenceTypeShipment:           {NewShipmentStrategy(lookup)},
			ReferenceTypeStorageLocation:    {NewStorageLocationStrategy(lookup)},
			ReferenceTypeWarehouseReceiving: {NewReceivingChannelStrategy()},
			ReferenceTypeReturn:             {NewReturnOrderStrategy(lookup)},
		},
	}
}

// NewAttributionResolverWithChains builds a resolver with explicit chains,
// used by tests and tenants with custom attribution configuration
func NewAttributionResolverWithChains(chains map[ReferenceType][]AttributionStrategy) *AttributionResolver {
	return &AttributionResolver{chains: chains}
}

// Resolve runs the strategy chain for the transaction. It mutates the
// transaction on success; pending and unattributable outcomes leave it
// untouched apart from the Unattributable flag.
func (r *AttributionResolver) Resolve(ctx context.Context, tx *Transaction) (AttributionOutcome, error) {
	if tx.TenantID != nil {
		return AttributionOutcome{Status: AttributionStatusResolved, TenantID: *tx.TenantID}, nil
	}

	chain := r.chains[tx.ReferenceType]
	pending := false
	for _, strategy := range chain {
		if !strategy.Applies(tx) {
			continue
		}
		tenantID, retryable, err := strategy.Resolve(ctx, tx)
		if err != nil {
			if retryable {
				pending = true
				continue
			}
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				// A malformed reference disqualifies this strategy only.
				continue
			}
			return AttributionOutcome{}, err
		}
		if err := tx.AttributeTo(tenantID); err != nil {
			return AttributionOutcome{}, err
		}
		return AttributionOutcome{
			Status:   AttributionStatusResolved,
			TenantID: tenantID,
			Strategy: strategy.Name(),
		}, nil
	}

	if pending {
		return AttributionOutcome{Status: AttributionStatusPending}, nil
	}
	tx.MarkUnattributable()
	return AttributionOutcome{Status: AttributionStatusUnattributable}, nil
}

// PendingAttribution is a queued retry for a transaction whose dependency
// (shipment, order) has not synced yet. Making the queue explicit keeps
// stalled items observable and time-bounded instead of silently re-invoked.
type PendingAttribution struct {
	shared.BaseEntity
	TransactionID uuid.UUID
	ReferenceID   string
	Attempts      int
	MaxAttempts   int
	NextRetryAt   time.Time
	Exhausted     bool
}

// NewPendingAttribution queues a transaction for attribution retry
func NewPendingAttribution(transactionID uuid.UUID, referenceID string, maxAttempts int, retryDelay time.Duration) *PendingAttribution {
	return &PendingAttribution{
		BaseEntity:    shared.NewBaseEntity(),
		TransactionID: transactionID,
		ReferenceID:   referenceID,
		Attempts:      0,
		MaxAttempts:   maxAttempts,
		NextRetryAt:   time.Now().Add(retryDelay),
	}
}

// Due reports whether the retry is due at the given time
func (p *PendingAttribution) Due(now time.Time) bool {
	return !p.Exhausted && !now.Before(p.NextRetryAt)
}

// RecordAttempt counts a failed attempt and schedules the next retry with
// linear backoff. Once the budget is spent the item is marked exhausted and
// the transaction falls to Unattributable.
func (p *PendingAttribution) RecordAttempt(retryDelay time.Duration) {
	p.Attempts++
	if p.Attempts >= p.MaxAttempts {
		p.Exhausted = true
		return
	}
	p.NextRetryAt = time.Now().Add(retryDelay * time.Duration(p.Attempts+1))
}
