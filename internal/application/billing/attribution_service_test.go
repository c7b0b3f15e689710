package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
)

func newAttributionService(txRepo *mockTransactionRepo, pendingRepo *mockPendingRepo, lookup *mockOwnedEntityLookup) *AttributionService {
	config := DefaultAttributionServiceConfig()
	config.BatchSize = 100
	return NewAttributionService(
		txRepo,
		pendingRepo,
		billing.NewAttributionResolver(lookup),
		config,
		zap.NewNop(),
	)
}

func TestAttributionService_ProcessUnattributed(t *testing.T) {
	ctx := context.Background()

	t.Run("attributes a shipment charge to its owning tenant", func(t *testing.T) {
		tenantID := uuid.New()
		tx := newShipmentTransaction("10.00")

		lookup := new(mockOwnedEntityLookup)
		lookup.On("ShipmentTenant", ctx, tx.ReferenceID).Return(tenantID, nil)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindUnattributed", ctx, 100).Return([]*billing.Transaction{tx}, nil)
		txRepo.On("Save", ctx, tx).Return(nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindByTransactionID", ctx, tx.ID).Return(nil, shared.ErrNotFound)

		service := newAttributionService(txRepo, pendingRepo, lookup)
		summary, err := service.ProcessUnattributed(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Attributed)
		require.NotNil(t, tx.TenantID)
		assert.Equal(t, tenantID, *tx.TenantID)
	})

	t.Run("queues a charge whose shipment has not synced yet", func(t *testing.T) {
		tx := newShipmentTransaction("10.00")

		lookup := new(mockOwnedEntityLookup)
		lookup.On("ShipmentTenant", ctx, tx.ReferenceID).Return(uuid.Nil, shared.ErrNotFound)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindUnattributed", ctx, 100).Return([]*billing.Transaction{tx}, nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindByTransactionID", ctx, tx.ID).Return(nil, shared.ErrNotFound)
		pendingRepo.On("Save", ctx, mock.AnythingOfType("*billing.PendingAttribution")).Return(nil)

		service := newAttributionService(txRepo, pendingRepo, lookup)
		summary, err := service.ProcessUnattributed(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.PendingRetry)
		assert.Nil(t, tx.TenantID)
		assert.False(t, tx.Unattributable)
		pendingRepo.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("does not double-queue an already queued charge", func(t *testing.T) {
		tx := newShipmentTransaction("10.00")
		queued := billing.NewPendingAttribution(tx.ID, tx.ReferenceID, 5, time.Minute)

		lookup := new(mockOwnedEntityLookup)
		lookup.On("ShipmentTenant", ctx, tx.ReferenceID).Return(uuid.Nil, shared.ErrNotFound)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindUnattributed", ctx, 100).Return([]*billing.Transaction{tx}, nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindByTransactionID", ctx, tx.ID).Return(queued, nil)

		service := newAttributionService(txRepo, pendingRepo, lookup)
		summary, err := service.ProcessUnattributed(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.PendingRetry)
		pendingRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("marks a charge with no applicable strategy unattributable", func(t *testing.T) {
		tx := newShipmentTransaction("10.00")
		tx.ReferenceType = billing.ReferenceTypeOther
		tx.FeeCategory = billing.FeeCategoryOther

		lookup := new(mockOwnedEntityLookup)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindUnattributed", ctx, 100).Return([]*billing.Transaction{tx}, nil)
		txRepo.On("Save", ctx, tx).Return(nil)

		pendingRepo := new(mockPendingRepo)

		service := newAttributionService(txRepo, pendingRepo, lookup)
		summary, err := service.ProcessUnattributed(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Unattributable)
		assert.True(t, tx.Unattributable)
	})

	t.Run("resolves return charges through the memo order reference", func(t *testing.T) {
		tenantID := uuid.New()
		tx := newShipmentTransaction("4.25")
		tx.FeeCategory = billing.FeeCategoryReturns
		tx.ReferenceType = billing.ReferenceTypeReturn
		tx.ReferenceID = ""
		tx.Memo = "Return for order #1043-5567812"

		lookup := new(mockOwnedEntityLookup)
		lookup.On("OrderTenant", ctx, "1043-5567812").Return(tenantID, nil)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindUnattributed", ctx, 100).Return([]*billing.Transaction{tx}, nil)
		txRepo.On("Save", ctx, tx).Return(nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindByTransactionID", ctx, tx.ID).Return(nil, shared.ErrNotFound)

		service := newAttributionService(txRepo, pendingRepo, lookup)
		summary, err := service.ProcessUnattributed(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Attributed)
		require.NotNil(t, tx.TenantID)
		assert.Equal(t, tenantID, *tx.TenantID)
	})
}

func TestAttributionService_ProcessRetryQueue(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("resolves a queued charge once its shipment syncs", func(t *testing.T) {
		tenantID := uuid.New()
		tx := newShipmentTransaction("10.00")
		pending := billing.NewPendingAttribution(tx.ID, tx.ReferenceID, 5, time.Minute)

		lookup := new(mockOwnedEntityLookup)
		lookup.On("ShipmentTenant", ctx, tx.ReferenceID).Return(tenantID, nil)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByID", ctx, tx.ID).Return(tx, nil)
		txRepo.On("Save", ctx, tx).Return(nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindDue", ctx, now, 100).Return([]*billing.PendingAttribution{pending}, nil)
		pendingRepo.On("Delete", ctx, pending.ID).Return(nil)

		service := newAttributionService(txRepo, pendingRepo, lookup)
		summary, err := service.ProcessRetryQueue(ctx, now)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Attributed)
		pendingRepo.AssertCalled(t, "Delete", ctx, pending.ID)
	})

	t.Run("exhausts the retry budget and marks the charge unattributable", func(t *testing.T) {
		tx := newShipmentTransaction("10.00")
		pending := billing.NewPendingAttribution(tx.ID, tx.ReferenceID, 2, time.Minute)
		pending.Attempts = 1

		lookup := new(mockOwnedEntityLookup)
		lookup.On("ShipmentTenant", ctx, tx.ReferenceID).Return(uuid.Nil, shared.ErrNotFound)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByID", ctx, tx.ID).Return(tx, nil)
		txRepo.On("Save", ctx, tx).Return(nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindDue", ctx, now, 100).Return([]*billing.PendingAttribution{pending}, nil)
		pendingRepo.On("Save", ctx, pending).Return(nil)

		service := newAttributionService(txRepo, pendingRepo, lookup)
		summary, err := service.ProcessRetryQueue(ctx, now)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Unattributable)
		assert.True(t, pending.Exhausted)
		assert.True(t, tx.Unattributable)
	})

	t.Run("reschedules a still-pending charge with budget left", func(t *testing.T) {
		tx := newShipmentTransaction("10.00")
		pending := billing.NewPendingAttribution(tx.ID, tx.ReferenceID, 5, time.Minute)

		lookup := new(mockOwnedEntityLookup)
		lookup.On("ShipmentTenant", ctx, tx.ReferenceID).Return(uuid.Nil, shared.ErrNotFound)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByID", ctx, tx.ID).Return(tx, nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindDue", ctx, now, 100).Return([]*billing.PendingAttribution{pending}, nil)
		pendingRepo.On("Save", ctx, pending).Return(nil)

		service := newAttributionService(txRepo, pendingRepo, lookup)
		summary, err := service.ProcessRetryQueue(ctx, now)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.PendingRetry)
		assert.Equal(t, 1, pending.Attempts)
		assert.False(t, pending.Exhausted)
		assert.False(t, tx.Unattributable)
	})

	t.Run("drops the queue entry of a transaction attributed out of band", func(t *testing.T) {
		tenantID := uuid.New()
		tx := newShipmentTransaction("10.00")
		tx.TenantID = &tenantID
		pending := billing.NewPendingAttribution(tx.ID, tx.ReferenceID, 5, time.Minute)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByID", ctx, tx.ID).Return(tx, nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindDue", ctx, now, 100).Return([]*billing.PendingAttribution{pending}, nil)
		pendingRepo.On("Delete", ctx, pending.ID).Return(nil)

		service := newAttributionService(txRepo, pendingRepo, new(mockOwnedEntityLookup))
		summary, err := service.ProcessRetryQueue(ctx, now)
		require.NoError(t, err)

		assert.Zero(t, summary.Attributed)
		pendingRepo.AssertCalled(t, "Delete", ctx, pending.ID)
	})
}
