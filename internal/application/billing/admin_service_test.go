package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
)

func draftInvoice(tenantID uuid.UUID, total string) *billing.GeneratedInvoice {
	period := julyPeriod()
	return &billing.GeneratedInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		PeriodStart:       period.Start,
		PeriodEnd:         period.End,
		Total:             usd(total),
		Status:            billing.InvoiceStatusDraft,
	}
}

func newAdminService(txRepo *mockTransactionRepo, invoiceRepo *mockInvoiceRepo, pendingRepo *mockPendingRepo, auditRepo *mockAuditRepo) *AdminService {
	return NewAdminService(txRepo, invoiceRepo, pendingRepo, auditRepo, zap.NewNop())
}

func TestAdminService_ResetInvoice(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("releases transactions and deletes the draft", func(t *testing.T) {
		invoice := draftInvoice(tenantID, "15.40")
		tx := newBillableTransaction(tenantID, "10.00", "11.00")
		tx.GeneratedInvoiceID = &invoice.ID

		invoiceRepo := new(mockInvoiceRepo)
		invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		invoiceRepo.On("Delete", ctx, invoice.ID).Return(nil)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByGeneratedInvoiceID", ctx, invoice.ID).Return([]*billing.Transaction{tx}, nil)
		txRepo.On("ResetBilling", ctx, []uuid.UUID{tx.ID}).Return(nil)

		auditRepo := new(mockAuditRepo)
		auditRepo.On("Save", ctx, mock.MatchedBy(func(r *shared.AuditRecord) bool {
			return r.Action == shared.AuditActionInvoiceReset && r.SubjectID == invoice.ID
		})).Return(nil)

		service := newAdminService(txRepo, invoiceRepo, new(mockPendingRepo), auditRepo)
		err := service.ResetInvoice(ctx, ResetInvoiceInput{
			InvoiceID: invoice.ID,
			Actor:     "ops@warebill.io",
			Reason:    "re-run with corrected rules",
		})
		require.NoError(t, err)

		auditRepo.AssertNumberOfCalls(t, "Save", 1)
		txRepo.AssertCalled(t, "ResetBilling", ctx, []uuid.UUID{tx.ID})
		invoiceRepo.AssertCalled(t, "Delete", ctx, invoice.ID)
	})

	t.Run("refuses to reset an approved invoice", func(t *testing.T) {
		invoice := draftInvoice(tenantID, "15.40")
		require.NoError(t, invoice.Approve())

		invoiceRepo := new(mockInvoiceRepo)
		invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

		txRepo := new(mockTransactionRepo)
		auditRepo := new(mockAuditRepo)

		service := newAdminService(txRepo, invoiceRepo, new(mockPendingRepo), auditRepo)
		err := service.ResetInvoice(ctx, ResetInvoiceInput{
			InvoiceID: invoice.ID,
			Actor:     "ops@warebill.io",
			Reason:    "attempt",
		})

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		txRepo.AssertNotCalled(t, "ResetBilling", mock.Anything, mock.Anything)
		auditRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("requires an actor and a reason", func(t *testing.T) {
		invoice := draftInvoice(tenantID, "15.40")

		invoiceRepo := new(mockInvoiceRepo)
		invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByGeneratedInvoiceID", ctx, invoice.ID).Return([]*billing.Transaction{}, nil)

		service := newAdminService(txRepo, invoiceRepo, new(mockPendingRepo), new(mockAuditRepo))
		err := service.ResetInvoice(ctx, ResetInvoiceInput{InvoiceID: invoice.ID})
		assert.Error(t, err)
		txRepo.AssertNotCalled(t, "ResetBilling", mock.Anything, mock.Anything)
	})

	t.Run("failed release leaves no audit row", func(t *testing.T) {
		invoice := draftInvoice(tenantID, "15.40")
		tx := newBillableTransaction(tenantID, "10.00", "11.00")
		tx.GeneratedInvoiceID = &invoice.ID

		invoiceRepo := new(mockInvoiceRepo)
		invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByGeneratedInvoiceID", ctx, invoice.ID).Return([]*billing.Transaction{tx}, nil)
		txRepo.On("ResetBilling", ctx, []uuid.UUID{tx.ID}).Return(errors.New("deadlock"))

		auditRepo := new(mockAuditRepo)

		service := newAdminService(txRepo, invoiceRepo, new(mockPendingRepo), auditRepo)
		err := service.ResetInvoice(ctx, ResetInvoiceInput{
			InvoiceID: invoice.ID,
			Actor:     "ops@warebill.io",
			Reason:    "re-run with corrected rules",
		})

		assert.Error(t, err)
		auditRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		invoiceRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestAdminService_ForceAttribute(t *testing.T) {
	ctx := context.Background()

	t.Run("overrides the tenant and clears the retry queue entry", func(t *testing.T) {
		tenantID := uuid.New()
		tx := newShipmentTransaction("10.00")
		tx.Unattributable = true
		pending := billing.NewPendingAttribution(tx.ID, tx.ReferenceID, 5, 0)

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByID", ctx, tx.ID).Return(tx, nil)
		txRepo.On("Save", ctx, tx).Return(nil)

		pendingRepo := new(mockPendingRepo)
		pendingRepo.On("FindByTransactionID", ctx, tx.ID).Return(pending, nil)
		pendingRepo.On("Delete", ctx, pending.ID).Return(nil)

		auditRepo := new(mockAuditRepo)
		auditRepo.On("Save", ctx, mock.MatchedBy(func(r *shared.AuditRecord) bool {
			return r.Action == shared.AuditActionForceAttribution && r.SubjectID == tx.ID
		})).Return(nil)

		service := newAdminService(txRepo, new(mockInvoiceRepo), pendingRepo, auditRepo)
		err := service.ForceAttribute(ctx, ForceAttributeInput{
			TransactionID: tx.ID,
			TenantID:      tenantID,
			Actor:         "ops@warebill.io",
			Reason:        "shipment sync confirmed out of band",
		})
		require.NoError(t, err)

		require.NotNil(t, tx.TenantID)
		assert.Equal(t, tenantID, *tx.TenantID)
		assert.False(t, tx.Unattributable)
		pendingRepo.AssertCalled(t, "Delete", ctx, pending.ID)
	})

	t.Run("refuses to re-attribute a claimed transaction", func(t *testing.T) {
		invoiceID := uuid.New()
		originalTenant := uuid.New()
		tx := newBillableTransaction(originalTenant, "10.00", "11.00")
		tx.GeneratedInvoiceID = &invoiceID

		txRepo := new(mockTransactionRepo)
		txRepo.On("FindByID", ctx, tx.ID).Return(tx, nil)

		auditRepo := new(mockAuditRepo)

		service := newAdminService(txRepo, new(mockInvoiceRepo), new(mockPendingRepo), auditRepo)
		err := service.ForceAttribute(ctx, ForceAttributeInput{
			TransactionID: tx.ID,
			TenantID:      uuid.New(),
			Actor:         "ops@warebill.io",
			Reason:        "attempt",
		})

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, originalTenant, *tx.TenantID)
		auditRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		txRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestAdminService_InvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("approve then send", func(t *testing.T) {
		invoice := draftInvoice(tenantID, "15.40")

		invoiceRepo := new(mockInvoiceRepo)
		invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)
		invoiceRepo.On("Save", ctx, invoice).Return(nil)

		auditRepo := new(mockAuditRepo)
		auditRepo.On("Save", ctx, mock.AnythingOfType("*shared.AuditRecord")).Return(nil)

		service := newAdminService(new(mockTransactionRepo), invoiceRepo, new(mockPendingRepo), auditRepo)

		input := InvoiceTransitionInput{InvoiceID: invoice.ID, Actor: "ops@warebill.io", Reason: "month-end close"}
		require.NoError(t, service.ApproveInvoice(ctx, input))
		assert.Equal(t, billing.InvoiceStatusApproved, invoice.Status)
		assert.NotNil(t, invoice.ApprovedAt)

		require.NoError(t, service.MarkInvoiceSent(ctx, input))
		assert.Equal(t, billing.InvoiceStatusSent, invoice.Status)
		assert.NotNil(t, invoice.SentAt)

		auditRepo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("sending a draft is rejected", func(t *testing.T) {
		invoice := draftInvoice(tenantID, "15.40")

		invoiceRepo := new(mockInvoiceRepo)
		invoiceRepo.On("FindByID", ctx, invoice.ID).Return(invoice, nil)

		service := newAdminService(new(mockTransactionRepo), invoiceRepo, new(mockPendingRepo), new(mockAuditRepo))
		err := service.MarkInvoiceSent(ctx, InvoiceTransitionInput{
			InvoiceID: invoice.ID, Actor: "ops@warebill.io", Reason: "premature",
		})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, billing.InvoiceStatusDraft, invoice.Status)
	})
}
