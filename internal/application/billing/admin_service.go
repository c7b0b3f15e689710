package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
)

// ResetInvoiceInput contains input for an administrative invoice reset
type ResetInvoiceInput struct {
	InvoiceID uuid.UUID
	Actor     string
	Reason    string
}

// ForceAttributeInput contains input for a forced attribution
type ForceAttributeInput struct {
	TransactionID uuid.UUID
	TenantID      uuid.UUID
	Actor         string
	Reason        string
}

// InvoiceTransitionInput contains input for an invoice status transition
type InvoiceTransitionInput struct {
	InvoiceID uuid.UUID
	Actor     string
	Reason    string
}

// AdminService performs the audited administrative overrides: invoice resets,
// forced attribution and invoice lifecycle transitions. Every override writes
// an audit record before the mutation lands.
type AdminService struct {
	transactionRepo billing.TransactionRepository
	invoiceRepo     billing.GeneratedInvoiceRepository
	pendingRepo     billing.PendingAttributionRepository
	auditRepo       shared.AuditRepository
	logger          *zap.Logger
}

// NewAdminService creates an AdminService
func NewAdminService(
	transactionRepo billing.TransactionRepository,
	invoiceRepo billing.GeneratedInvoiceRepository,
	pendingRepo billing.PendingAttributionRepository,
	auditRepo shared.AuditRepository,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		transactionRepo: transactionRepo,
		invoiceRepo:     invoiceRepo,
		pendingRepo:     pendingRepo,
		auditRepo:       auditRepo,
		logger:          logger,
	}
}

// ResetInvoice tears down a draft invoice: its transactions are released back
// to claimable and the draft is deleted. Approved and sent invoices are
// immutable and cannot be reset.
func (s *AdminService) ResetInvoice(ctx context.Context, input ResetInvoiceInput) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, input.InvoiceID)
	if err != nil {
		return err
	}
	if !invoice.CanReset() {
		return fmt.Errorf("%w: only draft invoices can be reset, invoice %s is %s",
			shared.ErrInvalidState, invoice.ID, invoice.Status)
	}

	transactions, err := s.transactionRepo.FindByGeneratedInvoiceID(ctx, invoice.ID)
	if err != nil {
		return err
	}

	detail := fmt.Sprintf("released %d transactions, invoice total %s",
		len(transactions), invoice.Total.Amount().String())
	record, err := shared.NewAuditRecord(shared.AuditActionInvoiceReset, input.Actor, input.Reason, invoice.ID, detail)
	if err != nil {
		return err
	}

	transactionIDs := make([]uuid.UUID, len(transactions))
	for i, tx := range transactions {
		transactionIDs[i] = tx.ID
	}
	if len(transactionIDs) > 0 {
		if err := s.transactionRepo.ResetBilling(ctx, transactionIDs); err != nil {
			return err
		}
	}

	if err := s.invoiceRepo.Delete(ctx, invoice.ID); err != nil {
		return err
	}

	// The audit row lands only once the release has actually happened.
	if err := s.auditRepo.Save(ctx, record); err != nil {
		return err
	}

	s.logger.Info("Invoice reset",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("actor", input.Actor),
		zap.Int("transactions_released", len(transactions)))

	return nil
}

// ForceAttribute overrides the owning tenant of a stuck transaction. Claimed
// transactions cannot be re-attributed; any pending retry queue entry for the
// transaction is removed.
func (s *AdminService) ForceAttribute(ctx context.Context, input ForceAttributeInput) error {
	tx, err := s.transactionRepo.FindByID(ctx, input.TransactionID)
	if err != nil {
		return err
	}

	detail := fmt.Sprintf("tenant set to %s, upstream id %s", input.TenantID, tx.UpstreamID)
	record, err := shared.NewAuditRecord(shared.AuditActionForceAttribution, input.Actor, input.Reason, tx.ID, detail)
	if err != nil {
		return err
	}

	if err := tx.ForceAttribute(input.TenantID); err != nil {
		return err
	}

	if err := s.auditRepo.Save(ctx, record); err != nil {
		return err
	}
	if err := s.transactionRepo.Save(ctx, tx); err != nil {
		return err
	}

	pending, err := s.pendingRepo.FindByTransactionID(ctx, tx.ID)
	if err == nil {
		if err := s.pendingRepo.Delete(ctx, pending.ID); err != nil {
			return err
		}
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	s.logger.Info("Transaction attribution forced",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("actor", input.Actor))

	return nil
}

// ApproveInvoice transitions a draft invoice to approved
func (s *AdminService) ApproveInvoice(ctx context.Context, input InvoiceTransitionInput) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, input.InvoiceID)
	if err != nil {
		return err
	}

	record, err := shared.NewAuditRecord(shared.AuditActionInvoiceApproved, input.Actor, input.Reason, invoice.ID, "")
	if err != nil {
		return err
	}

	if err := invoice.Approve(); err != nil {
		return err
	}
	if err := s.auditRepo.Save(ctx, record); err != nil {
		return err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return err
	}

	s.logger.Info("Invoice approved",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("actor", input.Actor))
	return nil
}

// MarkInvoiceSent transitions an approved invoice to sent
func (s *AdminService) MarkInvoiceSent(ctx context.Context, input InvoiceTransitionInput) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, input.InvoiceID)
	if err != nil {
		return err
	}

	record, err := shared.NewAuditRecord(shared.AuditActionInvoiceSent, input.Actor, input.Reason, invoice.ID, "")
	if err != nil {
		return err
	}

	if err := invoice.MarkSent(); err != nil {
		return err
	}
	if err := s.auditRepo.Save(ctx, record); err != nil {
		return err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return err
	}

	s.logger.Info("Invoice marked sent",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("actor", input.Actor))
	return nil
}
