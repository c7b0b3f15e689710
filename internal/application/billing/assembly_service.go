package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
)

// AssemblyService batches a tenant's priced transactions into draft invoices.
// The claim-and-mark step is serialized per tenant-period by a distributed
// lock and guarded by an atomic conditional claim, so a transaction lands on
// at most one invoice even under concurrent runs.
type AssemblyService struct {
	transactionRepo billing.TransactionRepository
	invoiceRepo     billing.GeneratedInvoiceRepository
	tenantRepo      billing.TenantRepository
	lock            billing.AssemblyLock
	lockTTL         time.Duration
	logger          *zap.Logger
}

// NewAssemblyService creates an AssemblyService
func NewAssemblyService(
	transactionRepo billing.TransactionRepository,
	invoiceRepo billing.GeneratedInvoiceRepository,
	tenantRepo billing.TenantRepository,
	lock billing.AssemblyLock,
	lockTTL time.Duration,
	logger *zap.Logger,
) *AssemblyService {
	return &AssemblyService{
		transactionRepo: transactionRepo,
		invoiceRepo:     invoiceRepo,
		tenantRepo:      tenantRepo,
		lock:            lock,
		lockTTL:         lockTTL,
		logger:          logger,
	}
}

// AssembleForTenant builds the tenant's draft invoice for the period and
// claims its transactions. Returns nil without error when the tenant has
// nothing claimable. A lost lock or a lost claim race aborts with
// shared.ErrClaimConflict and leaves no invoice behind.
func (s *AssemblyService) AssembleForTenant(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod) (*billing.GeneratedInvoice, billing.RunSummary, error) {
	var summary billing.RunSummary

	acquired, err := s.lock.Acquire(ctx, tenantID, period, s.lockTTL)
	if err != nil {
		return nil, summary, err
	}
	if !acquired {
		return nil, summary, fmt.Errorf("%w: assembly lock held for tenant %s period %s",
			shared.ErrClaimConflict, tenantID, period.Key())
	}
	defer func() {
		if err := s.lock.Release(ctx, tenantID, period); err != nil {
			s.logger.Error("Failed to release assembly lock",
				zap.String("tenant_id", tenantID.String()),
				zap.String("period", period.Key()),
				zap.Error(err))
		}
	}()

	existing, err := s.invoiceRepo.FindByTenantPeriod(ctx, tenantID, period)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, summary, err
	}
	if existing != nil {
		return nil, summary, fmt.Errorf("%w: invoice %s already covers tenant %s period %s",
			shared.ErrAlreadyExists, existing.ID, tenantID, period.Key())
	}

	transactions, err := s.transactionRepo.FindClaimable(ctx, tenantID, period)
	if err != nil {
		return nil, summary, err
	}
	if len(transactions) == 0 {
		s.logger.Debug("No claimable transactions for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.String("period", period.Key()))
		return nil, summary, nil
	}

	invoice, err := billing.AssembleInvoice(tenantID, period, transactions)
	if err != nil {
		return nil, summary, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, summary, err
	}

	transactionIDs := make([]uuid.UUID, len(transactions))
	for i, tx := range transactions {
		transactionIDs[i] = tx.ID
	}

	if err := s.transactionRepo.ClaimForInvoice(ctx, invoice.ID, transactionIDs); err != nil {
		// The draft must not survive a failed claim; a later run rebuilds it
		// from whatever is still unclaimed.
		if deleteErr := s.invoiceRepo.Delete(ctx, invoice.ID); deleteErr != nil {
			s.logger.Error("Failed to delete invoice after claim failure",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(deleteErr))
		}
		return nil, summary, err
	}

	summary.Claimed += len(transactions)
	summary.InvoicesCreated++

	s.logger.Info("Invoice assembled",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("period", period.Key()),
		zap.Int("transactions", len(transactions)),
		zap.String("total", invoice.Total.Amount().String()))

	return invoice, summary, nil
}

// AssembleAll assembles invoices for every tenant. A claim conflict on one
// tenant means a concurrent assembler got there first; the run logs it and
// moves on rather than failing the remaining tenants.
func (s *AssemblyService) AssembleAll(ctx context.Context, period billing.BillingPeriod) (billing.RunSummary, error) {
	var summary billing.RunSummary

	tenants, err := s.tenantRepo.FindAll(ctx)
	if err != nil {
		return summary, err
	}

	for _, tenant := range tenants {
		_, tenantSummary, err := s.AssembleForTenant(ctx, tenant.ID, period)
		if err != nil {
			if errors.Is(err, shared.ErrClaimConflict) || errors.Is(err, shared.ErrAlreadyExists) {
				s.logger.Warn("Skipping tenant assembly",
					zap.String("tenant_id", tenant.ID.String()),
					zap.String("period", period.Key()),
					zap.Error(err))
				continue
			}
			return summary, err
		}
		summary.Add(tenantSummary)
	}

	return summary, nil
}
