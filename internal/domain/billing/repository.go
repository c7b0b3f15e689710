package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionRepository persists normalized transactions. Transactions are
// the durable source of truth for billing history.
type TransactionRepository interface {
	// FindByID finds a transaction by internal id
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindByUpstreamID finds a transaction by its stable upstream id
	FindByUpstreamID(ctx context.Context, upstreamID string) (*Transaction, error)

	// Save creates or updates a transaction
	Save(ctx context.Context, tx *Transaction) error

	// FindUnattributed returns transactions with no tenant that are not yet
	// marked unattributable
	FindUnattributed(ctx context.Context, limit int) ([]*Transaction, error)

	// FindUnpriced returns attributed transactions with no billed amount
	FindUnpriced(ctx context.Context, limit int) ([]*Transaction, error)

	// FindClaimable returns the tenant's attributed and priced transactions
	// in the period that no invoice has claimed
	FindClaimable(ctx context.Context, tenantID uuid.UUID, period BillingPeriod) ([]*Transaction, error)

	// FindByUpstreamInvoiceID returns all transactions carrying the upstream
	// invoice id
	FindByUpstreamInvoiceID(ctx context.Context, upstreamInvoiceID string) ([]*Transaction, error)

	// FindByGeneratedInvoiceID returns all transactions claimed by an invoice
	FindByGeneratedInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*Transaction, error)

	// ClaimForInvoice atomically stamps generated_invoice_id on the given
	// transactions. The write is guarded by generated_invoice_id IS NULL; if
	// any row is already claimed the whole claim fails with
	// shared.ErrClaimConflict and no row is modified.
	ClaimForInvoice(ctx context.Context, invoiceID uuid.UUID, transactionIDs []uuid.UUID) error

	// ResetBilling clears generated_invoice_id, billed_amount and
	// markup_rule_id for the given transactions. Administrative use only.
	ResetBilling(ctx context.Context, transactionIDs []uuid.UUID) error
}

// PricingRuleRepository provides pricing rules
type PricingRuleRepository interface {
	// Snapshot freezes the current rule set for the duration of a run
	Snapshot(ctx context.Context) (*RuleSetSnapshot, error)

	// Save creates or updates a pricing rule
	Save(ctx context.Context, rule *PricingRule) error
}

// GeneratedInvoiceRepository persists generated invoices
type GeneratedInvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*GeneratedInvoice, error)

	// FindByTenantPeriod finds the invoice covering a tenant-period, if any
	FindByTenantPeriod(ctx context.Context, tenantID uuid.UUID, period BillingPeriod) (*GeneratedInvoice, error)

	Save(ctx context.Context, invoice *GeneratedInvoice) error

	// Delete removes a draft invoice during an administrative reset
	Delete(ctx context.Context, id uuid.UUID) error
}

// UpstreamInvoiceRepository reads the provider's authoritative invoices
type UpstreamInvoiceRepository interface {
	FindByPeriod(ctx context.Context, period BillingPeriod) ([]UpstreamInvoice, error)
	Save(ctx context.Context, invoice *UpstreamInvoice) error
}

// DiscrepancyReportRepository persists reconciliation reports
type DiscrepancyReportRepository interface {
	Save(ctx context.Context, report *DiscrepancyReport) error
	FindByPeriod(ctx context.Context, period BillingPeriod) ([]DiscrepancyReport, error)
}

// PendingAttributionRepository persists the attribution retry queue
type PendingAttributionRepository interface {
	Save(ctx context.Context, pending *PendingAttribution) error

	// FindByTransactionID finds the queue entry for a transaction, if any
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*PendingAttribution, error)

	// FindDue returns entries whose retry is due at the given time
	FindDue(ctx context.Context, now time.Time, limit int) ([]*PendingAttribution, error)

	// Delete removes a resolved entry
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunReportRepository persists pipeline run reports
type RunReportRepository interface {
	Save(ctx context.Context, report *RunReport) error
}

// AssemblyLock serializes the claim-and-mark step per tenant-period.
// Acquire returns false when another assembler holds the lock; the caller
// must abort with a claim conflict rather than proceed.
type AssemblyLock interface {
	Acquire(ctx context.Context, tenantID uuid.UUID, period BillingPeriod, ttl time.Duration) (bool, error)
	Release(ctx context.Context, tenantID uuid.UUID, period BillingPeriod) error
}
