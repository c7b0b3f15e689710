package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

// Transaction is a single normalized upstream charge. It is the durable source
// of truth for billing: the upstream feed only retains per-charge detail for a
// bounded window, so once ingested a transaction is never re-derived from the
// feed.
//
// Lifecycle: created on ingest; TenantID and BilledAmount are set idempotently
// by attribution and pricing; GeneratedInvoiceID is set exactly once by
// assembly and cleared only by an audited administrative reset.
type Transaction struct {
	shared.BaseAggregateRoot

	// UpstreamID is the stable id assigned by the fulfillment provider.
	// Upserts are keyed on it so a duplicated feed page never double-ingests.
	UpstreamID string

	TenantID      *uuid.UUID
	FeeCategory   FeeCategory
	ReferenceType ReferenceType

	// ReferenceID is opaque; its meaning depends on ReferenceType.
	ReferenceID string

	// Memo carries upstream free text. Return charges embed their order
	// reference here.
	Memo string

	Amount     valueobject.Money
	ChargeDate time.Time

	UpstreamInvoiceID *string

	// IngestChannelTenantID is the tenant that owns the feed channel the
	// record arrived on, when ingestion is tenant-scoped. Nil for shared
	// channels.
	IngestChannelTenantID *uuid.UUID

	GeneratedInvoiceID *uuid.UUID
	BilledAmount       *valueobject.Money
	MarkupRuleID       *uuid.UUID

	Unattributable bool
}

// IsAttributed returns true once an owning tenant has been resolved
func (t *Transaction) IsAttributed() bool {
	return t.TenantID != nil
}

// IsPriced returns true once a billed amount has been computed
func (t *Transaction) IsPriced() bool {
	return t.BilledAmount != nil
}

// IsClaimed returns true once the transaction belongs to a generated invoice
func (t *Transaction) IsClaimed() bool {
	return t.GeneratedInvoiceID != nil
}

// AttributeTo assigns the owning tenant. Attribution is monotonic: a set
// tenant is never changed except through ForceAttribute, which is audited.
func (t *Transaction) AttributeTo(tenantID uuid.UUID) error {
	if t.TenantID != nil {
		if *t.TenantID == tenantID {
			return nil
		}
		return shared.NewDomainError("TENANT_ALREADY_SET", "Transaction is already attributed to a different tenant")
	}
	t.TenantID = &tenantID
	t.Unattributable = false
	return nil
}

// MarkUnattributable records that every strategy was exhausted. The
// transaction is surfaced for review and excluded from all invoices.
func (t *Transaction) MarkUnattributable() {
	if t.TenantID != nil {
		return
	}
	t.Unattributable = true
}

// ForceAttribute overrides attribution for a stuck transaction. Callers must
// persist an audit record alongside; the domain only enforces claim safety.
func (t *Transaction) ForceAttribute(tenantID uuid.UUID) error {
	if t.IsClaimed() {
		return shared.ErrInvalidState
	}
	t.TenantID = &tenantID
	t.Unattributable = false
	return nil
}

// SetBilledAmount records the priced amount and the rule that produced it.
// Re-pricing with the same rule snapshot converges to the same value, so
// overwriting an unclaimed billed amount is allowed.
func (t *Transaction) SetBilledAmount(amount valueobject.Money, ruleID *uuid.UUID) error {
	if t.IsClaimed() {
		return shared.NewDomainError("TRANSACTION_CLAIMED", "Cannot re-price a transaction already claimed by an invoice")
	}
	t.BilledAmount = &amount
	t.MarkupRuleID = ruleID
	return nil
}

// Claim marks the transaction as belonging to a generated invoice.
// A transaction is claimed at most once.
func (t *Transaction) Claim(invoiceID uuid.UUID) error {
	if t.GeneratedInvoiceID != nil {
		if *t.GeneratedInvoiceID == invoiceID {
			return nil
		}
		return shared.ErrClaimConflict
	}
	if t.TenantID == nil || t.BilledAmount == nil {
		return shared.NewDomainError("NOT_BILLABLE", "Transaction must be attributed and priced before it can be claimed")
	}
	t.GeneratedInvoiceID = &invoiceID
	return nil
}

// ResetBilling clears the claim and billed amount for a controlled re-run.
// Only administrative code paths call this, always with an audit record.
func (t *Transaction) ResetBilling() {
	t.GeneratedInvoiceID = nil
	t.BilledAmount = nil
	t.MarkupRuleID = nil
}

// MergeFromReingest applies a re-ingested copy of the same upstream charge.
// Descriptive fields refresh; attribution and billing state never regress.
func (t *Transaction) MergeFromReingest(incoming *Transaction) {
	if incoming.UpstreamID != t.UpstreamID {
		return
	}
	t.FeeCategory = incoming.FeeCategory
	t.ReferenceType = incoming.ReferenceType
	t.ReferenceID = incoming.ReferenceID
	t.Memo = incoming.Memo
	t.ChargeDate = incoming.ChargeDate
	if incoming.UpstreamInvoiceID != nil {
		t.UpstreamInvoiceID = incoming.UpstreamInvoiceID
	}
	if incoming.IngestChannelTenantID != nil && t.IngestChannelTenantID == nil {
		t.IngestChannelTenantID = incoming.IngestChannelTenantID
	}
	// Amount refreshes only while unclaimed; a claimed transaction keeps the
	// amount it was invoiced at. A changed base amount invalidates any billed
	// amount already computed from the old base, so the next pricing pass
	// picks the transaction up again.
	if !t.IsClaimed() && !t.Amount.Equals(incoming.Amount) {
		t.Amount = incoming.Amount
		t.BilledAmount = nil
		t.MarkupRuleID = nil
	}
}
