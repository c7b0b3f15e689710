package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the one-way lifecycle of a generated invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "DRAFT"    // Mutable, may be recomputed or reset
	InvoiceStatusApproved InvoiceStatus = "APPROVED" // Immutable, awaiting dispatch
	InvoiceStatusSent     InvoiceStatus = "SENT"     // Immutable, delivered to the tenant
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusApproved, InvoiceStatusSent:
		return true
	}
	return false
}

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsMutable returns true only for draft invoices
func (s InvoiceStatus) IsMutable() bool {
	return s == InvoiceStatusDraft
}

// BillingPeriod identifies the window an invoice covers: a date window, a set
// of upstream invoice ids, or both.
type BillingPeriod struct {
	Start              time.Time
	End                time.Time
	UpstreamInvoiceIDs []string
}

// Contains reports whether a charge date falls inside the period window
func (p BillingPeriod) Contains(chargeDate time.Time) bool {
	return !chargeDate.Before(p.Start) && chargeDate.Before(p.End)
}

// Key returns a stable identifier for the period, used for assembly locks
func (p BillingPeriod) Key() string {
	return fmt.Sprintf("%s:%s", p.Start.UTC().Format("2006-01-02"), p.End.UTC().Format("2006-01-02"))
}

// InvoiceLine is a per-display-category subtotal on a generated invoice
type InvoiceLine struct {
	Category         FeeCategory
	DisplayName      string
	TransactionCount int
	Subtotal         valueobject.Money
}

// GeneratedInvoice batches a tenant's priced transactions for one period.
// Draft invoices may be recomputed; approved and sent invoices are immutable.
type GeneratedInvoice struct {
	shared.BaseAggregateRoot
	TenantID    uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Lines       []InvoiceLine
	Total       valueobject.Money
	Status      InvoiceStatus
	ApprovedAt  *time.Time
	SentAt      *time.Time
}

// AssembleInvoice groups the given transactions by display category and
// builds a draft invoice. All transactions must be attributed to the tenant,
// priced, and unclaimed; aggregation runs at full decimal precision and
// rounding to the cent happens only at persistence.
func AssembleInvoice(tenantID uuid.UUID, period BillingPeriod, transactions []*Transaction) (*GeneratedInvoice, error) {
	if len(transactions) == 0 {
		return nil, shared.NewDomainError("EMPTY_INVOICE", "No billable transactions in the period")
	}

	subtotals := make(map[FeeCategory]valueobject.Money)
	counts := make(map[FeeCategory]int)
	total := valueobject.Zero(transactions[0].Amount.Currency())

	for _, tx := range transactions {
		if tx.TenantID == nil || *tx.TenantID != tenantID {
			return nil, shared.NewDomainError("WRONG_TENANT", "Transaction does not belong to the invoiced tenant")
		}
		if tx.BilledAmount == nil {
			return nil, shared.NewDomainError("UNPRICED_TRANSACTION", "Transaction has no billed amount")
		}
		if tx.IsClaimed() {
			return nil, shared.ErrClaimConflict
		}

		subtotal, ok := subtotals[tx.FeeCategory]
		if !ok {
			subtotal = valueobject.Zero(tx.BilledAmount.Currency())
		}
		next, err := subtotal.Add(*tx.BilledAmount)
		if err != nil {
			return nil, err
		}
		subtotals[tx.FeeCategory] = next
		counts[tx.FeeCategory]++

		total, err = total.Add(*tx.BilledAmount)
		if err != nil {
			return nil, err
		}
	}

	lines := make([]InvoiceLine, 0, len(subtotals))
	for category, subtotal := range subtotals {
		lines = append(lines, InvoiceLine{
			Category:         category,
			DisplayName:      category.DisplayName(),
			TransactionCount: counts[category],
			Subtotal:         subtotal,
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Category < lines[j].Category })

	return &GeneratedInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		PeriodStart:       period.Start,
		PeriodEnd:         period.End,
		Lines:             lines,
		Total:             total,
		Status:            InvoiceStatusDraft,
	}, nil
}

// Approve transitions draft -> approved. The transition is one-way.
func (i *GeneratedInvoice) Approve() error {
	if i.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState
	}
	now := time.Now()
	i.Status = InvoiceStatusApproved
	i.ApprovedAt = &now
	return nil
}

// MarkSent transitions approved -> sent. The transition is one-way.
func (i *GeneratedInvoice) MarkSent() error {
	if i.Status != InvoiceStatusApproved {
		return shared.ErrInvalidState
	}
	now := time.Now()
	i.Status = InvoiceStatusSent
	i.SentAt = &now
	return nil
}

// CanReset reports whether the invoice may be torn down by an administrative
// reset. Only drafts are resettable.
func (i *GeneratedInvoice) CanReset() bool {
	return i.Status == InvoiceStatusDraft
}

// SubtotalSum re-adds the category subtotals, used to verify the round-trip
// invariant that lines sum to the total
func (i *GeneratedInvoice) SubtotalSum() (valueobject.Money, error) {
	sum := valueobject.Zero(i.Total.Currency())
	for _, line := range i.Lines {
		var err error
		sum, err = sum.Add(line.Subtotal)
		if err != nil {
			return valueobject.Money{}, err
		}
	}
	return sum, nil
}
