package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

// DriftClassification buckets a reconciliation discrepancy by severity
type DriftClassification string

const (
	// DriftWithinTolerance means the delta is inside the configured tolerance.
	// Some drift is inherent to the feed (timing cutoffs, detail retention).
	DriftWithinTolerance DriftClassification = "WITHIN_TOLERANCE"

	// DriftNeedsReview means the delta exceeds tolerance and an operator
	// should look at it
	DriftNeedsReview DriftClassification = "NEEDS_REVIEW"

	// DriftUpstreamOnlySuspected means the authoritative total exceeds the
	// local sum by enough to suggest charges that never appeared in the
	// detail feed, typically because they fell outside the retention window
	DriftUpstreamOnlySuspected DriftClassification = "UPSTREAM_ONLY_CHARGE_SUSPECTED"
)

// ToleranceConfig holds the thresholds used to classify drift, as percentages
// of the authoritative total
type ToleranceConfig struct {
	// TolerancePercent is the band treated as within-tolerance
	TolerancePercent decimal.Decimal

	// UpstreamOnlyPercent is the shortfall beyond which missing upstream
	// detail is suspected
	UpstreamOnlyPercent decimal.Decimal
}

// DefaultToleranceConfig returns 1% tolerance and 10% upstream-only threshold
func DefaultToleranceConfig() ToleranceConfig {
	return ToleranceConfig{
		TolerancePercent:    decimal.NewFromInt(1),
		UpstreamOnlyPercent: decimal.NewFromInt(10),
	}
}

// CategoryDelta is the per-category difference between local and upstream
// sums
type CategoryDelta struct {
	Category      FeeCategory
	ComputedTotal valueobject.Money
	Delta         valueobject.Money
}

// DiscrepancyReport records the disagreement between the locally summed
// transactions for an upstream invoice and the provider's authoritative
// total. Reports are advisory: drift is surfaced, never auto-corrected, since
// silently adjusting billed amounts would mask genuine upstream
// inconsistencies.
type DiscrepancyReport struct {
	shared.BaseEntity
	UpstreamInvoiceID  string
	PeriodStart        time.Time
	PeriodEnd          time.Time
	AuthoritativeTotal valueobject.Money
	ComputedTotal      valueobject.Money
	Delta              valueobject.Money
	PercentDelta       decimal.Decimal
	Classification     DriftClassification
	CategoryDeltas     []CategoryDelta
	TransactionCount   int
}

// HasDrift reports whether any discrepancy exists at all
func (r *DiscrepancyReport) HasDrift() bool {
	return !r.Delta.IsZero()
}

// Compare builds a discrepancy report for one upstream invoice against the
// transactions carrying its upstream_invoice_id. Strictly read-only: billing
// state is never mutated.
func Compare(upstream UpstreamInvoice, transactions []*Transaction, tolerances ToleranceConfig) (*DiscrepancyReport, error) {
	currency := upstream.AuthoritativeTotal.Currency()
	computed := valueobject.Zero(currency)
	categoryTotals := make(map[FeeCategory]valueobject.Money)

	for _, tx := range transactions {
		amount := tx.Amount
		if tx.BilledAmount != nil {
			amount = *tx.BilledAmount
		}
		var err error
		computed, err = computed.Add(amount)
		if err != nil {
			return nil, err
		}
		subtotal, ok := categoryTotals[tx.FeeCategory]
		if !ok {
			subtotal = valueobject.Zero(currency)
		}
		subtotal, err = subtotal.Add(amount)
		if err != nil {
			return nil, err
		}
		categoryTotals[tx.FeeCategory] = subtotal
	}

	delta, err := computed.Subtract(upstream.AuthoritativeTotal)
	if err != nil {
		return nil, err
	}

	percentDelta := decimal.Zero
	if !upstream.AuthoritativeTotal.IsZero() {
		percentDelta = delta.Amount().
			Div(upstream.AuthoritativeTotal.Amount()).
			Mul(decimal.NewFromInt(100)).
			Round(4)
	}

	deltas := make([]CategoryDelta, 0, len(categoryTotals))
	for category, subtotal := range categoryTotals {
		categoryDelta := subtotal
		if category == upstream.CategoryType {
			categoryDelta, err = subtotal.Subtract(upstream.AuthoritativeTotal)
			if err != nil {
				return nil, err
			}
		}
		deltas = append(deltas, CategoryDelta{
			Category:      category,
			ComputedTotal: subtotal,
			Delta:         categoryDelta,
		})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Category < deltas[j].Category })

	return &DiscrepancyReport{
		BaseEntity:         shared.NewBaseEntity(),
		UpstreamInvoiceID:  upstream.ExternalID,
		PeriodStart:        upstream.PeriodStart,
		PeriodEnd:          upstream.PeriodEnd,
		AuthoritativeTotal: upstream.AuthoritativeTotal,
		ComputedTotal:      computed,
		Delta:              delta,
		PercentDelta:       percentDelta,
		Classification:     classify(delta, percentDelta, tolerances),
		CategoryDeltas:     deltas,
		TransactionCount:   len(transactions),
	}, nil
}

// classify buckets the drift. Shortfalls large enough to suggest charges that
// never reached the detail feed classify as upstream-only-suspected; anything
// else outside tolerance needs review.
func classify(delta valueobject.Money, percentDelta decimal.Decimal, tolerances ToleranceConfig) DriftClassification {
	absPercent := percentDelta.Abs()
	if absPercent.LessThanOrEqual(tolerances.TolerancePercent) {
		return DriftWithinTolerance
	}
	if delta.IsNegative() && absPercent.GreaterThanOrEqual(tolerances.UpstreamOnlyPercent) {
		return DriftUpstreamOnlySuspected
	}
	return DriftNeedsReview
}
