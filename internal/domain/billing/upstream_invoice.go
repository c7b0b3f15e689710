package billing

import (
	"time"

	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

// UpstreamInvoice is the provider's own invoice for a period: an external id,
// a fee category, and an authoritative total. Aggregate totals stay queryable
// upstream indefinitely even after per-charge detail ages out, so these rows
// anchor reconciliation. They are read-only here and are never used for
// attribution or pricing.
type UpstreamInvoice struct {
	ExternalID         string
	CategoryType       FeeCategory
	AuthoritativeTotal valueobject.Money
	PeriodStart        time.Time
	PeriodEnd          time.Time
}
