package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

func usd(amount string) valueobject.Money {
	return valueobject.NewMoneyUSD(decimal.RequireFromString(amount))
}

func newShipmentTransaction(amount string) *billing.Transaction {
	return &billing.Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UpstreamID:        "chg_" + uuid.NewString()[:8],
		FeeCategory:       billing.FeeCategoryShipping,
		ReferenceType:     billing.ReferenceTypeShipment,
		ReferenceID:       "ship_" + uuid.NewString()[:8],
		Amount:            usd(amount),
		ChargeDate:        time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
	}
}

func newBillableTransaction(tenantID uuid.UUID, amount, billed string) *billing.Transaction {
	tx := newShipmentTransaction(amount)
	tx.TenantID = &tenantID
	billedAmount := usd(billed)
	tx.BilledAmount = &billedAmount
	return tx
}

func julyPeriod() billing.BillingPeriod {
	return billing.BillingPeriod{
		Start: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}
