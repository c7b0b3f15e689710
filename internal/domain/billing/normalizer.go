package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

// RawChargeRecord is the loosely-typed per-charge row as the upstream feed
// delivers it. Validation runs before any field is interpreted; a record that
// fails validation is a MalformedRecord and is excluded, never silently
// dropped.
type RawChargeRecord struct {
	UpstreamID        string     `json:"upstream_id" validate:"required"`
	FeeCategory       string     `json:"fee_category" validate:"required"`
	Amount            string     `json:"amount" validate:"required"`
	Currency          string     `json:"currency"`
	ChargeDate        time.Time  `json:"charge_date" validate:"required"`
	ReferenceID       string     `json:"reference_id"`
	Memo              string     `json:"memo"`
	UpstreamInvoiceID string     `json:"upstream_invoice_id"`
	ChannelTenantID   *uuid.UUID `json:"channel_tenant_id"`
}

// Normalizer maps raw upstream charge records into the closed Transaction
// shape. It owns the only place upstream vocabulary is interpreted.
type Normalizer struct {
	validate *validator.Validate
}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{
		validate: validator.New(),
	}
}

// Normalize converts a raw charge record into a Transaction.
// Returns shared.ErrMalformedRecord (wrapped) when the amount or the category
// used to infer the reference type is missing or unparseable.
func (n *Normalizer) Normalize(raw RawChargeRecord) (*Transaction, error) {
	if err := n.validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrMalformedRecord, err.Error())
	}

	category, ok := ParseUpstreamCategory(raw.FeeCategory)
	if !ok {
		return nil, fmt.Errorf("%w: empty fee category on record %s", shared.ErrMalformedRecord, raw.UpstreamID)
	}

	referenceType, ok := ReferenceTypeFor(category)
	if !ok {
		return nil, fmt.Errorf("%w: no reference type for category %s on record %s", shared.ErrMalformedRecord, category, raw.UpstreamID)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(raw.Amount))
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable amount %q on record %s", shared.ErrMalformedRecord, raw.Amount, raw.UpstreamID)
	}

	currency := valueobject.Currency(strings.ToUpper(strings.TrimSpace(raw.Currency)))
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	money, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrMalformedRecord, err.Error())
	}

	tx := &Transaction{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(),
		UpstreamID:            strings.TrimSpace(raw.UpstreamID),
		FeeCategory:           category,
		ReferenceType:         referenceType,
		ReferenceID:           strings.TrimSpace(raw.ReferenceID),
		Memo:                  raw.Memo,
		Amount:                money,
		ChargeDate:            raw.ChargeDate,
		IngestChannelTenantID: raw.ChannelTenantID,
	}
	if id := strings.TrimSpace(raw.UpstreamInvoiceID); id != "" {
		tx.UpstreamInvoiceID = &id
	}
	return tx, nil
}

// normalizeCategoryKey canonicalizes a raw category string for vocabulary lookup
func normalizeCategoryKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
