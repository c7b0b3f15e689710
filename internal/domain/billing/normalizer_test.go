package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

func validRawRecord() RawChargeRecord {
	return RawChargeRecord{
		UpstreamID:        "chg-20250310-001",
		FeeCategory:       "shipping",
		Amount:            "10.00",
		ChargeDate:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		ReferenceID:       "ship-55812",
		UpstreamInvoiceID: "INV-2025-03",
	}
}

func TestNormalizerNormalize(t *testing.T) {
	normalizer := NewNormalizer()

	t.Run("normalizes a valid record", func(t *testing.T) {
		tx, err := normalizer.Normalize(validRawRecord())
		require.NoError(t, err)

		assert.Equal(t, "chg-20250310-001", tx.UpstreamID)
		assert.Equal(t, FeeCategoryShipping, tx.FeeCategory)
		assert.Equal(t, ReferenceTypeShipment, tx.ReferenceType)
		assert.Equal(t, "ship-55812", tx.ReferenceID)
		require.NotNil(t, tx.UpstreamInvoiceID)
		assert.Equal(t, "INV-2025-03", *tx.UpstreamInvoiceID)
		assert.Equal(t, "10.00 USD", tx.Amount.String())
		assert.Nil(t, tx.TenantID)
		assert.Nil(t, tx.BilledAmount)
		assert.Nil(t, tx.GeneratedInvoiceID)
	})

	t.Run("defaults currency to USD", func(t *testing.T) {
		raw := validRawRecord()
		raw.Currency = ""
		tx, err := normalizer.Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, valueobject.USD, tx.Amount.Currency())
	})

	t.Run("missing amount is malformed", func(t *testing.T) {
		raw := validRawRecord()
		raw.Amount = ""
		_, err := normalizer.Normalize(raw)
		assert.ErrorIs(t, err, shared.ErrMalformedRecord)
	})

	t.Run("unparseable amount is malformed", func(t *testing.T) {
		raw := validRawRecord()
		raw.Amount = "ten dollars"
		_, err := normalizer.Normalize(raw)
		assert.ErrorIs(t, err, shared.ErrMalformedRecord)
	})

	t.Run("missing category is malformed", func(t *testing.T) {
		raw := validRawRecord()
		raw.FeeCategory = ""
		_, err := normalizer.Normalize(raw)
		assert.ErrorIs(t, err, shared.ErrMalformedRecord)
	})

	t.Run("missing upstream id is malformed", func(t *testing.T) {
		raw := validRawRecord()
		raw.UpstreamID = ""
		_, err := normalizer.Normalize(raw)
		assert.ErrorIs(t, err, shared.ErrMalformedRecord)
	})

	t.Run("unknown category maps to other", func(t *testing.T) {
		raw := validRawRecord()
		raw.FeeCategory = "brand_new_surcharge"
		tx, err := normalizer.Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, FeeCategoryOther, tx.FeeCategory)
		assert.Equal(t, ReferenceTypeOther, tx.ReferenceType)
	})

	t.Run("negative amounts are preserved", func(t *testing.T) {
		raw := validRawRecord()
		raw.FeeCategory = "credit"
		raw.Amount = "-4.25"
		tx, err := normalizer.Normalize(raw)
		require.NoError(t, err)
		assert.True(t, tx.Amount.IsNegative())
		assert.Equal(t, FeeCategoryAdjustment, tx.FeeCategory)
	})

	t.Run("carries tenant-scoped channel", func(t *testing.T) {
		tenantID := uuid.New()
		raw := validRawRecord()
		raw.FeeCategory = "receiving"
		raw.ChannelTenantID = &tenantID
		tx, err := normalizer.Normalize(raw)
		require.NoError(t, err)
		require.NotNil(t, tx.IngestChannelTenantID)
		assert.Equal(t, tenantID, *tx.IngestChannelTenantID)
	})
}
