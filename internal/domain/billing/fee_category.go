package billing

// FeeCategory is the closed internal vocabulary for upstream charge categories.
// Raw upstream category strings are translated into this set at the Normalizer
// boundary; all downstream logic operates only on these values.
type FeeCategory string

const (
	FeeCategoryShipping   FeeCategory = "SHIPPING"    // Outbound shipping and postage
	FeeCategoryPickPack   FeeCategory = "PICK_PACK"   // Per-unit fulfillment handling
	FeeCategoryStorage    FeeCategory = "STORAGE"     // Warehouse storage by location
	FeeCategoryReceiving  FeeCategory = "RECEIVING"   // Inbound warehouse receiving
	FeeCategoryReturns    FeeCategory = "RETURNS"     // Returns processing
	FeeCategoryAdjustment FeeCategory = "ADJUSTMENT"  // Credits, reversals, manual corrections
	FeeCategoryOther      FeeCategory = "OTHER"       // Anything outside the known vocabulary
)

// IsValid checks if the category is a valid FeeCategory
func (c FeeCategory) IsValid() bool {
	switch c {
	case FeeCategoryShipping, FeeCategoryPickPack, FeeCategoryStorage,
		FeeCategoryReceiving, FeeCategoryReturns, FeeCategoryAdjustment, FeeCategoryOther:
		return true
	}
	return false
}

// String returns the string representation
func (c FeeCategory) String() string {
	return string(c)
}

// DisplayName returns the invoice line label for the category
func (c FeeCategory) DisplayName() string {
	switch c {
	case FeeCategoryShipping:
		return "Shipping"
	case FeeCategoryPickPack:
		return "Pick & Pack"
	case FeeCategoryStorage:
		return "Storage"
	case FeeCategoryReceiving:
		return "Receiving"
	case FeeCategoryReturns:
		return "Returns Processing"
	case FeeCategoryAdjustment:
		return "Adjustments"
	default:
		return "Other"
	}
}

// AllFeeCategories returns all valid fee categories
func AllFeeCategories() []FeeCategory {
	return []FeeCategory{
		FeeCategoryShipping,
		FeeCategoryPickPack,
		FeeCategoryStorage,
		FeeCategoryReceiving,
		FeeCategoryReturns,
		FeeCategoryAdjustment,
		FeeCategoryOther,
	}
}

// ReferenceType indicates which owned entity an upstream charge relates to.
// It determines the attribution strategy chain applied to the transaction.
type ReferenceType string

const (
	ReferenceTypeShipment           ReferenceType = "SHIPMENT"
	ReferenceTypeWarehouseReceiving ReferenceType = "WAREHOUSE_RECEIVING"
	ReferenceTypeStorageLocation    ReferenceType = "STORAGE_LOCATION"
	ReferenceTypeReturn             ReferenceType = "RETURN"
	ReferenceTypeOther              ReferenceType = "OTHER"
)

// IsValid checks if the reference type is valid
func (t ReferenceType) IsValid() bool {
	switch t {
	case ReferenceTypeShipment, ReferenceTypeWarehouseReceiving,
		ReferenceTypeStorageLocation, ReferenceTypeReturn, ReferenceTypeOther:
		return true
	}
	return false
}

// String returns the string representation
func (t ReferenceType) String() string {
	return string(t)
}

// categoryReferenceTypes is the closed fee-category to reference-type table
// used by the Normalizer to infer how a charge should be attributed.
var categoryReferenceTypes = map[FeeCategory]ReferenceType{
	FeeCategoryShipping:   ReferenceTypeShipment,
	FeeCategoryPickPack:   ReferenceTypeShipment,
	FeeCategoryStorage:    ReferenceTypeStorageLocation,
	FeeCategoryReceiving:  ReferenceTypeWarehouseReceiving,
	FeeCategoryReturns:    ReferenceTypeReturn,
	FeeCategoryAdjustment: ReferenceTypeOther,
	FeeCategoryOther:      ReferenceTypeOther,
}

// ReferenceTypeFor returns the reference type inferred for a fee category
func ReferenceTypeFor(category FeeCategory) (ReferenceType, bool) {
	rt, ok := categoryReferenceTypes[category]
	return rt, ok
}

// upstreamCategoryVocabulary translates raw upstream category strings into the
// closed FeeCategory set. Upstream vocabulary drift is isolated to this table.
var upstreamCategoryVocabulary = map[string]FeeCategory{
	"shipping":           FeeCategoryShipping,
	"postage":            FeeCategoryShipping,
	"fulfillment":        FeeCategoryPickPack,
	"pick_pack":          FeeCategoryPickPack,
	"pick and pack":      FeeCategoryPickPack,
	"storage":            FeeCategoryStorage,
	"monthly_storage":    FeeCategoryStorage,
	"receiving":          FeeCategoryReceiving,
	"inbound":            FeeCategoryReceiving,
	"warehouse_receiving": FeeCategoryReceiving,
	"returns":            FeeCategoryReturns,
	"return_processing":  FeeCategoryReturns,
	"adjustment":         FeeCategoryAdjustment,
	"credit":             FeeCategoryAdjustment,
}

// ParseUpstreamCategory maps a raw upstream category string to the internal
// enum. Unknown but non-empty categories map to FeeCategoryOther so a new
// upstream fee type never aborts ingestion.
func ParseUpstreamCategory(raw string) (FeeCategory, bool) {
	if raw == "" {
		return "", false
	}
	if c, ok := upstreamCategoryVocabulary[normalizeCategoryKey(raw)]; ok {
		return c, true
	}
	return FeeCategoryOther, true
}
