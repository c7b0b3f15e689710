package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared/valueobject"
)

// restoreMoney rebuilds a Money value from its persisted amount and currency.
// Rows are only ever written from valid Money values, so an empty currency
// column falls back to the system default rather than failing the read.
func restoreMoney(amount decimal.Decimal, currency string) valueobject.Money {
	if currency == "" {
		currency = string(valueobject.DefaultCurrency)
	}
	m, err := valueobject.NewMoney(amount, valueobject.Currency(currency))
	if err != nil {
		return valueobject.NewMoneyUSD(amount)
	}
	return m
}

// TransactionModel is the persistence model for the Transaction aggregate root.
type TransactionModel struct {
	AggregateModel
	UpstreamID            string              `gorm:"type:varchar(100);not null;uniqueIndex"`
	TenantID              *uuid.UUID          `gorm:"type:uuid;index"`
	FeeCategory           billing.FeeCategory `gorm:"type:varchar(30);not null;index"`
	ReferenceType         billing.ReferenceType
	ReferenceID           string `gorm:"type:varchar(200);index"`
	Memo                  string `gorm:"type:text"`
	Amount                decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency              string          `gorm:"type:varchar(3);not null;default:'USD'"`
	ChargeDate            time.Time       `gorm:"not null;index"`
	UpstreamInvoiceID     *string         `gorm:"type:varchar(100);index"`
	IngestChannelTenantID *uuid.UUID      `gorm:"type:uuid"`
	GeneratedInvoiceID    *uuid.UUID      `gorm:"type:uuid;index"`
	BilledAmount          *decimal.Decimal `gorm:"type:decimal(18,4)"`
	MarkupRuleID          *uuid.UUID       `gorm:"type:uuid"`
	Unattributable        bool             `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "billing_transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *TransactionModel) ToDomain() *billing.Transaction {
	tx := &billing.Transaction{
		BaseAggregateRoot:     m.ToDomainAggregateRoot(),
		UpstreamID:            m.UpstreamID,
		TenantID:              m.TenantID,
		FeeCategory:           m.FeeCategory,
		ReferenceType:         m.ReferenceType,
		ReferenceID:           m.ReferenceID,
		Memo:                  m.Memo,
		Amount:                restoreMoney(m.Amount, m.Currency),
		ChargeDate:            m.ChargeDate,
		UpstreamInvoiceID:     m.UpstreamInvoiceID,
		IngestChannelTenantID: m.IngestChannelTenantID,
		GeneratedInvoiceID:    m.GeneratedInvoiceID,
		MarkupRuleID:          m.MarkupRuleID,
		Unattributable:        m.Unattributable,
	}
	if m.BilledAmount != nil {
		billed := restoreMoney(*m.BilledAmount, m.Currency)
		tx.BilledAmount = &billed
	}
	return tx
}

// FromDomain populates the persistence model from a domain Transaction.
func (m *TransactionModel) FromDomain(tx *billing.Transaction) {
	m.FromDomainAggregateRoot(tx.BaseAggregateRoot)
	m.UpstreamID = tx.UpstreamID
	m.TenantID = tx.TenantID
	m.FeeCategory = tx.FeeCategory
	m.ReferenceType = tx.ReferenceType
	m.ReferenceID = tx.ReferenceID
	m.Memo = tx.Memo
	m.Amount = tx.Amount.Amount()
	m.Currency = string(tx.Amount.Currency())
	m.ChargeDate = tx.ChargeDate
	m.UpstreamInvoiceID = tx.UpstreamInvoiceID
	m.IngestChannelTenantID = tx.IngestChannelTenantID
	m.GeneratedInvoiceID = tx.GeneratedInvoiceID
	m.MarkupRuleID = tx.MarkupRuleID
	m.Unattributable = tx.Unattributable
	if tx.BilledAmount != nil {
		billed := tx.BilledAmount.Amount()
		m.BilledAmount = &billed
	} else {
		m.BilledAmount = nil
	}
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction.
func TransactionModelFromDomain(tx *billing.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(tx)
	return m
}

// RuleConditionRecord is the JSONB shape of an optional rule condition.
type RuleConditionRecord struct {
	MinAmount     *decimal.Decimal       `json:"min_amount,omitempty"`
	MaxAmount     *decimal.Decimal       `json:"max_amount,omitempty"`
	ReferenceType *billing.ReferenceType `json:"reference_type,omitempty"`
}

// Value implements driver.Valuer for JSONB storage
func (r RuleConditionRecord) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB storage
func (r *RuleConditionRecord) Scan(value interface{}) error {
	if value == nil {
		*r = RuleConditionRecord{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan RuleConditionRecord: not bytes")
	}
	return json.Unmarshal(bytes, r)
}

// PricingRuleModel is the persistence model for pricing rules.
type PricingRuleModel struct {
	BaseModel
	TenantID     *uuid.UUID           `gorm:"type:uuid;index"`
	FeeCategory  *billing.FeeCategory `gorm:"type:varchar(30);index"`
	HasCondition bool                 `gorm:"not null;default:false"`
	Condition    RuleConditionRecord  `gorm:"type:jsonb;default:'{}'"`
	RuleType     billing.RuleType     `gorm:"type:varchar(20);not null"`
	Value        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (PricingRuleModel) TableName() string {
	return "pricing_rules"
}

// ToDomain converts the persistence model to a domain PricingRule.
func (m *PricingRuleModel) ToDomain() *billing.PricingRule {
	rule := &billing.PricingRule{
		BaseEntity:  m.BaseModel.ToDomain(),
		TenantID:    m.TenantID,
		FeeCategory: m.FeeCategory,
		RuleType:    m.RuleType,
		Value:       m.Value,
	}
	if m.HasCondition {
		rule.Condition = &billing.RuleCondition{
			MinAmount:     m.Condition.MinAmount,
			MaxAmount:     m.Condition.MaxAmount,
			ReferenceType: m.Condition.ReferenceType,
		}
	}
	return rule
}

// FromDomain populates the persistence model from a domain PricingRule.
func (m *PricingRuleModel) FromDomain(rule *billing.PricingRule) {
	m.FromDomainBaseEntity(rule.BaseEntity)
	m.TenantID = rule.TenantID
	m.FeeCategory = rule.FeeCategory
	m.RuleType = rule.RuleType
	m.Value = rule.Value
	if rule.Condition != nil {
		m.HasCondition = true
		m.Condition = RuleConditionRecord{
			MinAmount:     rule.Condition.MinAmount,
			MaxAmount:     rule.Condition.MaxAmount,
			ReferenceType: rule.Condition.ReferenceType,
		}
	} else {
		m.HasCondition = false
		m.Condition = RuleConditionRecord{}
	}
}

// PricingRuleModelFromDomain creates a new persistence model from a domain PricingRule.
func PricingRuleModelFromDomain(rule *billing.PricingRule) *PricingRuleModel {
	m := &PricingRuleModel{}
	m.FromDomain(rule)
	return m
}

// InvoiceLineRecord is the JSONB shape of one invoice line.
type InvoiceLineRecord struct {
	Category         billing.FeeCategory `json:"category"`
	DisplayName      string              `json:"display_name"`
	TransactionCount int                 `json:"transaction_count"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
}

// InvoiceLineRecords is a slice of InvoiceLineRecord that implements GORM Scanner/Valuer for JSONB storage
type InvoiceLineRecords []InvoiceLineRecord

// Value implements driver.Valuer for JSONB storage
func (l InvoiceLineRecords) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage
func (l *InvoiceLineRecords) Scan(value interface{}) error {
	if value == nil {
		*l = InvoiceLineRecords{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan InvoiceLineRecords: not bytes")
	}
	return json.Unmarshal(bytes, l)
}

// GeneratedInvoiceModel is the persistence model for the GeneratedInvoice
// aggregate root. Line subtotals and the total are rounded to the cent on
// write; full-precision values live only inside a run.
type GeneratedInvoiceModel struct {
	AggregateModel
	TenantID    uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_tenant_period,priority:1"`
	PeriodStart time.Time             `gorm:"not null;uniqueIndex:idx_invoice_tenant_period,priority:2"`
	PeriodEnd   time.Time             `gorm:"not null;uniqueIndex:idx_invoice_tenant_period,priority:3"`
	Lines       InvoiceLineRecords    `gorm:"type:jsonb;default:'[]'"`
	Total       decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency    string                `gorm:"type:varchar(3);not null;default:'USD'"`
	Status      billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ApprovedAt  *time.Time
	SentAt      *time.Time
}

// TableName returns the table name for GORM
func (GeneratedInvoiceModel) TableName() string {
	return "generated_invoices"
}

// ToDomain converts the persistence model to a domain GeneratedInvoice.
func (m *GeneratedInvoiceModel) ToDomain() *billing.GeneratedInvoice {
	lines := make([]billing.InvoiceLine, 0, len(m.Lines))
	for _, l := range m.Lines {
		lines = append(lines, billing.InvoiceLine{
			Category:         l.Category,
			DisplayName:      l.DisplayName,
			TransactionCount: l.TransactionCount,
			Subtotal:         restoreMoney(l.Subtotal, m.Currency),
		})
	}
	return &billing.GeneratedInvoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		TenantID:          m.TenantID,
		PeriodStart:       m.PeriodStart,
		PeriodEnd:         m.PeriodEnd,
		Lines:             lines,
		Total:             restoreMoney(m.Total, m.Currency),
		Status:            m.Status,
		ApprovedAt:        m.ApprovedAt,
		SentAt:            m.SentAt,
	}
}

// FromDomain populates the persistence model from a domain GeneratedInvoice.
func (m *GeneratedInvoiceModel) FromDomain(inv *billing.GeneratedInvoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.TenantID = inv.TenantID
	m.PeriodStart = inv.PeriodStart
	m.PeriodEnd = inv.PeriodEnd
	m.Lines = make(InvoiceLineRecords, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		m.Lines = append(m.Lines, InvoiceLineRecord{
			Category:         l.Category,
			DisplayName:      l.DisplayName,
			TransactionCount: l.TransactionCount,
			Subtotal:         l.Subtotal.RoundToCent().Amount(),
		})
	}
	m.Total = inv.Total.RoundToCent().Amount()
	m.Currency = string(inv.Total.Currency())
	m.Status = inv.Status
	m.ApprovedAt = inv.ApprovedAt
	m.SentAt = inv.SentAt
}

// GeneratedInvoiceModelFromDomain creates a new persistence model from a domain GeneratedInvoice.
func GeneratedInvoiceModelFromDomain(inv *billing.GeneratedInvoice) *GeneratedInvoiceModel {
	m := &GeneratedInvoiceModel{}
	m.FromDomain(inv)
	return m
}

// UpstreamInvoiceModel mirrors the provider's authoritative invoice rows.
// Rows are written by ingestion and read by reconciliation, never modified.
type UpstreamInvoiceModel struct {
	ExternalID         string              `gorm:"type:varchar(100);primary_key"`
	CategoryType       billing.FeeCategory `gorm:"type:varchar(30);not null;index"`
	AuthoritativeTotal decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Currency           string              `gorm:"type:varchar(3);not null;default:'USD'"`
	PeriodStart        time.Time           `gorm:"not null;index"`
	PeriodEnd          time.Time           `gorm:"not null"`
	CreatedAt          time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UpstreamInvoiceModel) TableName() string {
	return "upstream_invoices"
}

// ToDomain converts the persistence model to a domain UpstreamInvoice.
func (m *UpstreamInvoiceModel) ToDomain() billing.UpstreamInvoice {
	return billing.UpstreamInvoice{
		ExternalID:         m.ExternalID,
		CategoryType:       m.CategoryType,
		AuthoritativeTotal: restoreMoney(m.AuthoritativeTotal, m.Currency),
		PeriodStart:        m.PeriodStart,
		PeriodEnd:          m.PeriodEnd,
	}
}

// FromDomain populates the persistence model from a domain UpstreamInvoice.
func (m *UpstreamInvoiceModel) FromDomain(inv billing.UpstreamInvoice) {
	m.ExternalID = inv.ExternalID
	m.CategoryType = inv.CategoryType
	m.AuthoritativeTotal = inv.AuthoritativeTotal.Amount()
	m.Currency = string(inv.AuthoritativeTotal.Currency())
	m.PeriodStart = inv.PeriodStart
	m.PeriodEnd = inv.PeriodEnd
}

// CategoryDeltaRecord is the JSONB shape of one per-category delta.
type CategoryDeltaRecord struct {
	Category      billing.FeeCategory `json:"category"`
	ComputedTotal decimal.Decimal     `json:"computed_total"`
	Delta         decimal.Decimal     `json:"delta"`
}

// CategoryDeltaRecords is a slice of CategoryDeltaRecord that implements GORM Scanner/Valuer for JSONB storage
type CategoryDeltaRecords []CategoryDeltaRecord

// Value implements driver.Valuer for JSONB storage
func (c CategoryDeltaRecords) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage
func (c *CategoryDeltaRecords) Scan(value interface{}) error {
	if value == nil {
		*c = CategoryDeltaRecords{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan CategoryDeltaRecords: not bytes")
	}
	return json.Unmarshal(bytes, c)
}

// DiscrepancyReportModel is the persistence model for reconciliation reports.
type DiscrepancyReportModel struct {
	BaseModel
	UpstreamInvoiceID  string                      `gorm:"type:varchar(100);not null;index"`
	PeriodStart        time.Time                   `gorm:"not null;index"`
	PeriodEnd          time.Time                   `gorm:"not null"`
	AuthoritativeTotal decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	ComputedTotal      decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	Delta              decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	Currency           string                      `gorm:"type:varchar(3);not null;default:'USD'"`
	PercentDelta       decimal.Decimal             `gorm:"type:decimal(10,4);not null"`
	Classification     billing.DriftClassification `gorm:"type:varchar(40);not null;index"`
	CategoryDeltas     CategoryDeltaRecords        `gorm:"type:jsonb;default:'[]'"`
	TransactionCount   int                         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscrepancyReportModel) TableName() string {
	return "discrepancy_reports"
}

// ToDomain converts the persistence model to a domain DiscrepancyReport.
func (m *DiscrepancyReportModel) ToDomain() *billing.DiscrepancyReport {
	deltas := make([]billing.CategoryDelta, 0, len(m.CategoryDeltas))
	for _, d := range m.CategoryDeltas {
		deltas = append(deltas, billing.CategoryDelta{
			Category:      d.Category,
			ComputedTotal: restoreMoney(d.ComputedTotal, m.Currency),
			Delta:         restoreMoney(d.Delta, m.Currency),
		})
	}
	return &billing.DiscrepancyReport{
		BaseEntity:         m.BaseModel.ToDomain(),
		UpstreamInvoiceID:  m.UpstreamInvoiceID,
		PeriodStart:        m.PeriodStart,
		PeriodEnd:          m.PeriodEnd,
		AuthoritativeTotal: restoreMoney(m.AuthoritativeTotal, m.Currency),
		ComputedTotal:      restoreMoney(m.ComputedTotal, m.Currency),
		Delta:              restoreMoney(m.Delta, m.Currency),
		PercentDelta:       m.PercentDelta,
		Classification:     m.Classification,
		CategoryDeltas:     deltas,
		TransactionCount:   m.TransactionCount,
	}
}

// FromDomain populates the persistence model from a domain DiscrepancyReport.
func (m *DiscrepancyReportModel) FromDomain(r *billing.DiscrepancyReport) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.UpstreamInvoiceID = r.UpstreamInvoiceID
	m.PeriodStart = r.PeriodStart
	m.PeriodEnd = r.PeriodEnd
	m.AuthoritativeTotal = r.AuthoritativeTotal.Amount()
	m.ComputedTotal = r.ComputedTotal.Amount()
	m.Delta = r.Delta.Amount()
	m.Currency = string(r.Delta.Currency())
	m.PercentDelta = r.PercentDelta
	m.Classification = r.Classification
	m.TransactionCount = r.TransactionCount
	m.CategoryDeltas = make(CategoryDeltaRecords, 0, len(r.CategoryDeltas))
	for _, d := range r.CategoryDeltas {
		m.CategoryDeltas = append(m.CategoryDeltas, CategoryDeltaRecord{
			Category:      d.Category,
			ComputedTotal: d.ComputedTotal.Amount(),
			Delta:         d.Delta.Amount(),
		})
	}
}

// PendingAttributionModel is the persistence model for the attribution retry queue.
type PendingAttributionModel struct {
	BaseModel
	TransactionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ReferenceID   string    `gorm:"type:varchar(200);not null"`
	Attempts      int       `gorm:"not null;default:0"`
	MaxAttempts   int       `gorm:"not null"`
	NextRetryAt   time.Time `gorm:"not null;index"`
	Exhausted     bool      `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (PendingAttributionModel) TableName() string {
	return "pending_attributions"
}

// ToDomain converts the persistence model to a domain PendingAttribution.
func (m *PendingAttributionModel) ToDomain() *billing.PendingAttribution {
	return &billing.PendingAttribution{
		BaseEntity:    m.BaseModel.ToDomain(),
		TransactionID: m.TransactionID,
		ReferenceID:   m.ReferenceID,
		Attempts:      m.Attempts,
		MaxAttempts:   m.MaxAttempts,
		NextRetryAt:   m.NextRetryAt,
		Exhausted:     m.Exhausted,
	}
}

// FromDomain populates the persistence model from a domain PendingAttribution.
func (m *PendingAttributionModel) FromDomain(p *billing.PendingAttribution) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.TransactionID = p.TransactionID
	m.ReferenceID = p.ReferenceID
	m.Attempts = p.Attempts
	m.MaxAttempts = p.MaxAttempts
	m.NextRetryAt = p.NextRetryAt
	m.Exhausted = p.Exhausted
}

// RunReportModel is the persistence model for pipeline run reports.
type RunReportModel struct {
	BaseModel
	PeriodStart      time.Time `gorm:"not null;index"`
	PeriodEnd        time.Time `gorm:"not null"`
	StartedAt        time.Time `gorm:"not null"`
	FinishedAt       time.Time `gorm:"not null"`
	Ingested         int       `gorm:"not null;default:0"`
	Malformed        int       `gorm:"not null;default:0"`
	Attributed       int       `gorm:"not null;default:0"`
	PendingRetry     int       `gorm:"not null;default:0"`
	Unattributable   int       `gorm:"not null;default:0"`
	Priced           int       `gorm:"not null;default:0"`
	UnconfiguredRate int       `gorm:"not null;default:0"`
	AmbiguousRule    int       `gorm:"not null;default:0"`
	Claimed          int       `gorm:"not null;default:0"`
	InvoicesCreated  int       `gorm:"not null;default:0"`
	Drifted          int       `gorm:"not null;default:0"`
	ReportsWritten   int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (RunReportModel) TableName() string {
	return "run_reports"
}

// ToDomain converts the persistence model to a domain RunReport.
func (m *RunReportModel) ToDomain() *billing.RunReport {
	return &billing.RunReport{
		BaseEntity:  m.BaseModel.ToDomain(),
		PeriodStart: m.PeriodStart,
		PeriodEnd:   m.PeriodEnd,
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		Summary: billing.RunSummary{
			Ingested:         m.Ingested,
			Malformed:        m.Malformed,
			Attributed:       m.Attributed,
			PendingRetry:     m.PendingRetry,
			Unattributable:   m.Unattributable,
			Priced:           m.Priced,
			UnconfiguredRate: m.UnconfiguredRate,
			AmbiguousRule:    m.AmbiguousRule,
			Claimed:          m.Claimed,
			InvoicesCreated:  m.InvoicesCreated,
			Drifted:          m.Drifted,
			ReportsWritten:   m.ReportsWritten,
		},
	}
}

// FromDomain populates the persistence model from a domain RunReport.
func (m *RunReportModel) FromDomain(r *billing.RunReport) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.PeriodStart = r.PeriodStart
	m.PeriodEnd = r.PeriodEnd
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
	m.Ingested = r.Summary.Ingested
	m.Malformed = r.Summary.Malformed
	m.Attributed = r.Summary.Attributed
	m.PendingRetry = r.Summary.PendingRetry
	m.Unattributable = r.Summary.Unattributable
	m.Priced = r.Summary.Priced
	m.UnconfiguredRate = r.Summary.UnconfiguredRate
	m.AmbiguousRule = r.Summary.AmbiguousRule
	m.Claimed = r.Summary.Claimed
	m.InvoicesCreated = r.Summary.InvoicesCreated
	m.Drifted = r.Summary.Drifted
	m.ReportsWritten = r.Summary.ReportsWritten
}

// TenantModel is the persistence model for billed tenants.
type TenantModel struct {
	BaseModel
	Name              string `gorm:"type:varchar(200);not null"`
	ExternalAccountID string `gorm:"type:varchar(100);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant.
func (m *TenantModel) ToDomain() *billing.Tenant {
	return &billing.Tenant{
		BaseEntity:        m.BaseModel.ToDomain(),
		Name:              m.Name,
		ExternalAccountID: m.ExternalAccountID,
	}
}

// FromDomain populates the persistence model from a domain Tenant.
func (m *TenantModel) FromDomain(t *billing.Tenant) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.Name = t.Name
	m.ExternalAccountID = t.ExternalAccountID
}

// OwnedEntityModel mirrors entities owned by tenants upstream. The external
// sync subsystem writes these rows; billing only reads them.
type OwnedEntityModel struct {
	ID             string                  `gorm:"type:varchar(200);primary_key"`
	Kind           billing.OwnedEntityKind `gorm:"type:varchar(30);primary_key"`
	TenantID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	OrderReference string                  `gorm:"type:varchar(100);index"`
	CreatedAt      time.Time               `gorm:"not null"`
	UpdatedAt      time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OwnedEntityModel) TableName() string {
	return "owned_entities"
}

// ToDomain converts the persistence model to a domain OwnedEntity.
func (m *OwnedEntityModel) ToDomain() billing.OwnedEntity {
	return billing.OwnedEntity{
		ID:             m.ID,
		Kind:           m.Kind,
		TenantID:       m.TenantID,
		OrderReference: m.OrderReference,
	}
}
