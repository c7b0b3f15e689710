package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
)

// mockTransactionRepo is a mock implementation of billing.TransactionRepository
type mockTransactionRepo struct {
	mock.Mock
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindByUpstreamID(ctx context.Context, upstreamID string) (*billing.Transaction, error) {
	args := m.Called(ctx, upstreamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) Save(ctx context.Context, tx *billing.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactionRepo) FindUnattributed(ctx context.Context, limit int) ([]*billing.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindUnpriced(ctx context.Context, limit int) ([]*billing.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindClaimable(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod) ([]*billing.Transaction, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindByUpstreamInvoiceID(ctx context.Context, upstreamInvoiceID string) ([]*billing.Transaction, error) {
	args := m.Called(ctx, upstreamInvoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindByGeneratedInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Transaction, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) ClaimForInvoice(ctx context.Context, invoiceID uuid.UUID, transactionIDs []uuid.UUID) error {
	args := m.Called(ctx, invoiceID, transactionIDs)
	return args.Error(0)
}

func (m *mockTransactionRepo) ResetBilling(ctx context.Context, transactionIDs []uuid.UUID) error {
	args := m.Called(ctx, transactionIDs)
	return args.Error(0)
}

// mockPendingRepo is a mock implementation of billing.PendingAttributionRepository
type mockPendingRepo struct {
	mock.Mock
}

func (m *mockPendingRepo) Save(ctx context.Context, pending *billing.PendingAttribution) error {
	args := m.Called(ctx, pending)
	return args.Error(0)
}

func (m *mockPendingRepo) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*billing.PendingAttribution, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PendingAttribution), args.Error(1)
}

func (m *mockPendingRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*billing.PendingAttribution, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.PendingAttribution), args.Error(1)
}

func (m *mockPendingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// mockRuleRepo is a mock implementation of billing.PricingRuleRepository
type mockRuleRepo struct {
	mock.Mock
}

func (m *mockRuleRepo) Snapshot(ctx context.Context) (*billing.RuleSetSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.RuleSetSnapshot), args.Error(1)
}

func (m *mockRuleRepo) Save(ctx context.Context, rule *billing.PricingRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

// mockInvoiceRepo is a mock implementation of billing.GeneratedInvoiceRepository
type mockInvoiceRepo struct {
	mock.Mock
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.GeneratedInvoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GeneratedInvoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindByTenantPeriod(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod) (*billing.GeneratedInvoice, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GeneratedInvoice), args.Error(1)
}

func (m *mockInvoiceRepo) Save(ctx context.Context, invoice *billing.GeneratedInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// mockUpstreamInvoiceRepo is a mock implementation of billing.UpstreamInvoiceRepository
type mockUpstreamInvoiceRepo struct {
	mock.Mock
}

func (m *mockUpstreamInvoiceRepo) FindByPeriod(ctx context.Context, period billing.BillingPeriod) ([]billing.UpstreamInvoice, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.UpstreamInvoice), args.Error(1)
}

func (m *mockUpstreamInvoiceRepo) Save(ctx context.Context, invoice *billing.UpstreamInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// mockReportRepo is a mock implementation of billing.DiscrepancyReportRepository
type mockReportRepo struct {
	mock.Mock
}

func (m *mockReportRepo) Save(ctx context.Context, report *billing.DiscrepancyReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *mockReportRepo) FindByPeriod(ctx context.Context, period billing.BillingPeriod) ([]billing.DiscrepancyReport, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.DiscrepancyReport), args.Error(1)
}

// mockRunReportRepo is a mock implementation of billing.RunReportRepository
type mockRunReportRepo struct {
	mock.Mock
}

func (m *mockRunReportRepo) Save(ctx context.Context, report *billing.RunReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// mockTenantRepo is a mock implementation of billing.TenantRepository
type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Tenant), args.Error(1)
}

func (m *mockTenantRepo) FindByExternalAccountID(ctx context.Context, accountID string) (*billing.Tenant, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Tenant), args.Error(1)
}

func (m *mockTenantRepo) FindAll(ctx context.Context) ([]billing.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Tenant), args.Error(1)
}

// mockAuditRepo is a mock implementation of shared.AuditRepository
type mockAuditRepo struct {
	mock.Mock
}

func (m *mockAuditRepo) Save(ctx context.Context, record *shared.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockAuditRepo) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]shared.AuditRecord, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shared.AuditRecord), args.Error(1)
}

// mockOwnedEntityLookup is a mock implementation of billing.OwnedEntityLookup
type mockOwnedEntityLookup struct {
	mock.Mock
}

func (m *mockOwnedEntityLookup) ShipmentTenant(ctx context.Context, shipmentID string) (uuid.UUID, error) {
	args := m.Called(ctx, shipmentID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockOwnedEntityLookup) InventoryItemTenant(ctx context.Context, itemID string) (uuid.UUID, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockOwnedEntityLookup) OrderTenant(ctx context.Context, orderReference string) (uuid.UUID, error) {
	args := m.Called(ctx, orderReference)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// mockAssemblyLock is a mock implementation of billing.AssemblyLock
type mockAssemblyLock struct {
	mock.Mock
}

func (m *mockAssemblyLock) Acquire(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, tenantID, period, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockAssemblyLock) Release(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod) error {
	args := m.Called(ctx, tenantID, period)
	return args.Error(0)
}
