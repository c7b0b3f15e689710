package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
	"github.com/warebill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransactionRepository implements billing.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a transaction by internal id
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUpstreamID finds a transaction by its stable upstream id
func (r *GormTransactionRepository) FindByUpstreamID(ctx context.Context, upstreamID string) (*billing.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("upstream_id = ?", upstreamID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a transaction
func (r *GormTransactionRepository) Save(ctx context.Context, tx *billing.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindUnattributed returns transactions with no tenant that are not yet
// marked unattributable
func (r *GormTransactionRepository) FindUnattributed(ctx context.Context, limit int) ([]*billing.Transaction, error) {
	var modelList []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id IS NULL AND unattributable = ?", false).
		Order("charge_date ASC").
		Limit(limit).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(modelList), nil
}

// FindUnpriced returns attributed transactions with no billed amount
func (r *GormTransactionRepository) FindUnpriced(ctx context.Context, limit int) ([]*billing.Transaction, error) {
	var modelList []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id IS NOT NULL AND billed_amount IS NULL").
		Order("charge_date ASC").
		Limit(limit).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(modelList), nil
}

// FindClaimable returns the tenant's attributed and priced transactions in
// the period that no invoice has claimed. A period carrying upstream invoice
// ids further restricts the window to charges on those invoices.
func (r *GormTransactionRepository) FindClaimable(ctx context.Context, tenantID uuid.UUID, period billing.BillingPeriod) ([]*billing.Transaction, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("billed_amount IS NOT NULL").
		Where("generated_invoice_id IS NULL").
		Where("charge_date >= ? AND charge_date < ?", period.Start, period.End)
	if len(period.UpstreamInvoiceIDs) > 0 {
		query = query.Where("upstream_invoice_id IN ?", period.UpstreamInvoiceIDs)
	}

	var modelList []models.TransactionModel
	if err := query.Order("charge_date ASC").Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(modelList), nil
}

// FindByUpstreamInvoiceID returns all transactions carrying the upstream invoice id
func (r *GormTransactionRepository) FindByUpstreamInvoiceID(ctx context.Context, upstreamInvoiceID string) ([]*billing.Transaction, error) {
	var modelList []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("upstream_invoice_id = ?", upstreamInvoiceID).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(modelList), nil
}

// FindByGeneratedInvoiceID returns all transactions claimed by an invoice
func (r *GormTransactionRepository) FindByGeneratedInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]*billing.Transaction, error) {
	var modelList []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("generated_invoice_id = ?", invoiceID).
		Find(&modelList).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(modelList), nil
}

// ClaimForInvoice atomically stamps generated_invoice_id on the given
// transactions. The update is guarded by generated_invoice_id IS NULL, so a
// row claimed by a concurrent assembler makes the affected-rows count fall
// short and the whole claim rolls back with shared.ErrClaimConflict.
func (r *GormTransactionRepository) ClaimForInvoice(ctx context.Context, invoiceID uuid.UUID, transactionIDs []uuid.UUID) error {
	if len(transactionIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TransactionModel{}).
			Where("id IN ?", transactionIDs).
			Where("generated_invoice_id IS NULL").
			Update("generated_invoice_id", invoiceID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(transactionIDs)) {
			return fmt.Errorf("%w: claimed %d of %d transactions",
				shared.ErrClaimConflict, result.RowsAffected, len(transactionIDs))
		}
		return nil
	})
}

// ResetBilling clears generated_invoice_id, billed_amount and markup_rule_id
// for the given transactions. Administrative use only.
func (r *GormTransactionRepository) ResetBilling(ctx context.Context, transactionIDs []uuid.UUID) error {
	if len(transactionIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("id IN ?", transactionIDs).
		Updates(map[string]interface{}{
			"generated_invoice_id": nil,
			"billed_amount":        nil,
			"markup_rule_id":       nil,
		}).Error
}

func toDomainTransactions(modelList []models.TransactionModel) []*billing.Transaction {
	transactions := make([]*billing.Transaction, 0, len(modelList))
	for i := range modelList {
		transactions = append(transactions, modelList[i].ToDomain())
	}
	return transactions
}
