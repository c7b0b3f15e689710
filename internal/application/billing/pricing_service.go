package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
)

// PricingService prices attributed transactions against a frozen rule set.
// The snapshot is taken once per pass, so rule edits made mid-run never mix
// two rule sets inside one batch.
type PricingService struct {
	transactionRepo billing.TransactionRepository
	ruleRepo        billing.PricingRuleRepository
	batchSize       int
	logger          *zap.Logger
}

// NewPricingService creates a PricingService
func NewPricingService(
	transactionRepo billing.TransactionRepository,
	ruleRepo billing.PricingRuleRepository,
	batchSize int,
	logger *zap.Logger,
) *PricingService {
	return &PricingService{
		transactionRepo: transactionRepo,
		ruleRepo:        ruleRepo,
		batchSize:       batchSize,
		logger:          logger,
	}
}

// PriceUnpriced computes billed amounts for one batch of attributed,
// unpriced transactions. Unconfigured rates bill at cost and ambiguous rule
// matches resolve deterministically; both are surfaced as warnings, never as
// failures.
func (s *PricingService) PriceUnpriced(ctx context.Context) (billing.RunSummary, error) {
	var summary billing.RunSummary

	snapshot, err := s.ruleRepo.Snapshot(ctx)
	if err != nil {
		return summary, err
	}

	transactions, err := s.transactionRepo.FindUnpriced(ctx, s.batchSize)
	if err != nil {
		return summary, err
	}

	for _, tx := range transactions {
		outcome := billing.Evaluate(tx, snapshot)
		if err := tx.SetBilledAmount(outcome.BilledAmount, outcome.RuleID); err != nil {
			return summary, err
		}
		if err := s.transactionRepo.Save(ctx, tx); err != nil {
			return summary, err
		}
		summary.Priced++

		switch outcome.Warning {
		case billing.PricingWarningUnconfiguredRate:
			summary.UnconfiguredRate++
			s.logger.Warn("No pricing rule matched, billing at cost",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("fee_category", string(tx.FeeCategory)))
		case billing.PricingWarningRuleAmbiguity:
			summary.AmbiguousRule++
			s.logger.Warn("Pricing rules tied in specificity",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("rule_id", outcome.RuleID.String()))
		}
	}

	s.logger.Info("Pricing pass complete",
		zap.Int("priced", summary.Priced),
		zap.Int("unconfigured_rate", summary.UnconfiguredRate),
		zap.Int("ambiguous_rule", summary.AmbiguousRule),
		zap.Time("snapshot_taken_at", snapshot.TakenAt))

	return summary, nil
}
