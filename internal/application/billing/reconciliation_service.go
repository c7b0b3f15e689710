package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
)

// ReconciliationService compares locally summed transactions against the
// provider's authoritative invoice totals and writes discrepancy reports.
// Strictly advisory: it never adjusts billed amounts, since silently
// correcting drift would mask genuine upstream inconsistencies.
type ReconciliationService struct {
	upstreamRepo    billing.UpstreamInvoiceRepository
	transactionRepo billing.TransactionRepository
	reportRepo      billing.DiscrepancyReportRepository
	tolerances      billing.ToleranceConfig
	logger          *zap.Logger
}

// NewReconciliationService creates a ReconciliationService
func NewReconciliationService(
	upstreamRepo billing.UpstreamInvoiceRepository,
	transactionRepo billing.TransactionRepository,
	reportRepo billing.DiscrepancyReportRepository,
	tolerances billing.ToleranceConfig,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		upstreamRepo:    upstreamRepo,
		transactionRepo: transactionRepo,
		reportRepo:      reportRepo,
		tolerances:      tolerances,
		logger:          logger,
	}
}

// Reconcile validates every upstream invoice overlapping the period and
// persists one discrepancy report per invoice, drifted or not. A report with
// zero transactions and a non-zero authoritative total is the signature of
// detail that aged out of the feed's retention window.
func (s *ReconciliationService) Reconcile(ctx context.Context, period billing.BillingPeriod) ([]*billing.DiscrepancyReport, billing.RunSummary, error) {
	var summary billing.RunSummary

	upstreamInvoices, err := s.upstreamRepo.FindByPeriod(ctx, period)
	if err != nil {
		return nil, summary, err
	}

	reports := make([]*billing.DiscrepancyReport, 0, len(upstreamInvoices))
	for _, upstream := range upstreamInvoices {
		transactions, err := s.transactionRepo.FindByUpstreamInvoiceID(ctx, upstream.ExternalID)
		if err != nil {
			return reports, summary, err
		}

		report, err := billing.Compare(upstream, transactions, s.tolerances)
		if err != nil {
			return reports, summary, err
		}

		if err := s.reportRepo.Save(ctx, report); err != nil {
			return reports, summary, err
		}
		reports = append(reports, report)
		summary.ReportsWritten++

		if report.Classification != billing.DriftWithinTolerance {
			summary.Drifted++
			s.logger.Warn("Reconciliation drift detected",
				zap.String("upstream_invoice_id", report.UpstreamInvoiceID),
				zap.String("classification", string(report.Classification)),
				zap.String("authoritative_total", report.AuthoritativeTotal.Amount().String()),
				zap.String("computed_total", report.ComputedTotal.Amount().String()),
				zap.String("delta", report.Delta.Amount().String()),
				zap.String("percent_delta", report.PercentDelta.String()),
				zap.Int("transaction_count", report.TransactionCount))
		}
	}

	s.logger.Info("Reconciliation pass complete",
		zap.String("period", period.Key()),
		zap.Int("reports", summary.ReportsWritten),
		zap.Int("drifted", summary.Drifted))

	return reports, summary, nil
}
