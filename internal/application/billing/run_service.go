package billing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
)

// IngestionCounters exposes the counters ingestion accumulated since the
// last run
type IngestionCounters interface {
	DrainSummary() billing.RunSummary
}

// AttributionStage runs the attribution passes of a pipeline run
type AttributionStage interface {
	ProcessUnattributed(ctx context.Context) (billing.RunSummary, error)
	ProcessRetryQueue(ctx context.Context, now time.Time) (billing.RunSummary, error)
}

// PricingStage runs the pricing pass of a pipeline run
type PricingStage interface {
	PriceUnpriced(ctx context.Context) (billing.RunSummary, error)
}

// AssemblyStage runs the assembly pass of a pipeline run
type AssemblyStage interface {
	AssembleAll(ctx context.Context, period billing.BillingPeriod) (billing.RunSummary, error)
}

// ReconciliationStage runs the reconciliation pass of a pipeline run
type ReconciliationStage interface {
	Reconcile(ctx context.Context, period billing.BillingPeriod) ([]*billing.DiscrepancyReport, billing.RunSummary, error)
}

// RunService orchestrates one end-to-end pipeline run over a billing period:
// retry-queue attribution, fresh attribution, pricing, assembly and
// reconciliation, in that order. Every run persists a report with the full
// triage counter set.
type RunService struct {
	ingestion      IngestionCounters
	attribution    AttributionStage
	pricing        PricingStage
	assembly       AssemblyStage
	reconciliation ReconciliationStage
	reportRepo     billing.RunReportRepository
	logger         *zap.Logger
}

// NewRunService creates a RunService
func NewRunService(
	ingestion IngestionCounters,
	attribution AttributionStage,
	pricing PricingStage,
	assembly AssemblyStage,
	reconciliation ReconciliationStage,
	reportRepo billing.RunReportRepository,
	logger *zap.Logger,
) *RunService {
	return &RunService{
		ingestion:      ingestion,
		attribution:    attribution,
		pricing:        pricing,
		assembly:       assembly,
		reconciliation: reconciliation,
		reportRepo:     reportRepo,
		logger:         logger,
	}
}

// Run executes the pipeline for the period. A stage failure aborts the run
// but still persists a report covering the stages that completed; partial
// progress is durable and the next run picks up where this one stopped.
func (s *RunService) Run(ctx context.Context, period billing.BillingPeriod) (*billing.RunReport, error) {
	startedAt := time.Now()
	summary := s.ingestion.DrainSummary()

	s.logger.Info("Pipeline run started",
		zap.String("period", period.Key()),
		zap.Int("ingested", summary.Ingested),
		zap.Int("malformed", summary.Malformed))

	runErr := s.runStages(ctx, period, &summary)

	report := billing.NewRunReport(period, startedAt, time.Now(), summary)
	if err := s.reportRepo.Save(ctx, report); err != nil {
		s.logger.Error("Failed to persist run report", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	if runErr != nil {
		s.logger.Error("Pipeline run failed",
			zap.String("period", period.Key()),
			zap.Error(runErr))
		return report, runErr
	}

	s.logger.Info("Pipeline run complete",
		zap.String("period", period.Key()),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
		zap.Int("attributed", summary.Attributed),
		zap.Int("pending_retry", summary.PendingRetry),
		zap.Int("unattributable", summary.Unattributable),
		zap.Int("priced", summary.Priced),
		zap.Int("claimed", summary.Claimed),
		zap.Int("invoices_created", summary.InvoicesCreated),
		zap.Int("drifted", summary.Drifted))

	return report, nil
}

// runStages executes the pipeline stages in order, accumulating counters
func (s *RunService) runStages(ctx context.Context, period billing.BillingPeriod, summary *billing.RunSummary) error {
	retrySummary, err := s.attribution.ProcessRetryQueue(ctx, time.Now())
	summary.Add(retrySummary)
	if err != nil {
		return err
	}

	attributionSummary, err := s.attribution.ProcessUnattributed(ctx)
	summary.Add(attributionSummary)
	if err != nil {
		return err
	}

	pricingSummary, err := s.pricing.PriceUnpriced(ctx)
	summary.Add(pricingSummary)
	if err != nil {
		return err
	}

	assemblySummary, err := s.assembly.AssembleAll(ctx, period)
	summary.Add(assemblySummary)
	if err != nil {
		return err
	}

	_, reconciliationSummary, err := s.reconciliation.Reconcile(ctx, period)
	summary.Add(reconciliationSummary)
	return err
}
