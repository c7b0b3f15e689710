package billing

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
)

// IngestionService normalizes raw upstream charge records and persists them
// as transactions. Ingestion is idempotent: records are keyed on their
// upstream id, so a re-delivered feed page merges into the existing row
// instead of double-ingesting.
type IngestionService struct {
	transactionRepo billing.TransactionRepository
	normalizer      *billing.Normalizer
	logger          *zap.Logger

	mu      sync.Mutex
	summary billing.RunSummary
}

// NewIngestionService creates an IngestionService
func NewIngestionService(
	transactionRepo billing.TransactionRepository,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		transactionRepo: transactionRepo,
		normalizer:      billing.NewNormalizer(),
		logger:          logger,
	}
}

// IngestCharges normalizes and persists one page of raw records. Malformed
// records are counted and logged, never silently dropped and never fatal to
// the page; a persistence failure aborts the page so the feed job retries it.
func (s *IngestionService) IngestCharges(ctx context.Context, records []billing.RawChargeRecord) error {
	var page billing.RunSummary

	for _, raw := range records {
		tx, err := s.normalizer.Normalize(raw)
		if err != nil {
			if errors.Is(err, shared.ErrMalformedRecord) {
				page.Malformed++
				s.logger.Warn("Skipping malformed charge record",
					zap.String("upstream_id", raw.UpstreamID),
					zap.Error(err))
				continue
			}
			return err
		}

		existing, err := s.transactionRepo.FindByUpstreamID(ctx, tx.UpstreamID)
		switch {
		case err == nil:
			existing.MergeFromReingest(tx)
			if err := s.transactionRepo.Save(ctx, existing); err != nil {
				return err
			}
		case errors.Is(err, shared.ErrNotFound):
			if err := s.transactionRepo.Save(ctx, tx); err != nil {
				return err
			}
			page.Ingested++
		default:
			return err
		}
	}

	s.mu.Lock()
	s.summary.Add(page)
	s.mu.Unlock()

	s.logger.Debug("Charge page ingested",
		zap.Int("records", len(records)),
		zap.Int("new", page.Ingested),
		zap.Int("malformed", page.Malformed))

	return nil
}

// DrainSummary returns the counters accumulated since the last drain and
// resets them. Called once per pipeline run to fold ingestion counts into the
// run report.
func (s *IngestionService) DrainSummary() billing.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := s.summary
	s.summary = billing.RunSummary{}
	return summary
}
