package billing

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/warebill/backend/internal/domain/billing"
	"github.com/warebill/backend/internal/domain/shared"
)

// AttributionServiceConfig contains configuration for AttributionService
type AttributionServiceConfig struct {
	// MaxPendingRetries bounds how often a pending transaction is retried
	// before it falls to unattributable
	MaxPendingRetries int

	// RetryDelay is the base delay between retries (linear backoff)
	RetryDelay time.Duration

	// BatchSize caps how many transactions one pass processes
	BatchSize int
}

// DefaultAttributionServiceConfig returns default configuration
func DefaultAttributionServiceConfig() AttributionServiceConfig {
	return AttributionServiceConfig{
		MaxPendingRetries: 5,
		RetryDelay:        15 * time.Minute,
		BatchSize:         500,
	}
}

// AttributionService resolves the owning tenant of unattributed transactions
// and manages the pending retry queue for charges whose dependency has not
// synced yet.
type AttributionService struct {
	transactionRepo billing.TransactionRepository
	pendingRepo     billing.PendingAttributionRepository
	resolver        *billing.AttributionResolver
	config          AttributionServiceConfig
	logger          *zap.Logger
}

// NewAttributionService creates an AttributionService
func NewAttributionService(
	transactionRepo billing.TransactionRepository,
	pendingRepo billing.PendingAttributionRepository,
	resolver *billing.AttributionResolver,
	config AttributionServiceConfig,
	logger *zap.Logger,
) *AttributionService {
	return &AttributionService{
		transactionRepo: transactionRepo,
		pendingRepo:     pendingRepo,
		resolver:        resolver,
		config:          config,
		logger:          logger,
	}
}

// ProcessUnattributed runs the strategy chain over one batch of transactions
// with no tenant. Pending outcomes are queued for retry; unattributable ones
// are flagged and surfaced through the summary.
func (s *AttributionService) ProcessUnattributed(ctx context.Context) (billing.RunSummary, error) {
	var summary billing.RunSummary

	transactions, err := s.transactionRepo.FindUnattributed(ctx, s.config.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, tx := range transactions {
		outcome, err := s.resolver.Resolve(ctx, tx)
		if err != nil {
			return summary, err
		}

		switch outcome.Status {
		case billing.AttributionStatusResolved:
			if err := s.transactionRepo.Save(ctx, tx); err != nil {
				return summary, err
			}
			if err := s.removePending(ctx, tx); err != nil {
				return summary, err
			}
			summary.Attributed++
			s.logger.Debug("Transaction attributed",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("tenant_id", outcome.TenantID.String()),
				zap.String("strategy", outcome.Strategy))

		case billing.AttributionStatusPending:
			if err := s.enqueuePending(ctx, tx); err != nil {
				return summary, err
			}
			summary.PendingRetry++

		case billing.AttributionStatusUnattributable:
			if err := s.transactionRepo.Save(ctx, tx); err != nil {
				return summary, err
			}
			summary.Unattributable++
			s.logger.Warn("Transaction is unattributable",
				zap.String("transaction_id", tx.ID.String()),
				zap.String("upstream_id", tx.UpstreamID),
				zap.String("reference_type", string(tx.ReferenceType)),
				zap.String("reference_id", tx.ReferenceID))
		}
	}

	return summary, nil
}

// ProcessRetryQueue re-attempts attribution for queued transactions whose
// retry is due. Entries that spend their retry budget are marked exhausted
// and their transaction falls to unattributable.
func (s *AttributionService) ProcessRetryQueue(ctx context.Context, now time.Time) (billing.RunSummary, error) {
	var summary billing.RunSummary

	due, err := s.pendingRepo.FindDue(ctx, now, s.config.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, pending := range due {
		tx, err := s.transactionRepo.FindByID(ctx, pending.TransactionID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				if err := s.pendingRepo.Delete(ctx, pending.ID); err != nil {
					return summary, err
				}
				continue
			}
			return summary, err
		}

		if tx.IsAttributed() {
			// Resolved out of band, e.g. by a forced attribution.
			if err := s.pendingRepo.Delete(ctx, pending.ID); err != nil {
				return summary, err
			}
			continue
		}

		outcome, err := s.resolver.Resolve(ctx, tx)
		if err != nil {
			return summary, err
		}

		switch outcome.Status {
		case billing.AttributionStatusResolved:
			if err := s.transactionRepo.Save(ctx, tx); err != nil {
				return summary, err
			}
			if err := s.pendingRepo.Delete(ctx, pending.ID); err != nil {
				return summary, err
			}
			summary.Attributed++

		case billing.AttributionStatusPending:
			pending.RecordAttempt(s.config.RetryDelay)
			if pending.Exhausted {
				tx.MarkUnattributable()
				if err := s.transactionRepo.Save(ctx, tx); err != nil {
					return summary, err
				}
				summary.Unattributable++
				s.logger.Warn("Attribution retry budget exhausted",
					zap.String("transaction_id", tx.ID.String()),
					zap.String("reference_id", pending.ReferenceID),
					zap.Int("attempts", pending.Attempts))
			} else {
				summary.PendingRetry++
			}
			if err := s.pendingRepo.Save(ctx, pending); err != nil {
				return summary, err
			}

		case billing.AttributionStatusUnattributable:
			if err := s.transactionRepo.Save(ctx, tx); err != nil {
				return summary, err
			}
			pending.Exhausted = true
			if err := s.pendingRepo.Save(ctx, pending); err != nil {
				return summary, err
			}
			summary.Unattributable++
		}
	}

	return summary, nil
}

// enqueuePending queues the transaction for retry unless it is already queued
func (s *AttributionService) enqueuePending(ctx context.Context, tx *billing.Transaction) error {
	_, err := s.pendingRepo.FindByTransactionID(ctx, tx.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	pending := billing.NewPendingAttribution(tx.ID, tx.ReferenceID, s.config.MaxPendingRetries, s.config.RetryDelay)
	if err := s.pendingRepo.Save(ctx, pending); err != nil {
		return err
	}
	s.logger.Debug("Transaction queued for attribution retry",
		zap.String("transaction_id", tx.ID.String()),
		zap.Time("next_retry_at", pending.NextRetryAt))
	return nil
}

// removePending drops the queue entry of a now-resolved transaction, if any
func (s *AttributionService) removePending(ctx context.Context, tx *billing.Transaction) error {
	pending, err := s.pendingRepo.FindByTransactionID(ctx, tx.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.pendingRepo.Delete(ctx, pending.ID)
}
