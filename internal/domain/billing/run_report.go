package billing

import (
	"time"

	"github.com/warebill/backend/internal/domain/shared"
)

// RunSummary is the per-run triage counter set. Every pipeline run emits one
// so operators can see attributed/unattributable/unconfigured/claimed/drifted
// counts without reading logs line by line.
type RunSummary struct {
	Ingested         int
	Malformed        int
	Attributed       int
	PendingRetry     int
	Unattributable   int
	Priced           int
	UnconfiguredRate int
	AmbiguousRule    int
	Claimed          int
	InvoicesCreated  int
	Drifted          int
	ReportsWritten   int
}

// Add accumulates another summary into this one
func (s *RunSummary) Add(other RunSummary) {
	s.Ingested += other.Ingested
	s.Malformed += other.Malformed
	s.Attributed += other.Attributed
	s.PendingRetry += other.PendingRetry
	s.Unattributable += other.Unattributable
	s.Priced += other.Priced
	s.UnconfiguredRate += other.UnconfiguredRate
	s.AmbiguousRule += other.AmbiguousRule
	s.Claimed += other.Claimed
	s.InvoicesCreated += other.InvoicesCreated
	s.Drifted += other.Drifted
	s.ReportsWritten += other.ReportsWritten
}

// RunReport persists the summary of one pipeline run
type RunReport struct {
	shared.BaseEntity
	PeriodStart time.Time
	PeriodEnd   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Summary     RunSummary
}

// NewRunReport creates a run report for the given period and summary
func NewRunReport(period BillingPeriod, startedAt, finishedAt time.Time, summary RunSummary) *RunReport {
	return &RunReport{
		BaseEntity:  shared.NewBaseEntity(),
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		Summary:     summary,
	}
}
