package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies an audited administrative operation
type AuditAction string

const (
	AuditActionInvoiceReset     AuditAction = "INVOICE_RESET"
	AuditActionForceAttribution AuditAction = "FORCE_ATTRIBUTION"
	AuditActionInvoiceApproved  AuditAction = "INVOICE_APPROVED"
	AuditActionInvoiceSent      AuditAction = "INVOICE_SENT"
)

// IsValid checks if the audit action is valid
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionInvoiceReset, AuditActionForceAttribution,
		AuditActionInvoiceApproved, AuditActionInvoiceSent:
		return true
	}
	return false
}

// AuditRecord captures who performed a sensitive operation, on what, and why.
// Administrative overrides (resets, forced attribution) are never applied
// without one.
type AuditRecord struct {
	BaseEntity
	Action    AuditAction
	Actor     string
	Reason    string
	SubjectID uuid.UUID
	Detail    string
	Occurred  time.Time
}

// NewAuditRecord creates an audit record for the given action
func NewAuditRecord(action AuditAction, actor, reason string, subjectID uuid.UUID, detail string) (*AuditRecord, error) {
	if !action.IsValid() {
		return nil, NewDomainError("INVALID_AUDIT_ACTION", "Unknown audit action")
	}
	if actor == "" {
		return nil, NewDomainError("MISSING_ACTOR", "Audited operations require an actor")
	}
	if reason == "" {
		return nil, NewDomainError("MISSING_REASON", "Audited operations require a reason")
	}
	return &AuditRecord{
		BaseEntity: NewBaseEntity(),
		Action:     action,
		Actor:      actor,
		Reason:     reason,
		SubjectID:  subjectID,
		Detail:     detail,
		Occurred:   time.Now(),
	}, nil
}

// AuditRepository persists audit records
type AuditRepository interface {
	Save(ctx context.Context, record *AuditRecord) error
	FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]AuditRecord, error)
}
