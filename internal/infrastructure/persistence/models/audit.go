package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/warebill/backend/internal/domain/shared"
)

// AuditRecordModel is the persistence model for audit records. Rows are
// append-only.
type AuditRecordModel struct {
	BaseModel
	Action    shared.AuditAction `gorm:"type:varchar(40);not null;index"`
	Actor     string             `gorm:"type:varchar(100);not null;index"`
	Reason    string             `gorm:"type:varchar(500);not null"`
	SubjectID uuid.UUID          `gorm:"type:uuid;not null;index"`
	Detail    string             `gorm:"type:text"`
	Occurred  time.Time          `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditRecordModel) TableName() string {
	return "audit_records"
}

// ToDomain converts the persistence model to a domain AuditRecord.
func (m *AuditRecordModel) ToDomain() *shared.AuditRecord {
	return &shared.AuditRecord{
		BaseEntity: m.BaseModel.ToDomain(),
		Action:     m.Action,
		Actor:      m.Actor,
		Reason:     m.Reason,
		SubjectID:  m.SubjectID,
		Detail:     m.Detail,
		Occurred:   m.Occurred,
	}
}

// FromDomain populates the persistence model from a domain AuditRecord.
func (m *AuditRecordModel) FromDomain(r *shared.AuditRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Action = r.Action
	m.Actor = r.Actor
	m.Reason = r.Reason
	m.SubjectID = r.SubjectID
	m.Detail = r.Detail
	m.Occurred = r.Occurred
}
