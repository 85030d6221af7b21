package services

import (
	"log"
	"time"

	"event-management-api/models"

	"gorm.io/gorm"
)

// AuditSink appends events to the audit log. Append is called with the
// transaction of the mutation being audited so the event shares its fate.
type AuditSink interface {
	Append(tx *gorm.DB, event *models.AuditEvent) error
}

type dbAuditSink struct{}

// NewAuditSink returns the database-backed audit sink.
func NewAuditSink() AuditSink {
	return dbAuditSink{}
}

func (dbAuditSink) Append(tx *gorm.DB, event *models.AuditEvent) error {
	if event.CreateAt.IsZero() {
		event.CreateAt = time.Now()
	}
	return tx.Create(event).Error
}

// logAuditFailure records an audit write that could not be persisted. The
// surrounding transaction decides whether to fail; this is only the trace.
func logAuditFailure(kind string, err error) {
	log.Printf("Warning: failed to append %s audit event: %v", kind, err)
}
