package models

import (
	"encoding/json"
	"time"
)

const (
	AuditKindReservation       = "reservation"
	AuditKindAssignment        = "assignment"
	AuditKindCandidacyApproved = "candidacy_approved"
	AuditKindReviewSubmitted   = "review_submitted"
	AuditKindInternalError     = "internal_error"
)

// AuditEvent is one row of the append-only audit log. Events are written in
// the same transaction as the mutation they describe, so a rolled-back
// operation leaves no trace here either.
type AuditEvent struct {
	AuditEventID int             `gorm:"primaryKey;column:audit_event_id" json:"audit_event_id"`
	Kind         string          `gorm:"column:kind" json:"kind"`
	ActorUserID  *int            `gorm:"column:actor_user_id" json:"actor_user_id,omitempty"`
	TrabalhoID   *int            `gorm:"column:trabalho_id" json:"trabalho_id,omitempty"`
	ReviewerID   *string         `gorm:"column:reviewer_id" json:"reviewer_id,omitempty"`
	LoteID       *int            `gorm:"column:lote_id" json:"lote_id,omitempty"`
	Payload      json.RawMessage `gorm:"column:payload;type:json" json:"payload,omitempty"`
	CreateAt     time.Time       `gorm:"column:create_at" json:"create_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

// SetPayload encodes arbitrary event detail into the payload column.
func (e *AuditEvent) SetPayload(detail map[string]interface{}) error {
	if detail == nil {
		e.Payload = nil
		return nil
	}

	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}

	e.Payload = data
	return nil
}
