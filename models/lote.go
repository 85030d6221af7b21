package models

import "time"

const (
	RegistrationStatusPending   = "pending"
	RegistrationStatusApproved  = "approved"
	RegistrationStatusCancelled = "cancelled"
)

// Lote represents a capacity- and time-windowed registration batch.
// Seat usage is never stored as a counter: it is always derived by counting
// consuming registrations, so every writer must go through the reservation lock.
type Lote struct {
	LoteID   int        `gorm:"primaryKey;column:lote_id" json:"lote_id"`
	EventID  int        `gorm:"column:event_id" json:"event_id"`
	Name     string     `gorm:"column:name" json:"name"`
	Capacity int        `gorm:"column:capacity" json:"capacity"`
	StartsAt time.Time  `gorm:"column:starts_at" json:"starts_at"`
	EndsAt   time.Time  `gorm:"column:ends_at" json:"ends_at"`
	IsActive bool       `gorm:"column:is_active" json:"is_active"`
	CreateAt time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// Registration is the consuming record for a Lote seat. Rows with status
// pending or approved occupy a seat; cancelled rows do not.
type Registration struct {
	RegistrationID   int        `gorm:"primaryKey;column:registration_id" json:"registration_id"`
	LoteID           int        `gorm:"column:lote_id" json:"lote_id"`
	EventID          int        `gorm:"column:event_id" json:"event_id"`
	ParticipantName  string     `gorm:"column:participant_name" json:"participant_name"`
	ParticipantEmail string     `gorm:"column:participant_email" json:"participant_email"`
	Status           string     `gorm:"column:status" json:"status"`
	CreateAt         time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt         *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`

	Lote *Lote `gorm:"foreignKey:LoteID" json:"lote,omitempty"`
}

// TableName overrides
func (Lote) TableName() string {
	return "lotes"
}

func (Registration) TableName() string {
	return "registrations"
}

// WindowOpen reports whether the lote accepts registrations at the given time.
func (l *Lote) WindowOpen(now time.Time) bool {
	return !now.Before(l.StartsAt) && !now.After(l.EndsAt)
}

// ConsumesSeat reports whether the registration occupies a seat in its lote.
func (r *Registration) ConsumesSeat() bool {
	return r.Status == RegistrationStatusPending || r.Status == RegistrationStatusApproved
}
