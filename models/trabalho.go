package models

import "time"

const (
	TrabalhoStatusSubmitted = "submitted"
	TrabalhoStatusInReview  = "in_review"
	TrabalhoStatusEvaluated = "evaluated"
	TrabalhoStatusWithdrawn = "withdrawn"
)

// Trabalho is a submitted work. The record is owned by the submission module;
// this cluster only reads it and links assignments and reviews to it.
type Trabalho struct {
	TrabalhoID int        `gorm:"primaryKey;column:trabalho_id" json:"trabalho_id"`
	EventID    int        `gorm:"column:event_id" json:"event_id"`
	Title      string     `gorm:"column:title" json:"title"`
	Status     string     `gorm:"column:status" json:"status"`
	CreateAt   time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt   *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`
	DeleteAt   *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

func (Trabalho) TableName() string {
	return "trabalhos"
}

// Assignable reports whether the work may still receive reviewer assignments.
func (t *Trabalho) Assignable() bool {
	return t.Status == TrabalhoStatusSubmitted || t.Status == TrabalhoStatusInReview
}
