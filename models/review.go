package models

import (
	"encoding/json"
	"time"
)

// Review states. The progression is monotonic: a review never moves backwards.
const (
	ReviewStatePending  = "PENDING"
	ReviewStateStarted  = "STARTED"
	ReviewStateFinished = "FINISHED"
)

// Review holds a reviewer's evaluation of a trabalho. It is reached only
// through its locator plus access code, never by numeric id. Scores is the
// persisted criterion map; it is always complete and rubric-valid or absent.
type Review struct {
	ReviewID        int             `gorm:"primaryKey;column:review_id" json:"review_id"`
	TrabalhoID      int             `gorm:"column:trabalho_id" json:"trabalho_id"`
	ReviewerID      string          `gorm:"column:reviewer_id" json:"reviewer_id"`
	AssignmentID    *int            `gorm:"column:assignment_id" json:"assignment_id,omitempty"`
	Locator         string          `gorm:"column:locator;unique" json:"locator"`
	AccessCode      string          `gorm:"column:access_code" json:"-"`
	Scores          json.RawMessage `gorm:"column:scores;type:json" json:"scores,omitempty"`
	Note            *float64        `gorm:"column:note" json:"note,omitempty"`
	StartedAt       *time.Time      `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt      *time.Time      `gorm:"column:finished_at" json:"finished_at,omitempty"`
	DurationSeconds *int64          `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	CreateAt        time.Time       `gorm:"column:create_at" json:"create_at"`
	UpdateAt        *time.Time      `gorm:"column:update_at" json:"update_at,omitempty"`

	Trabalho *Trabalho `gorm:"foreignKey:TrabalhoID" json:"trabalho,omitempty"`
	Reviewer *Reviewer `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}

// State derives the workflow state from the recorded timestamps.
func (r *Review) State() string {
	switch {
	case r.FinishedAt != nil:
		return ReviewStateFinished
	case r.StartedAt != nil:
		return ReviewStateStarted
	default:
		return ReviewStatePending
	}
}

// ParseScores decodes the persisted criterion map. An unset column yields
// an empty map.
func (r *Review) ParseScores() (map[string]float64, error) {
	if len(r.Scores) == 0 {
		return map[string]float64{}, nil
	}

	var scores map[string]float64
	if err := json.Unmarshal(r.Scores, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// SetScores encodes the criterion map into the JSON column.
func (r *Review) SetScores(scores map[string]float64) error {
	if scores == nil {
		r.Scores = nil
		return nil
	}

	data, err := json.Marshal(scores)
	if err != nil {
		return err
	}

	r.Scores = data
	return nil
}
