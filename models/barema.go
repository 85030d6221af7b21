package models

import (
	"encoding/json"
	"time"
)

// CriterionRange is the inclusive score range for one rubric criterion.
type CriterionRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v falls inside the inclusive range.
func (r CriterionRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Barema is the per-event scoring rubric: a named set of criteria, each with
// a numeric range. An event without a barema row falls back to a single
// freeform score.
type Barema struct {
	BaremaID int             `gorm:"primaryKey;column:barema_id" json:"barema_id"`
	EventID  int             `gorm:"column:event_id;unique" json:"event_id"`
	Criteria json.RawMessage `gorm:"column:criteria;type:json" json:"criteria"`
	CreateAt time.Time       `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time      `gorm:"column:update_at" json:"update_at,omitempty"`
}

func (Barema) TableName() string {
	return "baremas"
}

// ParseCriteria decodes the criterion table.
func (b *Barema) ParseCriteria() (map[string]CriterionRange, error) {
	if len(b.Criteria) == 0 {
		return map[string]CriterionRange{}, nil
	}

	var criteria map[string]CriterionRange
	if err := json.Unmarshal(b.Criteria, &criteria); err != nil {
		return nil, err
	}
	return criteria, nil
}

// SetCriteria encodes the criterion table into the JSON column.
func (b *Barema) SetCriteria(criteria map[string]CriterionRange) error {
	if criteria == nil {
		b.Criteria = nil
		return nil
	}

	data, err := json.Marshal(criteria)
	if err != nil {
		return err
	}

	b.Criteria = data
	return nil
}
