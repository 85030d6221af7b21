package models

import (
	"encoding/json"
	"time"
)

const (
	CandidacyStatusPending  = "pending"
	CandidacyStatusApproved = "approved"
	CandidacyStatusRejected = "rejected"
)

// ReviewerCandidacy is a reviewer applicant's record prior to approval.
// Attributes is a free-form key/value map (area, institution, degree, ...)
// used for filter-based selection at distribution time.
type ReviewerCandidacy struct {
	CandidacyID int             `gorm:"primaryKey;column:candidacy_id" json:"candidacy_id"`
	EventID     int             `gorm:"column:event_id" json:"event_id"`
	Name        string          `gorm:"column:name" json:"name"`
	Email       string          `gorm:"column:email" json:"email"`
	Status      string          `gorm:"column:status" json:"status"`
	Attributes  json.RawMessage `gorm:"column:attributes;type:json" json:"attributes,omitempty"`
	ReviewerID  *string         `gorm:"column:reviewer_id" json:"reviewer_id,omitempty"`
	CreateAt    time.Time       `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time      `gorm:"column:update_at" json:"update_at,omitempty"`

	Reviewer *Reviewer `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// Reviewer is a provisioned reviewer identity. The identifier is a short
// generated code used in review links; Email is the natural key that makes
// provisioning idempotent across candidacies.
type Reviewer struct {
	ReviewerID  string     `gorm:"primaryKey;column:reviewer_id" json:"reviewer_id"`
	Email       string     `gorm:"column:email;unique" json:"email"`
	Name        string     `gorm:"column:name" json:"name"`
	CandidacyID *int       `gorm:"column:candidacy_id" json:"candidacy_id,omitempty"`
	CreateAt    time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt    *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`
}

// TableName overrides
func (ReviewerCandidacy) TableName() string {
	return "reviewer_candidacies"
}

func (Reviewer) TableName() string {
	return "reviewers"
}

// ParseAttributes decodes the free-form attribute map. A missing column
// yields an empty map, not an error.
func (c *ReviewerCandidacy) ParseAttributes() (map[string]string, error) {
	if len(c.Attributes) == 0 {
		return map[string]string{}, nil
	}

	var attrs map[string]string
	if err := json.Unmarshal(c.Attributes, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// SetAttributes encodes the attribute map into the JSON column.
func (c *ReviewerCandidacy) SetAttributes(attrs map[string]string) error {
	if attrs == nil {
		c.Attributes = nil
		return nil
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	c.Attributes = data
	return nil
}
