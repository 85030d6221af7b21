package models

import "time"

// Assignment pairs a reviewer with a trabalho. The (trabalho, reviewer) pair
// is unique; rows are never deleted, only flipped to completed, so the table
// doubles as the distribution history.
type Assignment struct {
	AssignmentID int        `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	TrabalhoID   int        `gorm:"column:trabalho_id;uniqueIndex:idx_trabalho_reviewer" json:"trabalho_id"`
	ReviewerID   string     `gorm:"column:reviewer_id;uniqueIndex:idx_trabalho_reviewer" json:"reviewer_id"`
	Deadline     *time.Time `gorm:"column:deadline" json:"deadline,omitempty"`
	Completed    bool       `gorm:"column:completed" json:"completed"`
	CreateAt     time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`

	Trabalho *Trabalho `gorm:"foreignKey:TrabalhoID" json:"trabalho,omitempty"`
	Reviewer *Reviewer `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}
