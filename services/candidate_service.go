package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-management-api/config"
	"event-management-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrCandidacyRejected is returned when approving a candidacy that was
	// already rejected.
	ErrCandidacyRejected = errors.New("candidacy already rejected")

	// ErrIdentifierExhausted is returned when reviewer identifier
	// generation kept colliding. Fatal: surfaced generically to the user,
	// with full detail in the audit log.
	ErrIdentifierExhausted = errors.New("reviewer identifier space exhausted")
)

// reviewerIDAttempts bounds identifier generation retries before giving up.
const reviewerIDAttempts = 5

// CandidateService manages reviewer candidacies: intake, attribute
// filtering and approval with idempotent reviewer provisioning.
type CandidateService struct {
	db    *gorm.DB
	audit AuditSink
	newID func() string
}

func NewCandidateService(db *gorm.DB) *CandidateService {
	if db == nil {
		db = config.DB
	}
	return &CandidateService{db: db, audit: NewAuditSink(), newID: NewReviewerID}
}

// FilterMatch reports whether the attribute map satisfies every filter:
// each filter key must be present with exactly the filter's value. AND
// semantics, no partial or fuzzy matching. An empty filter set matches.
func FilterMatch(attrs, filters map[string]string) bool {
	for key, want := range filters {
		if got, ok := attrs[key]; !ok || got != want {
			return false
		}
	}
	return true
}

// Submit stores a new candidacy in pending state.
func (s *CandidateService) Submit(c *models.ReviewerCandidacy) error {
	c.Status = models.CandidacyStatusPending
	if c.CreateAt.IsZero() {
		c.CreateAt = time.Now()
	}
	return s.db.Create(c).Error
}

// ListByFilters returns the event's candidacies that match all attribute
// filters, optionally restricted to one status. Filtering runs over the
// decoded attribute maps; a candidacy with an undecodable map is an error,
// not a silent skip.
func (s *CandidateService) ListByFilters(eventID int, status string, filters map[string]string) ([]models.ReviewerCandidacy, error) {
	q := s.db.Where("event_id = ?", eventID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var rows []models.ReviewerCandidacy
	if err := q.Order("candidacy_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	if len(filters) == 0 {
		return rows, nil
	}

	matched := make([]models.ReviewerCandidacy, 0, len(rows))
	for _, row := range rows {
		attrs, err := row.ParseAttributes()
		if err != nil {
			return nil, fmt.Errorf("candidacy %d has invalid attributes: %w", row.CandidacyID, err)
		}
		if FilterMatch(attrs, filters) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// Approve transitions the candidacy to APPROVED and provisions (or reuses,
// keyed by email) the reviewer identity. Approving an already-approved
// candidacy returns the existing reviewer. Everything happens in one
// transaction; a provisioning failure leaves no partial reviewer row.
func (s *CandidateService) Approve(ctx context.Context, candidacyID int, actorUserID *int) (*models.Reviewer, error) {
	var reviewer *models.Reviewer

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidacy models.ReviewerCandidacy
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("candidacy_id = ?", candidacyID).
			First(&candidacy).Error; err != nil {
			return err
		}

		switch candidacy.Status {
		case models.CandidacyStatusRejected:
			return ErrCandidacyRejected
		case models.CandidacyStatusApproved:
			if candidacy.ReviewerID != nil {
				var existing models.Reviewer
				if err := tx.Where("reviewer_id = ?", *candidacy.ReviewerID).First(&existing).Error; err != nil {
					return err
				}
				reviewer = &existing
				return nil
			}
		}

		provisioned, err := s.provisionReviewer(tx, &candidacy)
		if err != nil {
			return err
		}
		reviewer = provisioned

		now := time.Now()
		updates := map[string]interface{}{
			"reviewer_id": reviewer.ReviewerID,
			"status":      models.CandidacyStatusApproved,
			"update_at":   now,
		}
		if err := tx.Model(&models.ReviewerCandidacy{}).
			Where("candidacy_id = ?", candidacy.CandidacyID).
			Updates(updates).Error; err != nil {
			return err
		}

		event := &models.AuditEvent{
			Kind:        models.AuditKindCandidacyApproved,
			ActorUserID: actorUserID,
			ReviewerID:  &reviewer.ReviewerID,
		}
		if err := event.SetPayload(map[string]interface{}{
			"candidacy_id": candidacy.CandidacyID,
			"email":        candidacy.Email,
		}); err != nil {
			return err
		}
		if err := s.audit.Append(tx, event); err != nil {
			logAuditFailure(models.AuditKindCandidacyApproved, err)
			return err
		}

		return nil
	})

	if errors.Is(err, ErrIdentifierExhausted) {
		s.auditIdentifierExhaustion(candidacyID, actorUserID)
	}
	if err != nil {
		return nil, err
	}
	return reviewer, nil
}

// provisionReviewer finds the reviewer by email or creates one under a
// freshly generated identifier, retrying a bounded number of times when
// the identifier collides.
func (s *CandidateService) provisionReviewer(tx *gorm.DB, candidacy *models.ReviewerCandidacy) (*models.Reviewer, error) {
	var existing models.Reviewer
	err := tx.Where("email = ?", candidacy.Email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < reviewerIDAttempts; attempt++ {
		reviewer := &models.Reviewer{
			ReviewerID:  s.newID(),
			Email:       candidacy.Email,
			Name:        candidacy.Name,
			CandidacyID: &candidacy.CandidacyID,
			CreateAt:    time.Now(),
		}
		err := tx.Create(reviewer).Error
		if err == nil {
			return reviewer, nil
		}
		if !IsDuplicateEntry(err) {
			return nil, err
		}
		// Identifier collision: generate a fresh one and try again.
	}

	return nil, ErrIdentifierExhausted
}

// auditIdentifierExhaustion records the fatal provisioning failure outside
// the rolled-back transaction so the detail survives.
func (s *CandidateService) auditIdentifierExhaustion(candidacyID int, actorUserID *int) {
	event := &models.AuditEvent{
		Kind:        models.AuditKindInternalError,
		ActorUserID: actorUserID,
	}
	if err := event.SetPayload(map[string]interface{}{
		"error":        ErrIdentifierExhausted.Error(),
		"candidacy_id": candidacyID,
		"attempts":     reviewerIDAttempts,
	}); err != nil {
		logAuditFailure(models.AuditKindInternalError, err)
		return
	}
	if err := s.audit.Append(s.db, event); err != nil {
		logAuditFailure(models.AuditKindInternalError, err)
	}
}
