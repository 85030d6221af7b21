package services

import (
	"context"
	"errors"
	"time"

	"event-management-api/config"
	"event-management-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrAccessCode is returned on access-code mismatch. Deliberately
	// carries no detail about the stored value.
	ErrAccessCode = errors.New("incorrect access code")

	// ErrReviewFinished is returned when submitting to a FINISHED review.
	// Policy decision: finished reviews reject re-submission instead of
	// silently overriding; corrections go through an admin override that
	// lives outside this service.
	ErrReviewFinished = errors.New("review already finished")
)

// ReviewService drives a review through PENDING → STARTED → FINISHED.
// Reviews are addressed only by locator plus access code; every operation
// locks the review row, so state never regresses.
type ReviewService struct {
	db     *gorm.DB
	barema *BaremaService
	audit  AuditSink
}

func NewReviewService(db *gorm.DB) *ReviewService {
	if db == nil {
		db = config.DB
	}
	return &ReviewService{db: db, barema: NewBaremaService(db), audit: NewAuditSink()}
}

// Open fetches the review for the given locator. The first successful open
// transitions PENDING → STARTED and records started_at. A wrong access
// code changes nothing.
func (s *ReviewService) Open(ctx context.Context, locator, accessCode string) (*models.Review, error) {
	var review *models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.openTx(tx, locator, accessCode)
		if err != nil {
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) openTx(tx *gorm.DB, locator, accessCode string) (*models.Review, error) {
	review, err := s.lockReview(tx, locator, accessCode)
	if err != nil {
		return nil, err
	}

	if review.StartedAt == nil && review.FinishedAt == nil {
		now := time.Now()
		err := tx.Model(&models.Review{}).
			Where("review_id = ?", review.ReviewID).
			Updates(map[string]interface{}{
				"started_at": now,
				"update_at":  now,
			}).Error
		if err != nil {
			return nil, err
		}
		review.StartedAt = &now
		review.UpdateAt = &now
	}

	return review, nil
}

// Submit validates the raw scores against the event's scoring scheme and,
// only if every supplied criterion passes, persists the complete score map,
// the aggregate note and the FINISHED timestamps, and flips the linked
// assignment to completed. Any violation rolls the whole operation back:
// the persisted scores are never a partial or mixed set.
func (s *ReviewService) Submit(ctx context.Context, locator, accessCode string, raw map[string]interface{}) (*models.Review, error) {
	var review *models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.submitTx(tx, locator, accessCode, raw)
		if err != nil {
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) submitTx(tx *gorm.DB, locator, accessCode string, raw map[string]interface{}) (*models.Review, error) {
	review, err := s.lockReview(tx, locator, accessCode)
	if err != nil {
		return nil, err
	}
	if review.FinishedAt != nil {
		return nil, ErrReviewFinished
	}

	var trabalho models.Trabalho
	if err := tx.Where("trabalho_id = ?", review.TrabalhoID).First(&trabalho).Error; err != nil {
		return nil, err
	}

	scheme, err := s.barema.resolveSchemeTx(tx, trabalho.EventID)
	if err != nil {
		return nil, err
	}

	scores, note, err := scheme.Validate(raw)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	startedAt := review.StartedAt
	if startedAt == nil {
		// Direct submit without a prior open still moves through STARTED.
		startedAt = &now
	}
	duration := int64(now.Sub(*startedAt) / time.Second)

	if err := review.SetScores(scores); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"scores":           []byte(review.Scores),
		"note":             note,
		"finished_at":      now,
		"duration_seconds": duration,
		"update_at":        now,
	}
	if review.StartedAt == nil {
		updates["started_at"] = now
	}

	err = tx.Model(&models.Review{}).
		Where("review_id = ?", review.ReviewID).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}

	if review.AssignmentID != nil {
		err = tx.Model(&models.Assignment{}).
			Where("assignment_id = ?", *review.AssignmentID).
			Updates(map[string]interface{}{
				"completed": true,
				"update_at": now,
			}).Error
		if err != nil {
			return nil, err
		}
	}

	event := &models.AuditEvent{
		Kind:       models.AuditKindReviewSubmitted,
		TrabalhoID: &review.TrabalhoID,
		ReviewerID: &review.ReviewerID,
	}
	if err := event.SetPayload(map[string]interface{}{
		"review_id": review.ReviewID,
		"note":      note,
	}); err != nil {
		return nil, err
	}
	if err := s.audit.Append(tx, event); err != nil {
		logAuditFailure(models.AuditKindReviewSubmitted, err)
		return nil, err
	}

	review.Note = &note
	review.StartedAt = startedAt
	review.FinishedAt = &now
	review.DurationSeconds = &duration
	review.UpdateAt = &now

	return review, nil
}

// lockReview fetches the review row under an exclusive lock and checks the
// access code. The mismatch error stays generic on purpose.
func (s *ReviewService) lockReview(tx *gorm.DB, locator, accessCode string) (*models.Review, error) {
	var review models.Review
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("locator = ?", locator).
		First(&review).Error
	if err != nil {
		return nil, err
	}

	if review.AccessCode != accessCode {
		return nil, ErrAccessCode
	}

	return &review, nil
}
