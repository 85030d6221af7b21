package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"event-management-api/config"
	"event-management-api/models"

	"gorm.io/gorm"
)

// ErrAlreadyAssigned is returned when the (trabalho, reviewer) pair already
// exists, either found up front or rejected by the unique pair index during
// a concurrent insert.
var ErrAlreadyAssigned = errors.New("reviewer already assigned to this trabalho")

// DistributeParams drives one distribution pass over an event.
type DistributeParams struct {
	EventID        int
	Filters        map[string]string
	MaxPerReviewer int
	MaxPerTrabalho int
	Deadline       *time.Time
	ActorUserID    *int
}

// DistributeResult reports the outcome of a distribution pass. Partial
// distribution (reviewers left under quota because the pool emptied) is a
// valid terminal outcome, not a failure.
type DistributeResult struct {
	AssignmentsCreated  int `json:"assignments_created"`
	ReviewersConsidered int `json:"reviewers_considered"`
	TrabalhosConsidered int `json:"trabalhos_considered"`
}

// AssignmentService pairs reviewers with trabalhos under quota constraints
// and creates the review each assignment is answered through.
//
// Distribute is not safe to run concurrently for the same event without
// external serialization; the unique pair index turns a concurrent
// duplicate into ErrAlreadyAssigned and the whole pass rolls back.
type AssignmentService struct {
	db         *gorm.DB
	audit      AuditSink
	notifier   Notifier
	candidates *CandidateService
	rng        *rand.Rand
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	if db == nil {
		db = config.DB
	}
	return &AssignmentService{
		db:         db,
		audit:      NewAuditSink(),
		notifier:   NewMailNotifier(),
		candidates: NewCandidateService(db),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type assignmentPair struct {
	trabalhoID int
	reviewerID string
}

// planAssignments computes the pairs a distribution pass should create.
//
// Trabalhos already at maxPerTrabalho are excluded up front. Both sides are
// shuffled (fairness, not correctness), then each reviewer under personal
// quota takes the first pooled trabalho it is not yet paired with; a
// trabalho leaves the pool when it reaches its own cap. Rounds repeat until
// no reviewer can take anything. Every successful step shrinks remaining
// reviewer quota or the pool, so termination is guaranteed. Existing pairs
// are never planned again, which makes re-runs idempotent.
func planAssignments(
	reviewerIDs []string,
	trabalhoIDs []int,
	existing map[assignmentPair]bool,
	reviewerLoad map[string]int,
	trabalhoLoad map[int]int,
	maxPerReviewer, maxPerTrabalho int,
	rng *rand.Rand,
) []assignmentPair {
	if maxPerReviewer <= 0 || maxPerTrabalho <= 0 {
		return nil
	}
	if len(reviewerIDs) == 0 || len(trabalhoIDs) == 0 {
		return nil
	}

	pool := make([]int, 0, len(trabalhoIDs))
	for _, id := range trabalhoIDs {
		if trabalhoLoad[id] < maxPerTrabalho {
			pool = append(pool, id)
		}
	}

	reviewers := make([]string, len(reviewerIDs))
	copy(reviewers, reviewerIDs)

	if rng != nil {
		rng.Shuffle(len(reviewers), func(i, j int) {
			reviewers[i], reviewers[j] = reviewers[j], reviewers[i]
		})
		rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
	}

	taken := make(map[assignmentPair]bool, len(existing))
	for pair := range existing {
		taken[pair] = true
	}
	rLoad := make(map[string]int, len(reviewerLoad))
	for id, n := range reviewerLoad {
		rLoad[id] = n
	}
	tLoad := make(map[int]int, len(trabalhoLoad))
	for id, n := range trabalhoLoad {
		tLoad[id] = n
	}

	var planned []assignmentPair
	progress := true
	for progress && len(pool) > 0 {
		progress = false
		for _, reviewerID := range reviewers {
			if rLoad[reviewerID] >= maxPerReviewer {
				continue
			}
			for i, trabalhoID := range pool {
				pair := assignmentPair{trabalhoID: trabalhoID, reviewerID: reviewerID}
				if taken[pair] {
					continue
				}
				taken[pair] = true
				planned = append(planned, pair)
				rLoad[reviewerID]++
				tLoad[trabalhoID]++
				if tLoad[trabalhoID] >= maxPerTrabalho {
					pool = append(pool[:i], pool[i+1:]...)
				}
				progress = true
				break
			}
			if len(pool) == 0 {
				break
			}
		}
	}

	return planned
}

// Distribute runs one distribution pass: select approved reviewers by
// attribute filters, pair them with the event's assignable trabalhos, and
// persist every planned assignment (with its review and audit event) in a
// single transaction. Empty inputs produce a zero-count result, not an
// error.
func (s *AssignmentService) Distribute(ctx context.Context, params DistributeParams) (*DistributeResult, error) {
	result := &DistributeResult{}

	candidacies, err := s.candidates.ListByFilters(params.EventID, models.CandidacyStatusApproved, params.Filters)
	if err != nil {
		return nil, err
	}

	reviewerIDs := make([]string, 0, len(candidacies))
	seen := make(map[string]bool, len(candidacies))
	for _, candidacy := range candidacies {
		if candidacy.ReviewerID == nil || seen[*candidacy.ReviewerID] {
			continue
		}
		seen[*candidacy.ReviewerID] = true
		reviewerIDs = append(reviewerIDs, *candidacy.ReviewerID)
	}
	result.ReviewersConsidered = len(reviewerIDs)

	var trabalhos []models.Trabalho
	err = s.db.
		Where("event_id = ? AND status IN ? AND delete_at IS NULL", params.EventID,
			[]string{models.TrabalhoStatusSubmitted, models.TrabalhoStatusInReview}).
		Find(&trabalhos).Error
	if err != nil {
		return nil, err
	}
	result.TrabalhosConsidered = len(trabalhos)

	if len(reviewerIDs) == 0 || len(trabalhos) == 0 {
		return result, nil
	}

	trabalhoIDs := make([]int, 0, len(trabalhos))
	trabalhoByID := make(map[int]models.Trabalho, len(trabalhos))
	for _, trabalho := range trabalhos {
		trabalhoIDs = append(trabalhoIDs, trabalho.TrabalhoID)
		trabalhoByID[trabalho.TrabalhoID] = trabalho
	}

	var assignments []models.Assignment
	if err := s.db.Where("trabalho_id IN ?", trabalhoIDs).Find(&assignments).Error; err != nil {
		return nil, err
	}

	existing := make(map[assignmentPair]bool, len(assignments))
	reviewerLoad := make(map[string]int, len(reviewerIDs))
	trabalhoLoad := make(map[int]int, len(trabalhoIDs))
	for _, assignment := range assignments {
		existing[assignmentPair{trabalhoID: assignment.TrabalhoID, reviewerID: assignment.ReviewerID}] = true
		reviewerLoad[assignment.ReviewerID]++
		trabalhoLoad[assignment.TrabalhoID]++
	}

	planned := planAssignments(reviewerIDs, trabalhoIDs, existing, reviewerLoad, trabalhoLoad,
		params.MaxPerReviewer, params.MaxPerTrabalho, s.rng)
	if len(planned) == 0 {
		return result, nil
	}

	created := make([]createdAssignment, 0, len(planned))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created = created[:0]
		for _, pair := range planned {
			assignment, review, err := s.createAssignmentTx(tx, pair.trabalhoID, pair.reviewerID, params.Deadline, params.ActorUserID)
			if err != nil {
				return err
			}
			created = append(created, createdAssignment{assignment: assignment, review: review})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.AssignmentsCreated = len(created)
	s.notifyCreated(created, trabalhoByID)
	return result, nil
}

// AssignOne creates a single manual assignment plus its review and audits
// it, then dispatches the reviewer notification fire-and-forget.
func (s *AssignmentService) AssignOne(ctx context.Context, trabalhoID int, reviewerID string, deadline *time.Time, actorUserID *int) (*models.Assignment, *models.Review, error) {
	var (
		assignment *models.Assignment
		review     *models.Review
		trabalho   models.Trabalho
		reviewer   models.Reviewer
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trabalho_id = ? AND delete_at IS NULL", trabalhoID).First(&trabalho).Error; err != nil {
			return err
		}
		if err := tx.Where("reviewer_id = ?", reviewerID).First(&reviewer).Error; err != nil {
			return err
		}

		var err error
		assignment, review, err = s.createAssignmentTx(tx, trabalhoID, reviewerID, deadline, actorUserID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.notifier.NotifyAssignment(reviewer, trabalho, *review)
	return assignment, review, nil
}

type createdAssignment struct {
	assignment *models.Assignment
	review     *models.Review
}

// createAssignmentTx inserts the assignment, its review and the audit
// event inside tx. A duplicate pair surfaces as ErrAlreadyAssigned.
func (s *AssignmentService) createAssignmentTx(tx *gorm.DB, trabalhoID int, reviewerID string, deadline *time.Time, actorUserID *int) (*models.Assignment, *models.Review, error) {
	now := time.Now()

	assignment := &models.Assignment{
		TrabalhoID: trabalhoID,
		ReviewerID: reviewerID,
		Deadline:   deadline,
		CreateAt:   now,
	}
	if err := tx.Create(assignment).Error; err != nil {
		if IsDuplicateEntry(err) {
			return nil, nil, ErrAlreadyAssigned
		}
		return nil, nil, err
	}

	review := &models.Review{
		TrabalhoID:   trabalhoID,
		ReviewerID:   reviewerID,
		AssignmentID: &assignment.AssignmentID,
		Locator:      NewLocator(),
		AccessCode:   NewAccessCode(),
		CreateAt:     now,
	}
	if err := tx.Create(review).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create review for assignment %d: %w", assignment.AssignmentID, err)
	}

	event := &models.AuditEvent{
		Kind:        models.AuditKindAssignment,
		ActorUserID: actorUserID,
		TrabalhoID:  &trabalhoID,
		ReviewerID:  &reviewerID,
	}
	if err := event.SetPayload(map[string]interface{}{
		"assignment_id": assignment.AssignmentID,
	}); err != nil {
		return nil, nil, err
	}
	if err := s.audit.Append(tx, event); err != nil {
		logAuditFailure(models.AuditKindAssignment, err)
		return nil, nil, err
	}

	return assignment, review, nil
}

// notifyCreated dispatches one notification per created assignment. The
// reviewer rows are fetched in one pass; a fetch failure only costs the
// notification, never the already-committed assignments.
func (s *AssignmentService) notifyCreated(created []createdAssignment, trabalhoByID map[int]models.Trabalho) {
	if len(created) == 0 {
		return
	}

	reviewerIDs := make([]string, 0, len(created))
	seen := make(map[string]bool, len(created))
	for _, c := range created {
		if !seen[c.assignment.ReviewerID] {
			seen[c.assignment.ReviewerID] = true
			reviewerIDs = append(reviewerIDs, c.assignment.ReviewerID)
		}
	}

	var reviewers []models.Reviewer
	if err := s.db.Where("reviewer_id IN ?", reviewerIDs).Find(&reviewers).Error; err != nil {
		log.Printf("Warning: failed to load reviewers for notification: %v", err)
		return
	}
	reviewerByID := make(map[string]models.Reviewer, len(reviewers))
	for _, reviewer := range reviewers {
		reviewerByID[reviewer.ReviewerID] = reviewer
	}

	for _, c := range created {
		reviewer, okReviewer := reviewerByID[c.assignment.ReviewerID]
		trabalho, okTrabalho := trabalhoByID[c.assignment.TrabalhoID]
		if okReviewer && okTrabalho {
			s.notifier.NotifyAssignment(reviewer, trabalho, *c.review)
		}
	}
}
