package controllers

import (
	"errors"
	"net/http"
	"time"

	"event-management-api/config"
	"event-management-api/middleware"
	"event-management-api/models"
	"event-management-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type distributeRequest struct {
	EventID          int               `json:"event_id" binding:"required"`
	Filters          map[string]string `json:"filters"`
	Limit            int               `json:"limit" binding:"required"`
	MaxPerSubmission int               `json:"max_per_submission" binding:"required"`
	DeadlineDays     int               `json:"deadline_days"`
}

// DistributeAssignments runs one distribution pass for an event. Limit is
// the per-reviewer quota. A pass that finds nothing to do still succeeds
// with zero assignments created.
func DistributeAssignments(c *gin.Context) {
	var req distributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if req.Limit <= 0 || req.MaxPerSubmission <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit and max_per_submission must be positive"})
		return
	}

	var deadline *time.Time
	if req.DeadlineDays > 0 {
		d := time.Now().AddDate(0, 0, req.DeadlineDays)
		deadline = &d
	}

	svc := services.NewAssignmentService(nil)
	result, err := svc.Distribute(c.Request.Context(), services.DistributeParams{
		EventID:        req.EventID,
		Filters:        req.Filters,
		MaxPerReviewer: req.Limit,
		MaxPerTrabalho: req.MaxPerSubmission,
		Deadline:       deadline,
		ActorUserID:    middleware.ActingUserID(c),
	})
	if err != nil {
		if errors.Is(err, services.ErrAlreadyAssigned) {
			// A concurrent pass won the race on at least one pair.
			c.JSON(http.StatusConflict, gin.H{"error": "Distribution conflicted with a concurrent pass, try again"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to distribute assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"assignments_created":  result.AssignmentsCreated,
		"reviewers_considered": result.ReviewersConsidered,
		"trabalhos_considered": result.TrabalhosConsidered,
	})
}

type manualAssignmentRequest struct {
	TrabalhoID   int    `json:"trabalho_id" binding:"required"`
	ReviewerID   string `json:"reviewer_id" binding:"required"`
	DeadlineDays int    `json:"deadline_days"`
}

// CreateAssignment creates a single manual assignment with its review and
// notifies the reviewer (fire-and-forget).
func CreateAssignment(c *gin.Context) {
	var req manualAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	var deadline *time.Time
	if req.DeadlineDays > 0 {
		d := time.Now().AddDate(0, 0, req.DeadlineDays)
		deadline = &d
	}

	svc := services.NewAssignmentService(nil)
	assignment, review, err := svc.AssignOne(c.Request.Context(), req.TrabalhoID, req.ReviewerID, deadline, middleware.ActingUserID(c))
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Assignment created successfully",
			"data": gin.H{
				"assignment": assignment,
				"review": gin.H{
					"review_id": review.ReviewID,
					"locator":   review.Locator,
				},
			},
		})
	case errors.Is(err, services.ErrAlreadyAssigned):
		c.JSON(http.StatusConflict, gin.H{"error": "Reviewer already assigned to this trabalho"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Trabalho or reviewer not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create assignment"})
	}
}

// GetAssignments lists assignments, optionally filtered by trabalho or
// reviewer.
func GetAssignments(c *gin.Context) {
	q := config.DB.Model(&models.Assignment{}).
		Preload("Trabalho").
		Preload("Reviewer")

	if trabalhoID := c.Query("trabalho_id"); trabalhoID != "" {
		q = q.Where("trabalho_id = ?", trabalhoID)
	}
	if reviewerID := c.Query("reviewer_id"); reviewerID != "" {
		q = q.Where("reviewer_id = ?", reviewerID)
	}
	if completed := c.Query("completed"); completed != "" {
		q = q.Where("completed = ?", completed == "true")
	}

	var assignments []models.Assignment
	if err := q.Order("assignment_id DESC").Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assignments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    assignments,
		"total":   len(assignments),
	})
}
