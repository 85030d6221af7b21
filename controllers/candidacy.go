package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"event-management-api/middleware"
	"event-management-api/models"
	"event-management-api/services"
	"event-management-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type candidacyRequest struct {
	EventID    int               `json:"event_id" binding:"required"`
	Name       string            `json:"name" binding:"required"`
	Email      string            `json:"email" binding:"required"`
	Attributes map[string]string `json:"attributes"`
}

// CreateCandidacy registers a reviewer candidacy in pending state.
func CreateCandidacy(c *gin.Context) {
	var req candidacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if !utils.ValidateEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	candidacy := &models.ReviewerCandidacy{
		EventID: req.EventID,
		Name:    utils.SanitizeInput(req.Name),
		Email:   utils.SanitizeInput(req.Email),
	}
	if err := candidacy.SetAttributes(req.Attributes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attributes"})
		return
	}

	svc := services.NewCandidateService(nil)
	if err := svc.Submit(candidacy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create candidacy"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Candidacy submitted successfully",
		"data":    candidacy,
	})
}

// GetCandidacies lists candidacies for an event. Besides event_id and
// status, every other query parameter is an exact-match attribute filter
// (AND semantics).
func GetCandidacies(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Query("event_id"))
	if err != nil || eventID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_id is required"})
		return
	}
	status := c.Query("status")

	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if key == "event_id" || key == "status" {
			continue
		}
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}

	svc := services.NewCandidateService(nil)
	candidacies, err := svc.ListByFilters(eventID, status, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch candidacies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    candidacies,
		"total":   len(candidacies),
	})
}

// ApproveCandidacy approves a candidacy and provisions its reviewer
// identity. Identifier exhaustion is deliberately generic here; the audit
// log carries the detail.
func ApproveCandidacy(c *gin.Context) {
	candidacyID, err := strconv.Atoi(c.Param("id"))
	if err != nil || candidacyID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid candidacy ID"})
		return
	}

	svc := services.NewCandidateService(nil)
	reviewer, err := svc.Approve(c.Request.Context(), candidacyID, middleware.ActingUserID(c))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Candidacy approved successfully",
			"data":    reviewer,
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Candidacy not found"})
	case errors.Is(err, services.ErrCandidacyRejected):
		c.JSON(http.StatusConflict, gin.H{"error": "Candidacy was already rejected"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve candidacy"})
	}
}
