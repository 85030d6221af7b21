package controllers

import (
	"errors"
	"net/http"

	"event-management-api/config"
	"event-management-api/models"
	"event-management-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OpenReview opens a review through its locator and access code. The first
// successful open transitions the review to STARTED.
func OpenReview(c *gin.Context) {
	locator := c.Param("locator")
	accessCode := c.Query("access_code")
	if accessCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access_code is required"})
		return
	}

	svc := services.NewReviewService(nil)
	review, err := svc.Open(c.Request.Context(), locator, accessCode)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	var trabalho models.Trabalho
	if err := config.DB.Where("trabalho_id = ?", review.TrabalhoID).First(&trabalho).Error; err == nil {
		review.Trabalho = &trabalho
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"review":   review,
			"state":    review.State(),
			"trabalho": review.Trabalho,
		},
	})
}

// SubmitReview submits scores for a review. The body carries access_code
// plus either the rubric criterion fields or the single freeform "nota".
func SubmitReview(c *gin.Context) {
	locator := c.Param("locator")

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	accessCode, _ := body["access_code"].(string)
	if accessCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "access_code is required"})
		return
	}
	delete(body, "access_code")

	svc := services.NewReviewService(nil)
	review, err := svc.Submit(c.Request.Context(), locator, accessCode, body)
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Review submitted successfully",
		"data": gin.H{
			"state":            review.State(),
			"note":             review.Note,
			"finished_at":      review.FinishedAt,
			"duration_seconds": review.DurationSeconds,
		},
	})
}

// respondReviewError maps review workflow errors onto HTTP statuses. The
// access-code message is generic on purpose.
func respondReviewError(c *gin.Context, err error) {
	var rangeErr *services.RangeViolationError
	var formatErr *services.FormatError

	switch {
	case errors.Is(err, services.ErrAccessCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Código de acesso incorreto"})
	case errors.Is(err, services.ErrReviewFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "Avaliação já finalizada"})
	case errors.As(err, &rangeErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "Nota fora do intervalo permitido",
			"criterion": rangeErr.Criterion,
			"min":       rangeErr.Min,
			"max":       rangeErr.Max,
		})
	case errors.As(err, &formatErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Valor não numérico",
			"field": formatErr.Field,
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Review not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process review"})
	}
}
