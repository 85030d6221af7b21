package controllers

import (
	"errors"
	"net/http"

	"event-management-api/middleware"
	"event-management-api/models"
	"event-management-api/services"
	"event-management-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type registrationRequest struct {
	LoteID           int    `json:"lote_id" binding:"required"`
	ParticipantName  string `json:"participant_name" binding:"required"`
	ParticipantEmail string `json:"participant_email" binding:"required"`
}

// CreateRegistration reserves a seat in the requested lote and creates the
// registration in the same transaction. Contention is surfaced as a
// retriable 503; a full lote is a definitive 409.
func CreateRegistration(c *gin.Context) {
	var req registrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	if !utils.ValidateEmail(req.ParticipantEmail) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant email"})
		return
	}

	registration := &models.Registration{
		LoteID:           req.LoteID,
		ParticipantName:  utils.SanitizeInput(req.ParticipantName),
		ParticipantEmail: utils.SanitizeInput(req.ParticipantEmail),
	}

	svc := services.NewSeatReservationService(nil)
	err := svc.Register(c.Request.Context(), registration, middleware.ActingUserID(c))
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Registration created successfully",
			"data":    registration,
		})
	case errors.Is(err, services.ErrLoteEsgotado):
		c.JSON(http.StatusConflict, gin.H{"error": "Lote esgotado, escolha outro lote"})
	case errors.Is(err, services.ErrLoteBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Lote em uso no momento, tente novamente",
			"retriable": true,
		})
	case errors.Is(err, services.ErrLoteUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Lote inativo ou fora do período de inscrição"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lote not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create registration"})
	}
}
