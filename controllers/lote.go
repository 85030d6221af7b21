package controllers

import (
	"net/http"
	"strconv"
	"time"

	"event-management-api/config"
	"event-management-api/models"

	"github.com/gin-gonic/gin"
)

type loteSummary struct {
	models.Lote
	SeatsUsed      int64 `json:"seats_used"`
	SeatsRemaining int64 `json:"seats_remaining"`
}

// GetLotes lists the active, in-window lotes for an event with an advisory
// seat count. The count is an unlocked read; the authoritative check is the
// reservation transaction.
func GetLotes(c *gin.Context) {
	eventID, err := strconv.Atoi(c.Query("event_id"))
	if err != nil || eventID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_id is required"})
		return
	}

	now := time.Now()
	var lotes []models.Lote
	err = config.DB.
		Where("event_id = ? AND is_active = ? AND starts_at <= ? AND ends_at >= ? AND delete_at IS NULL",
			eventID, true, now, now).
		Order("starts_at ASC").
		Find(&lotes).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch lotes"})
		return
	}

	if len(lotes) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []loteSummary{}})
		return
	}

	loteIDs := make([]int, 0, len(lotes))
	for _, lote := range lotes {
		loteIDs = append(loteIDs, lote.LoteID)
	}

	type usageRow struct {
		LoteID int   `gorm:"column:lote_id"`
		Used   int64 `gorm:"column:used"`
	}
	var usage []usageRow
	err = config.DB.Model(&models.Registration{}).
		Select("lote_id, COUNT(*) AS used").
		Where("lote_id IN ? AND status IN ?", loteIDs,
			[]string{models.RegistrationStatusApproved, models.RegistrationStatusPending}).
		Group("lote_id").
		Scan(&usage).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch lote usage"})
		return
	}

	usedByLote := make(map[int]int64, len(usage))
	for _, row := range usage {
		usedByLote[row.LoteID] = row.Used
	}

	summaries := make([]loteSummary, 0, len(lotes))
	for _, lote := range lotes {
		used := usedByLote[lote.LoteID]
		remaining := int64(lote.Capacity) - used
		if remaining < 0 {
			remaining = 0
		}
		summaries = append(summaries, loteSummary{
			Lote:           lote,
			SeatsUsed:      used,
			SeatsRemaining: remaining,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": summaries})
}
