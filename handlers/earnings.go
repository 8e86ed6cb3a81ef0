package handlers

import (
	"net/http"

	"mentra/models"
	"mentra/services/commission"
	"mentra/utils"

	"github.com/gin-gonic/gin"
)

// EarningsHandler serves mentor earnings aggregates.
type EarningsHandler struct {
	Earnings commission.EarningsService
}

// earningsVisible gates earnings reads to the mentor themself or an operator.
func earningsVisible(c *gin.Context, mentorID string) bool {
	a := actor(c)
	return a.Role == models.RoleOperator || a.ID == mentorID
}

// GetEarningsHandler handles GET /mentors/:id/earnings.
func (h *EarningsHandler) GetEarningsHandler(c *gin.Context) {
	mentorID := c.Param("id")
	if !earningsVisible(c, mentorID) {
		utils.RespondError(c, utils.AuthorizationError("earnings are visible to the mentor and operators only"))
		return
	}
	earnings, err := h.Earnings.GetEarnings(mentorID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, earnings)
}

// GetMonthlyEarningsHandler handles GET /mentors/:id/earnings/monthly.
func (h *EarningsHandler) GetMonthlyEarningsHandler(c *gin.Context) {
	mentorID := c.Param("id")
	if !earningsVisible(c, mentorID) {
		utils.RespondError(c, utils.AuthorizationError("earnings are visible to the mentor and operators only"))
		return
	}
	earnings, err := h.Earnings.GetEarnings(mentorID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mentorId": mentorID,
		"tier":     earnings.CurrentTier,
		"monthly":  earnings.MonthlyBreakdown(),
	})
}
