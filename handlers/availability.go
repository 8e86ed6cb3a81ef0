package handlers

import (
	"net/http"

	"mentra/utils"

	"github.com/gin-gonic/gin"
)

// MentorSlotsHandler handles GET /mentors/:id/slots?date=YYYY-MM-DD.
func (h *BookingHandler) MentorSlotsHandler(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		utils.JSONError(c, http.StatusBadRequest, "date query parameter is required", "expected YYYY-MM-DD")
		return
	}
	slots, err := h.Service.AvailableSlots(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentorId": c.Param("id"), "date": date, "slots": slots})
}

// MentorAvailabilityHandler handles GET /mentors/:id/availability?from&to.
func (h *BookingHandler) MentorAvailabilityHandler(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		utils.JSONError(c, http.StatusBadRequest, "from and to query parameters are required", "expected YYYY-MM-DD")
		return
	}
	days, err := h.Service.AvailabilityForRange(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentorId": c.Param("id"), "days": days})
}
