package handlers

import (
	"net/http"
	"strconv"

	"mentra/services/payments"
	"mentra/utils"

	"github.com/gin-gonic/gin"
)

// OperatorHandler serves the operator intervention endpoints. Routes using
// it sit behind the operator role gate.
type OperatorHandler struct {
	Service payments.OperatorService
}

// ManualRefundHandler handles POST /operator/refunds/:bookingId.
func (h *OperatorHandler) ManualRefundHandler(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid refund payload", err.Error())
		return
	}
	b, err := h.Service.ManualRefund(c.Request.Context(), c.Param("bookingId"), req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ManualPayoutHandler handles POST /operator/payouts/:bookingId.
func (h *OperatorHandler) ManualPayoutHandler(c *gin.Context) {
	b, err := h.Service.ManualPayout(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RetryPayoutHandler handles POST /operator/payouts/:bookingId/retry.
func (h *OperatorHandler) RetryPayoutHandler(c *gin.Context) {
	b, err := h.Service.RetryPayout(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListWebhookEventsHandler handles GET /operator/webhook-events?limit=50.
func (h *OperatorHandler) ListWebhookEventsHandler(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	events, err := h.Service.RecentWebhookEvents(limit)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
