package handlers

import (
	"net/http"

	"mentra/services/payments"
	"mentra/utils"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives processor event deliveries.
type WebhookHandler struct {
	Service payments.WebhookService
}

// HandleWebhookHandler handles POST /payments/webhook. Signature and payload
// problems are 400 and will not be redelivered; anything else is 500 so the
// processor retries.
func (h *WebhookHandler) HandleWebhookHandler(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}
	signature := c.GetHeader("Stripe-Signature")

	if err := h.Service.HandleEvent(c.Request.Context(), payload, signature); err != nil {
		switch utils.KindOf(err) {
		case utils.KindPaymentProcessor, utils.KindValidation:
			c.JSON(http.StatusBadRequest, gin.H{"error": "rejected"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
