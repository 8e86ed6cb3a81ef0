package handlers

import (
	"net/http"
	"strconv"

	"mentra/models"
	"mentra/services/booking"
	"mentra/services/ledger"
	"mentra/services/payments"
	"mentra/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler serves the booking lifecycle and its payment entry points.
type BookingHandler struct {
	Service  booking.BookingService
	Ledger   ledger.LedgerService
	Payments payments.PaymentService
}

// actor resolves the authenticated caller set by the auth middleware.
func actor(c *gin.Context) models.Actor {
	return models.Actor{ID: c.GetString("userID"), Role: c.GetString("role")}
}

// CreateBookingHandler handles POST /bookings.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid booking payload", err.Error())
		return
	}
	b, err := h.Service.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBookingHandler handles GET /bookings/:id.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Service.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBookingsHandler handles GET /bookings with status and pagination
// filters. The service scopes results to the caller's role.
func (h *BookingHandler) ListBookingsHandler(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	filter := models.BookingFilter{
		MentorID:  c.Query("mentorId"),
		StudentID: c.Query("studentId"),
		Status:    c.Query("status"),
		Page:      page,
		PageSize:  pageSize,
	}
	pageOut, err := h.Service.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageOut)
}

// UpdateBookingStatusHandler handles PATCH /bookings/:id/status.
func (h *BookingHandler) UpdateBookingStatusHandler(c *gin.Context) {
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid status payload", err.Error())
		return
	}
	b, err := h.Service.UpdateStatus(c.Request.Context(), actor(c), c.Param("id"), req.Status, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdatePaymentStatusHandler handles PATCH /bookings/:id/payment.
func (h *BookingHandler) UpdatePaymentStatusHandler(c *gin.Context) {
	var req models.PaymentStatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid payment payload", err.Error())
		return
	}
	b, err := h.Service.UpdatePaymentStatus(c.Request.Context(), actor(c), c.Param("id"), req.PaymentStatus, req.PaymentRef)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PayWithTokensHandler handles POST /bookings/:id/pay/tokens.
func (h *BookingHandler) PayWithTokensHandler(c *gin.Context) {
	b, err := h.Ledger.PayBookingWithTokens(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CreatePaymentIntentHandler handles POST /bookings/:id/pay/intent.
func (h *BookingHandler) CreatePaymentIntentHandler(c *gin.Context) {
	intent, err := h.Payments.CreateBookingIntent(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, intent)
}
