package routes

import (
	"net/http"
	"time"

	"mentra/handlers"
	"mentra/middleware"
	"mentra/models"
	"mentra/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	bookings := api.Group("/bookings")
	bookings.Use(middleware.AuthMiddleware(hb.UserRepo))
	{
		bookings.POST("", hb.Booking.CreateBookingHandler)
		bookings.GET("", hb.Booking.ListBookingsHandler)
		bookings.GET("/:id", hb.Booking.GetBookingHandler)
		bookings.PATCH("/:id/status", hb.Booking.UpdateBookingStatusHandler)
		bookings.PATCH("/:id/payment", hb.Booking.UpdatePaymentStatusHandler)
		bookings.POST("/:id/pay/tokens", hb.Booking.PayWithTokensHandler)
		bookings.POST("/:id/pay/intent", hb.Booking.CreatePaymentIntentHandler)
	}
}

// RegisterMentorRoutes registers availability and earnings endpoints.
func RegisterMentorRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	mentors := api.Group("/mentors")
	mentors.Use(middleware.AuthMiddleware(hb.UserRepo))
	{
		mentors.GET("/:id/availability", hb.Booking.MentorAvailabilityHandler)
		mentors.GET("/:id/slots", hb.Booking.MentorSlotsHandler)
		mentors.GET("/:id/earnings", hb.Earnings.GetEarningsHandler)
		mentors.GET("/:id/earnings/monthly", hb.Earnings.GetMonthlyEarningsHandler)
	}
}

// RegisterWalletRoutes registers the caller's token wallet endpoints.
func RegisterWalletRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	wallet := api.Group("/wallet")
	wallet.Use(middleware.AuthMiddleware(hb.UserRepo))
	{
		wallet.GET("", hb.Wallet.GetWalletHandler)
		wallet.GET("/transactions", hb.Wallet.ListTransactionsHandler)
		wallet.GET("/sufficient", hb.Wallet.CheckSufficientHandler)
		wallet.POST("/topup", hb.Wallet.CreateTopUpHandler)
		wallet.POST("/topup/confirm", hb.Wallet.ConfirmTopUpHandler)
	}
}

// RegisterWebhookRoutes registers the processor event receiver. The route
// is public; the handler verifies the delivery signature.
func RegisterWebhookRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	api.POST("/payments/webhook", hb.Webhook.HandleWebhookHandler)
}

// RegisterOperatorRoutes registers the operator intervention endpoints.
func RegisterOperatorRoutes(api *gin.RouterGroup, hb *handlers.HandlerBundle) {
	operator := api.Group("/operator")
	operator.Use(middleware.AuthMiddleware(hb.UserRepo), middleware.RequireRole(models.RoleOperator))
	{
		operator.POST("/refunds/:bookingId", hb.Operator.ManualRefundHandler)
		operator.POST("/payouts/:bookingId", hb.Operator.ManualPayoutHandler)
		operator.POST("/payouts/:bookingId/retry", hb.Operator.RetryPayoutHandler)
		operator.GET("/webhook-events", hb.Operator.ListWebhookEventsHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint reporting the
// latest dependency probe snapshot.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		health := utils.GetHealthStatus()
		if !health.Healthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "dependencies": health})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Mentra", "dependencies": health})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api/v1")
	RegisterBookingRoutes(api, hb)
	RegisterMentorRoutes(api, hb)
	RegisterWalletRoutes(api, hb)
	RegisterWebhookRoutes(api, hb)
	RegisterOperatorRoutes(api, hb)
	RegisterHealthRoute(r)
}
