package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentra/config"
	"mentra/database"
	bookingRepoPkg "mentra/database/repository/booking"
	earningsRepoPkg "mentra/database/repository/earnings"
	ledgerRepoPkg "mentra/database/repository/ledger"
	offeringRepoPkg "mentra/database/repository/offering"
	userRepoPkg "mentra/database/repository/user"
	webhookEventRepoPkg "mentra/database/repository/webhookevent"
	"mentra/handlers"
	"mentra/middleware"
	"mentra/routes"
	"mentra/services/booking"
	"mentra/services/commission"
	"mentra/services/ledger"
	"mentra/services/notification"
	"mentra/services/payments"
	"mentra/services/tasks"
	"mentra/utils"
	"mentra/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	userRepo := userRepoPkg.NewMongoUserRepo()
	ledgerRepo := ledgerRepoPkg.NewMongoLedgerRepo()
	earningsRepo := earningsRepoPkg.NewMongoEarningsRepo()
	offeringRepo := offeringRepoPkg.NewMongoOfferingRepo()
	eventRepo := webhookEventRepoPkg.NewMongoWebhookEventRepo()

	// Event publisher: RabbitMQ when configured, the log otherwise.
	var publisher notification.EventPublisher
	if url := config.AppConfig.AMQPURL; url != "" {
		amqpPublisher, err := notification.NewAMQPPublisher(url, config.AppConfig.AMQPExchange)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to connect event publisher: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	} else {
		logger.Sugar().Warn("main: AMQP_URL not set, publishing events to the log only")
		publisher = notification.LogPublisher{}
	}
	notificationService, err := notification.NewDefaultNotificationService(publisher)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	// Reminder queue: asynq client for scheduling, worker for delivery.
	redisOpt := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	}
	reminderScheduler := tasks.NewAsynqScheduler(redisOpt, time.Duration(config.AppConfig.ReminderLeadMinutes)*time.Minute)
	defer reminderScheduler.Close()
	workers.StartReminderWorker(notificationService)

	// services.
	processor := payments.StripeProcessor{}

	earningsService := &commission.DefaultEarningsService{
		Repo:  earningsRepo,
		Tiers: config.CommissionTiers(),
	}

	bookingService := &booking.DefaultBookingService{
		Repo:          bookingRepo,
		UserRepo:      userRepo,
		OfferingRepo:  offeringRepo,
		Earnings:      earningsService,
		Notification:  notificationService,
		Reminders:     reminderScheduler,
		Cache:         utils.GetCacheClient(),
		DisputeWindow: time.Duration(config.AppConfig.DisputeWindowHours) * time.Hour,
	}

	ledgerService := &ledger.DefaultLedgerService{
		Repo:                ledgerRepo,
		Bookings:            bookingRepo,
		Processor:           processor,
		Notification:        notificationService,
		Reminders:           reminderScheduler,
		TokenUnitPriceCents: config.AppConfig.TokenUnitPriceCents,
		Currency:            config.AppConfig.PlatformCurrency,
	}

	paymentService := &payments.DefaultPaymentService{
		Bookings:            bookingRepo,
		Processor:           processor,
		TokenUnitPriceCents: config.AppConfig.TokenUnitPriceCents,
		Currency:            config.AppConfig.PlatformCurrency,
	}

	webhookService := &payments.DefaultWebhookService{
		Bookings:            bookingRepo,
		Users:               userRepo,
		Events:              eventRepo,
		Ledger:              ledgerService,
		Earnings:            earningsService,
		Notification:        notificationService,
		Reminders:           reminderScheduler,
		EndpointSecret:      config.AppConfig.StripeWebhookSecret,
		TokenUnitPriceCents: config.AppConfig.TokenUnitPriceCents,
	}

	operatorService := &payments.DefaultOperatorService{
		Bookings:            bookingRepo,
		Users:               userRepo,
		Events:              eventRepo,
		Ledger:              ledgerService,
		Processor:           processor,
		Notification:        notificationService,
		TokenUnitPriceCents: config.AppConfig.TokenUnitPriceCents,
		Currency:            config.AppConfig.PlatformCurrency,
	}

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		UserRepo: userRepo,
		Booking: &handlers.BookingHandler{
			Service:  bookingService,
			Ledger:   ledgerService,
			Payments: paymentService,
		},
		Wallet:   &handlers.WalletHandler{Ledger: ledgerService},
		Earnings: &handlers.EarningsHandler{Earnings: earningsService},
		Webhook:  &handlers.WebhookHandler{Service: webhookService},
		Operator: &handlers.OperatorHandler{Service: operatorService},
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	utils.StartHealthMonitor(
		map[string]*redis.Client{
			"cache": utils.GetCacheClient(),
			"auth":  utils.GetAuthCacheClient(),
		},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
