package workers

import (
	"context"
	"encoding/json"
	"time"

	"mentra/config"
	"mentra/models"
	"mentra/services/notification"
	"mentra/services/tasks"
	"mentra/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// StartReminderWorker runs the asynq worker in the background and delivers
// due session reminders through the notification service.
func StartReminderWorker(notifSvc notification.NotificationService) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSessionReminder, handleSessionReminder(notifSvc))

	go func() {
		logger := utils.GetLogger().With(zap.String("component", "reminder-worker"))
		logger.Info("starting reminder worker")

		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("reminder worker stopped",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			if attempt == maxAttempts {
				logger.Fatal("reminder worker exhausted restart attempts")
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()
}

func handleSessionReminder(notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid reminder payload", zap.Error(err))
			return err
		}

		// A reminder delivered after the session began is noise; drop it
		// instead of retrying.
		if !p.StartsAt.IsZero() && p.StartsAt.Before(time.Now()) {
			utils.GetLogger().Warn("dropping stale session reminder",
				zap.String("bookingId", p.BookingID),
				zap.Time("startsAt", p.StartsAt),
			)
			return nil
		}

		notifSvc.SessionReminder(ctx, p)
		return nil
	}
}
