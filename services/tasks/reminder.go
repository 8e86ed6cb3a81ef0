package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mentra/models"

	"github.com/hibiken/asynq"
)

const TypeSessionReminder = "reminder:session"

// ReminderTaskID derives the task identity from the booking, so scheduling
// is idempotent and a cancellation can find the pending task without extra
// bookkeeping.
func ReminderTaskID(bookingID string) string {
	return "reminder:booking:" + bookingID
}

func NewSessionReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSessionReminder, b)
	opts := []asynq.Option{
		asynq.TaskID(ReminderTaskID(payload.BookingID)),
		asynq.ProcessAt(fireAt),
	}
	return task, opts, nil
}

// ReminderScheduler books and revokes session reminders. Callers treat
// failures as non-fatal: a booking state change never rolls back because a
// reminder could not be queued.
type ReminderScheduler interface {
	// Schedule queues a reminder ahead of the booking's start. Scheduling
	// the same booking twice is a no-op, and bookings already past their
	// reminder window fire immediately or are skipped once begun.
	Schedule(ctx context.Context, booking *models.Booking) error

	// Cancel revokes a pending reminder. Cancelling a reminder that never
	// existed or has already fired is a no-op.
	Cancel(ctx context.Context, bookingID string) error
}

// AsynqScheduler is the Redis-backed implementation.
type AsynqScheduler struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	Lead      time.Duration
}

func NewAsynqScheduler(redisOpt asynq.RedisClientOpt, lead time.Duration) *AsynqScheduler {
	return &AsynqScheduler{
		Client:    asynq.NewClient(redisOpt),
		Inspector: asynq.NewInspector(redisOpt),
		Lead:      lead,
	}
}

func (s *AsynqScheduler) Schedule(_ context.Context, booking *models.Booking) error {
	now := time.Now()
	if booking.ScheduledAt.Before(now) {
		return nil
	}
	fireAt := booking.ScheduledAt.Add(-s.Lead)
	if fireAt.Before(now) {
		fireAt = now
	}

	payload := models.ReminderPayload{
		BookingID: booking.ID,
		MentorID:  booking.MentorID,
		StudentID: booking.StudentID,
		StartsAt:  booking.ScheduledAt,
		Title:     "Upcoming mentorship session",
		Body:      fmt.Sprintf("Your session starts at %s.", booking.ScheduledAt.UTC().Format(time.RFC3339)),
	}
	task, opts, err := NewSessionReminderTask(payload, fireAt)
	if err != nil {
		return err
	}
	if _, err := s.Client.Enqueue(task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return err
	}
	return nil
}

func (s *AsynqScheduler) Cancel(_ context.Context, bookingID string) error {
	err := s.Inspector.DeleteTask("default", ReminderTaskID(bookingID))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		return nil
	default:
		return err
	}
}

func (s *AsynqScheduler) Close() error {
	return s.Client.Close()
}
