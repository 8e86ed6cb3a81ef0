package notification

import (
	"context"
	"fmt"

	"mentra/models"
	"mentra/utils"

	"go.uber.org/zap"
)

// DefaultNotificationService is the production implementation. It maps
// domain objects onto event payloads and hands them to the publisher.
type DefaultNotificationService struct {
	Publisher EventPublisher
}

func NewDefaultNotificationService(pub EventPublisher) (*DefaultNotificationService, error) {
	if pub == nil {
		return nil, fmt.Errorf("notification service initialization error: publisher is nil")
	}
	return &DefaultNotificationService{Publisher: pub}, nil
}

func (s *DefaultNotificationService) BookingRequested(ctx context.Context, booking *models.Booking) {
	s.publish(ctx, models.EventBookingRequested, bookingEvent(booking, "", ""))
}

func (s *DefaultNotificationService) BookingConfirmed(ctx context.Context, booking *models.Booking) {
	s.publish(ctx, models.EventBookingConfirmed, bookingEvent(booking, "", ""))
}

func (s *DefaultNotificationService) BookingCancelled(ctx context.Context, booking *models.Booking, actor, reason string) {
	s.publish(ctx, models.EventBookingCancelled, bookingEvent(booking, actor, reason))
}

func (s *DefaultNotificationService) PaymentReceived(ctx context.Context, event models.PaymentEvent) {
	event.Succeeded = true
	s.publish(ctx, models.EventPaymentReceived, event)
}

func (s *DefaultNotificationService) PaymentFailed(ctx context.Context, event models.PaymentEvent) {
	event.Succeeded = false
	s.publish(ctx, models.EventPaymentFailed, event)
}

func (s *DefaultNotificationService) PayoutPaid(ctx context.Context, event models.PayoutEvent) {
	s.publish(ctx, models.EventPayoutPaid, event)
}

func (s *DefaultNotificationService) PayoutFailed(ctx context.Context, event models.PayoutEvent) {
	s.publish(ctx, models.EventPayoutFailed, event)
}

func (s *DefaultNotificationService) PayoutAccountStatus(ctx context.Context, mentorID, status string) {
	s.publish(ctx, models.EventPayoutAccount, models.AccountStatusEvent{
		MentorID: mentorID,
		Status:   status,
	})
}

func (s *DefaultNotificationService) EarningsCreditFailed(ctx context.Context, alert models.EarningsAlert) {
	s.publish(ctx, models.EventEarningsAlert, alert)
}

func (s *DefaultNotificationService) SessionReminder(ctx context.Context, payload models.ReminderPayload) {
	s.publish(ctx, models.EventSessionReminder, payload)
}

func (s *DefaultNotificationService) publish(ctx context.Context, key string, payload any) {
	if err := s.Publisher.PublishJSON(ctx, key, payload); err != nil {
		utils.GetLogger().Error("failed to publish notification event",
			zap.String("event", key),
			zap.Any("payload", payload),
			zap.Error(err),
		)
	}
}

func bookingEvent(b *models.Booking, actor, reason string) models.BookingEvent {
	return models.BookingEvent{
		BookingID:   b.ID,
		MentorID:    b.MentorID,
		StudentID:   b.StudentID,
		Status:      b.Status,
		Amount:      b.Amount,
		ScheduledAt: b.ScheduledAt,
		Actor:       actor,
		Reason:      reason,
	}
}
