package notification

import (
	"context"

	"mentra/models"
)

// EventPublisher is the outbound port for notification events. The backend
// publishes routing-keyed JSON payloads; delivery channels (push, email,
// in-app) belong to downstream consumers.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// NotificationService emits the domain's notification events. Methods never
// return errors: notification is best-effort by contract, and a delivery
// failure must not fail the state change that triggered it. Failures are
// logged with enough context to replay by hand.
type NotificationService interface {
	BookingRequested(ctx context.Context, booking *models.Booking)
	BookingConfirmed(ctx context.Context, booking *models.Booking)
	BookingCancelled(ctx context.Context, booking *models.Booking, actor, reason string)

	PaymentReceived(ctx context.Context, event models.PaymentEvent)
	PaymentFailed(ctx context.Context, event models.PaymentEvent)

	PayoutPaid(ctx context.Context, event models.PayoutEvent)
	PayoutFailed(ctx context.Context, event models.PayoutEvent)
	PayoutAccountStatus(ctx context.Context, mentorID, status string)

	EarningsCreditFailed(ctx context.Context, alert models.EarningsAlert)
	SessionReminder(ctx context.Context, payload models.ReminderPayload)
}
