package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	bookingRepo "mentra/database/repository/booking"
	userRepo "mentra/database/repository/user"
	webhookEventRepo "mentra/database/repository/webhookevent"
	"mentra/models"
	"mentra/services/commission"
	"mentra/services/ledger"
	"mentra/services/notification"
	"mentra/services/tasks"
	"mentra/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// WebhookService reconciles processor events with booking, ledger and
// payout state. Deliveries are at-least-once and may arrive out of order;
// every handler checks current state before writing and the event store
// dedups by event id on top.
type WebhookService interface {
	// HandleEvent verifies the signature, claims the event id and
	// dispatches the event. A returned error means the delivery must be
	// retried by the processor.
	HandleEvent(ctx context.Context, payload []byte, signature string) error
}

// DefaultWebhookService is the production implementation.
type DefaultWebhookService struct {
	Bookings     bookingRepo.BookingRepository
	Users        userRepo.UserRepository
	Events       webhookEventRepo.WebhookEventRepository
	Ledger       ledger.LedgerService
	Earnings     commission.EarningsService
	Notification notification.NotificationService
	Reminders    tasks.ReminderScheduler

	EndpointSecret      string
	TokenUnitPriceCents int
}

func (s *DefaultWebhookService) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.EndpointSecret)
	if err != nil {
		return utils.PaymentProcessorError("webhook signature verification failed", err)
	}

	claimed, err := s.Events.Reserve(ctx, event.ID, string(event.Type))
	if err != nil {
		return utils.InternalError("failed to reserve webhook event", err)
	}
	if !claimed {
		utils.GetLogger().Info("webhook event already processed, acknowledging replay",
			zap.String("eventId", event.ID),
			zap.String("type", string(event.Type)),
		)
		return nil
	}

	procErr := s.dispatch(ctx, event)
	s.recordOutcome(ctx, event, procErr)
	return procErr
}

// recordOutcome stamps the event row and logs the result. Recording
// failures are logged on their own and never replace procErr.
func (s *DefaultWebhookService) recordOutcome(ctx context.Context, event stripe.Event, procErr error) {
	logger := utils.GetLogger()
	if procErr == nil {
		if err := s.Events.MarkProcessed(ctx, event.ID); err != nil {
			logger.Error("failed to record webhook outcome",
				zap.String("eventId", event.ID),
				zap.Error(err),
			)
		}
		logger.Info("webhook event processed",
			zap.String("eventId", event.ID),
			zap.String("type", string(event.Type)),
			zap.Bool("ok", true),
		)
		return
	}
	if err := s.Events.MarkFailed(ctx, event.ID, procErr); err != nil {
		logger.Error("failed to record webhook outcome",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
	}
	logger.Error("webhook event processing failed",
		zap.String("eventId", event.ID),
		zap.String("type", string(event.Type)),
		zap.Bool("ok", false),
		zap.Error(procErr),
	)
}

func (s *DefaultWebhookService) dispatch(ctx context.Context, event stripe.Event) error {
	switch string(event.Type) {
	case "payment_intent.succeeded":
		return s.onPaymentSucceeded(ctx, event)
	case "payment_intent.payment_failed":
		return s.onPaymentFailed(ctx, event)
	case "transfer.created":
		return s.onTransferCreated(ctx, event)
	case "transfer.failed":
		return s.onTransferFailed(ctx, event)
	case "account.updated":
		return s.onAccountUpdated(ctx, event)
	case "account.application.deauthorized":
		return s.onAccountDeauthorized(ctx, event)
	default:
		utils.GetLogger().Info("ignoring unhandled webhook event type",
			zap.String("eventId", event.ID),
			zap.String("type", string(event.Type)),
		)
		return nil
	}
}

func decodeEvent(event stripe.Event, v any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return utils.ValidationError("webhook event %s carries no data object", event.ID)
	}
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return utils.ValidationError("webhook event %s carries a malformed data object: %v", event.ID, err)
	}
	return nil
}

// tokensFor converts processor minor units to platform units.
func (s *DefaultWebhookService) tokensFor(amountCents int64) float64 {
	return commission.Round2(float64(amountCents) / float64(s.TokenUnitPriceCents))
}

func (s *DefaultWebhookService) onPaymentSucceeded(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := decodeEvent(event, &pi); err != nil {
		return err
	}
	reference := pi.Metadata["reference"]

	switch {
	case strings.HasPrefix(reference, models.RefPrefixBooking):
		return s.applyBookingPayment(ctx, &pi, strings.TrimPrefix(reference, models.RefPrefixBooking))

	case strings.HasPrefix(reference, models.RefPrefixTopUp):
		userID := pi.Metadata["userId"]
		if userID == "" {
			return utils.ValidationError("top-up intent %s carries no user id", pi.ID)
		}
		_, err := s.Ledger.CreditTopUp(ctx, userID, s.tokensFor(pi.Amount), reference)
		return err

	case strings.HasPrefix(reference, models.RefPrefixMessage):
		mentorID := pi.Metadata["mentorId"]
		if mentorID == "" {
			return utils.ValidationError("message intent %s carries no mentor id", pi.ID)
		}
		_, err := s.Earnings.ApplyMessageIncome(ctx, mentorID, s.tokensFor(pi.Amount))
		return err

	default:
		utils.GetLogger().Info("payment intent carries no recognized reference, skipping",
			zap.String("eventId", event.ID),
			zap.String("intentId", pi.ID),
			zap.String("reference", reference),
		)
		return nil
	}
}

func (s *DefaultWebhookService) applyBookingPayment(ctx context.Context, pi *stripe.PaymentIntent, bookingID string) error {
	logger := utils.GetLogger()

	updated, err := s.Bookings.MarkPaid(ctx, bookingID, pi.ID, models.MethodStripe)
	if err != nil {
		return err
	}
	if updated == nil {
		logger.Info("booking not awaiting payment, skipping",
			zap.String("bookingId", bookingID),
			zap.String("intentId", pi.ID),
		)
		return nil
	}

	s.Notification.PaymentReceived(ctx, models.PaymentEvent{
		BookingID: updated.ID,
		UserID:    updated.StudentID,
		Amount:    updated.Amount,
		Method:    models.MethodStripe,
		Reference: pi.ID,
	})
	if updated.Status == models.StatusConfirmed {
		s.Notification.BookingConfirmed(ctx, updated)
		if s.Reminders != nil {
			if err := s.Reminders.Schedule(ctx, updated); err != nil {
				logger.Error("failed to schedule session reminder",
					zap.String("bookingId", updated.ID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (s *DefaultWebhookService) onPaymentFailed(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := decodeEvent(event, &pi); err != nil {
		return err
	}
	logger := utils.GetLogger()
	reference := pi.Metadata["reference"]

	if !strings.HasPrefix(reference, models.RefPrefixBooking) {
		if userID := pi.Metadata["userId"]; userID != "" {
			s.Notification.PaymentFailed(ctx, models.PaymentEvent{
				UserID:    userID,
				Amount:    s.tokensFor(pi.Amount),
				Method:    models.MethodStripe,
				Reference: pi.ID,
			})
		}
		logger.Info("non-booking payment failed",
			zap.String("eventId", event.ID),
			zap.String("intentId", pi.ID),
			zap.String("reference", reference),
		)
		return nil
	}

	bookingID := strings.TrimPrefix(reference, models.RefPrefixBooking)
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		if utils.KindOf(err) == utils.KindNotFound {
			logger.Warn("payment failed for unknown booking, skipping",
				zap.String("bookingId", bookingID),
				zap.String("intentId", pi.ID),
			)
			return nil
		}
		return err
	}
	// Out-of-order delivery: a failure landing after the success must not
	// clobber the paid state.
	if booking.PaymentStatus == models.PaymentPaid {
		logger.Warn("ignoring payment failure for already-paid booking",
			zap.String("bookingId", bookingID),
			zap.String("intentId", pi.ID),
		)
		return nil
	}
	if err := s.Bookings.SetPaymentStatus(bookingID, models.PaymentPending, pi.ID); err != nil {
		return err
	}
	s.Notification.PaymentFailed(ctx, models.PaymentEvent{
		BookingID: bookingID,
		UserID:    booking.StudentID,
		Amount:    booking.Amount,
		Method:    models.MethodStripe,
		Reference: pi.ID,
	})
	return nil
}

func (s *DefaultWebhookService) onTransferCreated(ctx context.Context, event stripe.Event) error {
	var tr stripe.Transfer
	if err := decodeEvent(event, &tr); err != nil {
		return err
	}
	now := time.Now().UTC()
	update := models.PayoutUpdate{Status: models.PayoutPaid, TransferID: tr.ID, Date: &now}

	modified, err := s.Bookings.UpdatePayoutByTransfer(tr.ID, update)
	if err != nil {
		return err
	}
	if modified == 0 {
		// Nothing references the transfer yet: the operator path may have
		// crashed between the transfer and its bookkeeping. The metadata
		// booking id repairs that gap.
		if bookingID := tr.Metadata["bookingId"]; bookingID != "" {
			changed, err := s.Bookings.UpdatePayout(bookingID, update)
			if err != nil {
				return err
			}
			if changed {
				modified = 1
			}
		}
	}
	if modified == 0 {
		utils.GetLogger().Info("transfer already reconciled, replay ignored",
			zap.String("eventId", event.ID),
			zap.String("transferId", tr.ID),
		)
		return nil
	}
	s.notifyPayoutOutcome(ctx, tr.ID, true, "")
	return nil
}

func (s *DefaultWebhookService) onTransferFailed(ctx context.Context, event stripe.Event) error {
	var tr stripe.Transfer
	if err := decodeEvent(event, &tr); err != nil {
		return err
	}
	reason := "transfer failed at processor"
	update := models.PayoutUpdate{Status: models.PayoutFailed, TransferID: tr.ID, FailureReason: reason}

	modified, err := s.Bookings.UpdatePayoutByTransfer(tr.ID, update)
	if err != nil {
		return err
	}
	if modified == 0 {
		utils.GetLogger().Info("transfer failure already reconciled, replay ignored",
			zap.String("eventId", event.ID),
			zap.String("transferId", tr.ID),
		)
		return nil
	}
	s.notifyPayoutOutcome(ctx, tr.ID, false, reason)
	return nil
}

// notifyPayoutOutcome tells the mentor about a transfer outcome, once per
// transfer. The payout state is already written; a lookup failure here
// costs the notification, not correctness.
func (s *DefaultWebhookService) notifyPayoutOutcome(ctx context.Context, transferID string, paid bool, reason string) {
	bookings, err := s.Bookings.ListByTransfer(transferID)
	if err != nil {
		utils.GetLogger().Error("failed to load bookings for payout notification",
			zap.String("transferId", transferID),
			zap.Error(err),
		)
		return
	}
	if len(bookings) == 0 {
		return
	}
	total := 0.0
	for _, b := range bookings {
		total += b.MentorPayout
	}
	event := models.PayoutEvent{
		MentorID:   bookings[0].MentorID,
		TransferID: transferID,
		Amount:     commission.Round2(total),
		Reason:     reason,
	}
	if paid {
		s.Notification.PayoutPaid(ctx, event)
	} else {
		s.Notification.PayoutFailed(ctx, event)
	}
}

// payoutAccountStatus derives the platform's view of a connected account.
func payoutAccountStatus(acct *stripe.Account) string {
	if acct.Requirements != nil {
		if reason := string(acct.Requirements.DisabledReason); strings.HasPrefix(reason, "rejected") {
			return models.PayoutAccountRejected
		}
	}
	if acct.ChargesEnabled && acct.PayoutsEnabled {
		return models.PayoutAccountActive
	}
	return models.PayoutAccountPending
}

func (s *DefaultWebhookService) onAccountUpdated(ctx context.Context, event stripe.Event) error {
	var acct stripe.Account
	if err := decodeEvent(event, &acct); err != nil {
		return err
	}
	accountID := acct.ID
	if accountID == "" {
		accountID = event.Account
	}
	if accountID == "" {
		utils.GetLogger().Warn("account event carries no account id, skipping",
			zap.String("eventId", event.ID),
		)
		return nil
	}
	return s.setPayoutAccountStatus(ctx, accountID, payoutAccountStatus(&acct))
}

func (s *DefaultWebhookService) onAccountDeauthorized(ctx context.Context, event stripe.Event) error {
	if event.Account == "" {
		utils.GetLogger().Warn("deauthorization event carries no account id, skipping",
			zap.String("eventId", event.ID),
		)
		return nil
	}
	return s.setPayoutAccountStatus(ctx, event.Account, models.PayoutAccountRejected)
}

// setPayoutAccountStatus resolves the owning mentor and writes the status,
// notifying only on an observed transition.
func (s *DefaultWebhookService) setPayoutAccountStatus(ctx context.Context, accountID, status string) error {
	mentor, err := s.Users.FindByPayoutAccount(accountID)
	if err != nil {
		return err
	}
	if mentor == nil {
		utils.GetLogger().Warn("no mentor references payout account, skipping",
			zap.String("accountId", accountID),
		)
		return nil
	}
	changed, err := s.Users.SetPayoutAccountStatus(ctx, mentor.ID, status)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	utils.GetLogger().Info("mentor payout account status changed",
		zap.String("mentorId", mentor.ID),
		zap.String("accountId", accountID),
		zap.String("status", status),
	)
	s.Notification.PayoutAccountStatus(ctx, mentor.ID, status)
	return nil
}
