package payments

import (
	"context"
	"math"
	"time"

	bookingRepo "mentra/database/repository/booking"
	userRepo "mentra/database/repository/user"
	webhookEventRepo "mentra/database/repository/webhookevent"
	"mentra/models"
	"mentra/services/ledger"
	"mentra/services/notification"
	"mentra/utils"

	"go.uber.org/zap"
)

// OperatorService is the synchronous intervention surface: forced refunds,
// manual payouts and payout retries, plus the recent webhook event log.
type OperatorService interface {
	// ManualRefund routes the refund by the booking's payment method:
	// token-funded bookings go back to the wallet, processor-funded ones
	// are refunded at the processor. A failure surfaces without mutating
	// the booking.
	ManualRefund(ctx context.Context, bookingID, reason string) (*models.Booking, error)

	// ManualPayout transfers mentorPayout to the mentor's connected
	// account. Permitted only after completion, payment, and an elapsed
	// dispute window, with an active payout account.
	ManualPayout(ctx context.Context, bookingID string) (*models.Booking, error)

	// RetryPayout re-runs the payout when the previous attempt failed or
	// never reached paid status; anything else is not retryable.
	RetryPayout(ctx context.Context, bookingID string) (*models.Booking, error)

	// RecentWebhookEvents returns the newest processor event rows.
	RecentWebhookEvents(limit int64) ([]models.WebhookEvent, error)
}

// DefaultOperatorService is the production implementation.
type DefaultOperatorService struct {
	Bookings     bookingRepo.BookingRepository
	Users        userRepo.UserRepository
	Events       webhookEventRepo.WebhookEventRepository
	Ledger       ledger.LedgerService
	Processor    Processor
	Notification notification.NotificationService

	TokenUnitPriceCents int
	Currency            string
}

func (s *DefaultOperatorService) ManualRefund(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	switch booking.PaymentMethod {
	case models.MethodTokens:
		return s.Ledger.RefundBookingToTokens(ctx, bookingID, reason)
	case models.MethodStripe:
		return s.refundProcessorPayment(ctx, booking, reason)
	default:
		return nil, utils.DomainStateError("booking %s has no recorded payment to refund", bookingID)
	}
}

func (s *DefaultOperatorService) refundProcessorPayment(ctx context.Context, booking *models.Booking, reason string) (*models.Booking, error) {
	if !models.ValidPaymentStatus(booking.PaymentStatus) {
		return nil, utils.DomainStateError("booking %s has unknown payment status %q", booking.ID, booking.PaymentStatus)
	}
	if booking.PaymentStatus == models.PaymentRefunded {
		return nil, utils.ConflictError("booking %s is already refunded", booking.ID)
	}
	if booking.PaymentStatus != models.PaymentPaid {
		return nil, utils.DomainStateError("only paid bookings can be refunded")
	}
	if booking.PaymentRef == "" {
		return nil, utils.DomainStateError("booking %s has no stored payment intent to refund against", booking.ID)
	}

	refund, err := s.Processor.RefundPayment(ctx, booking.PaymentRef, reason)
	if err != nil {
		return nil, err
	}

	record := models.RefundRecord{
		Processed:   true,
		Reason:      reason,
		Reference:   refund.ID,
		ProcessedAt: time.Now().UTC(),
	}
	changed, err := s.Bookings.MarkRefunded(ctx, booking.ID, record)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, utils.ConflictError("refund already recorded for booking %s", booking.ID)
	}

	booking.PaymentStatus = models.PaymentRefunded
	booking.Refund = &record
	utils.GetLogger().Info("booking refunded at processor",
		zap.String("bookingId", booking.ID),
		zap.String("refundId", refund.ID),
		zap.Float64("amount", booking.Amount),
	)
	return booking, nil
}

func (s *DefaultOperatorService) ManualPayout(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if err := payoutEligible(booking); err != nil {
		return nil, err
	}

	mentor, err := s.Users.GetMentor(booking.MentorID)
	if err != nil {
		return nil, err
	}
	if mentor.PayoutAccountID == "" {
		return nil, utils.DomainStateError("mentor %s has no connected payout account", mentor.ID)
	}
	if mentor.PayoutAccountStatus != models.PayoutAccountActive {
		return nil, utils.DomainStateError("mentor %s payout account is %s, not active", mentor.ID, mentor.PayoutAccountStatus)
	}

	cents := int64(math.Round(booking.MentorPayout * float64(s.TokenUnitPriceCents)))
	if cents <= 0 {
		return nil, utils.DomainStateError("booking %s has no payout amount", bookingID)
	}

	transfer, err := s.Processor.CreateTransfer(ctx, cents, s.Currency, mentor.PayoutAccountID, map[string]string{
		"bookingId": booking.ID,
	})
	if err != nil {
		return nil, err
	}

	// The transfer is out; bookkeeping mirrors what transfer.created will
	// write, so whichever path lands second converges to a no-op.
	now := time.Now().UTC()
	update := models.PayoutUpdate{Status: models.PayoutPaid, TransferID: transfer.ID, Date: &now}
	changed, err := s.Bookings.UpdatePayout(booking.ID, update)
	if err != nil {
		return nil, utils.InternalError("transfer created but payout bookkeeping failed", err)
	}

	booking.PayoutStatus = models.PayoutPaid
	booking.TransferID = transfer.ID
	booking.PayoutDate = &now
	booking.PayoutFailureReason = ""

	utils.GetLogger().Info("manual payout transferred",
		zap.String("bookingId", booking.ID),
		zap.String("mentorId", mentor.ID),
		zap.String("transferId", transfer.ID),
		zap.Float64("payout", booking.MentorPayout),
	)
	if changed {
		s.Notification.PayoutPaid(ctx, models.PayoutEvent{
			MentorID:   mentor.ID,
			TransferID: transfer.ID,
			Amount:     booking.MentorPayout,
		})
	}
	return booking, nil
}

func (s *DefaultOperatorService) RetryPayout(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	retryable := booking.PayoutStatus == models.PayoutFailed ||
		(isCompleted(booking) && booking.PaymentStatus == models.PaymentPaid && booking.PayoutStatus != models.PayoutPaid)
	if !retryable {
		return nil, utils.DomainStateError("booking %s payout is not retryable", bookingID)
	}
	return s.ManualPayout(ctx, bookingID)
}

func (s *DefaultOperatorService) RecentWebhookEvents(limit int64) ([]models.WebhookEvent, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return s.Events.ListRecent(limit)
}

func isCompleted(b *models.Booking) bool {
	return b.Status == models.StatusReviewable || b.Status == models.StatusReviewed
}

// payoutEligible gates the manual payout path: completed, paid, not already
// paid out, and past the dispute window.
func payoutEligible(b *models.Booking) error {
	if !isCompleted(b) {
		return utils.DomainStateError("booking %s is not completed", b.ID)
	}
	if !models.ValidPaymentStatus(b.PaymentStatus) {
		return utils.DomainStateError("booking %s has unknown payment status %q", b.ID, b.PaymentStatus)
	}
	if b.PaymentStatus != models.PaymentPaid {
		return utils.DomainStateError("booking %s is not paid", b.ID)
	}
	if b.PayoutStatus == models.PayoutPaid {
		return utils.ConflictError("payout for booking %s is already paid", b.ID)
	}
	if b.DisputePeriodEnds != nil && time.Now().Before(*b.DisputePeriodEnds) {
		return utils.DomainStateError("dispute window for booking %s is open until %s", b.ID, b.DisputePeriodEnds.UTC().Format(time.RFC3339))
	}
	return nil
}
