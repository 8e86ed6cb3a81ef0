package booking

import (
	"context"
	"time"

	"mentra/models"
	"mentra/services/commission"
	"mentra/utils"

	"go.uber.org/zap"
)

// UpdateStatus applies one lifecycle transition. The target set is closed;
// authorization is checked before state so an unauthorized caller learns
// nothing about the booking's current phase.
func (s *DefaultBookingService) UpdateStatus(ctx context.Context, actor models.Actor, id, target, reason string) (*models.Booking, error) {
	switch target {
	case models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled, models.StatusReviewed:
	default:
		return nil, utils.ValidationError("unsupported status transition target %q", target)
	}

	booking, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(actor, booking, target); err != nil {
		return nil, err
	}

	switch target {
	case models.StatusConfirmed:
		return s.confirm(ctx, booking)
	case models.StatusCompleted:
		return s.complete(ctx, booking)
	case models.StatusCancelled:
		return s.cancel(ctx, booking, actor, reason)
	default:
		return s.review(ctx, booking)
	}
}

// authorizeTransition enforces the transition whitelist: the mentor owns
// confirmation and completion, either participant may cancel, and reviewed
// belongs to the student (or an operator on their behalf).
func authorizeTransition(actor models.Actor, b *models.Booking, target string) error {
	switch target {
	case models.StatusConfirmed, models.StatusCompleted:
		if actor.ID != b.MentorID {
			return utils.AuthorizationError("only the booked mentor may mark booking %s %s", b.ID, target)
		}
	case models.StatusCancelled:
		if !b.IsParticipant(actor.ID) {
			return utils.AuthorizationError("only booking participants may cancel booking %s", b.ID)
		}
	case models.StatusReviewed:
		if actor.Role == models.RoleOperator {
			return nil
		}
		if actor.ID != b.StudentID {
			return utils.AuthorizationError("only the student may mark booking %s reviewed", b.ID)
		}
	}
	return nil
}

func (s *DefaultBookingService) confirm(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	if !models.ValidPaymentStatus(b.PaymentStatus) {
		return nil, utils.DomainStateError("booking %s carries unknown payment status %q", b.ID, b.PaymentStatus)
	}
	if b.PaymentStatus != models.PaymentPaid {
		return nil, utils.DomainStateError("booking %s cannot be confirmed before payment completes", b.ID)
	}

	ok, err := s.Repo.SetStatus(b.ID, models.StatusPending, models.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.DomainStateError("booking %s is not awaiting confirmation (status %s)", b.ID, b.Status)
	}
	b.Status = models.StatusConfirmed

	s.Notification.BookingConfirmed(ctx, b)
	if err := s.Reminders.Schedule(ctx, b); err != nil {
		utils.GetLogger().Error("failed to schedule session reminder",
			zap.String("bookingId", b.ID), zap.Error(err))
	}
	return b, nil
}

// complete turns a confirmed booking reviewable. Completed is transient: the
// stored status is reviewable from the same write. When the booking is paid
// the commission split is snapshotted at the mentor's current tier and the
// earnings ledger is credited; an earnings failure alerts but never rolls
// back the transition.
func (s *DefaultBookingService) complete(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	if !models.ValidPaymentStatus(b.PaymentStatus) {
		return nil, utils.DomainStateError("booking %s carries unknown payment status %q", b.ID, b.PaymentStatus)
	}

	if b.PaymentStatus != models.PaymentPaid {
		ok, err := s.Repo.SetStatus(b.ID, models.StatusConfirmed, models.StatusReviewable)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, utils.DomainStateError("booking %s is not completable (status %s)", b.ID, b.Status)
		}
		b.Status = models.StatusReviewable
		return b, nil
	}

	tier, err := s.Earnings.CurrentTier(b.MentorID)
	if err != nil {
		return nil, err
	}
	platformCut, payout := commission.Split(b.Amount, tier)
	settlement := models.CompletionSettlement{
		Tier:              tier.Name,
		Commission:        platformCut,
		Payout:            payout,
		DisputePeriodEnds: time.Now().Add(s.DisputeWindow),
	}

	ok, err := s.Repo.SettleCompletion(b.ID, settlement)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.DomainStateError("booking %s is not completable (status %s)", b.ID, b.Status)
	}

	b.Status = models.StatusReviewable
	b.CommissionTier = settlement.Tier
	b.PlatformCommission = settlement.Commission
	b.MentorPayout = settlement.Payout
	b.PayoutStatus = models.PayoutPending
	disputeEnds := settlement.DisputePeriodEnds
	b.DisputePeriodEnds = &disputeEnds

	if _, err := s.Earnings.ApplySessionIncome(ctx, b.MentorID, payout); err != nil {
		utils.GetLogger().Error("earnings credit failed after completion; booking stands",
			zap.String("bookingId", b.ID),
			zap.String("mentorId", b.MentorID),
			zap.Float64("net", payout),
			zap.Error(err),
		)
		s.Notification.EarningsCreditFailed(ctx, models.EarningsAlert{
			BookingID: b.ID,
			MentorID:  b.MentorID,
			Reason:    err.Error(),
		})
	}
	return b, nil
}

func (s *DefaultBookingService) cancel(ctx context.Context, b *models.Booking, actor models.Actor, reason string) (*models.Booking, error) {
	if err := s.Repo.Terminate(ctx, b.ID, models.StatusCancelled, actor.ID, reason); err != nil {
		return nil, err
	}
	b.Status = models.StatusCancelled
	b.CancelReason = reason
	b.CancelledBy = actor.ID

	if err := s.Reminders.Cancel(ctx, b.ID); err != nil {
		utils.GetLogger().Error("failed to cancel session reminder",
			zap.String("bookingId", b.ID), zap.Error(err))
	}
	s.Notification.BookingCancelled(ctx, b, actor.ID, reason)
	s.invalidateSlotCache(ctx, b.MentorID, b.MentorTimezone, b.ScheduledAt)

	// Refunds are never inline: a cancelled paid booking goes through the
	// operator refund path.
	return b, nil
}

func (s *DefaultBookingService) review(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	ok, err := s.Repo.SetStatus(b.ID, models.StatusReviewable, models.StatusReviewed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.DomainStateError("booking %s is not reviewable (status %s)", b.ID, b.Status)
	}
	b.Status = models.StatusReviewed
	return b, nil
}
