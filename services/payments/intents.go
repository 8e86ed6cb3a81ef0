package payments

import (
	"context"
	"math"

	bookingRepo "mentra/database/repository/booking"
	"mentra/models"
	"mentra/utils"

	"go.uber.org/zap"
)

// PaymentService opens processor intents for booking checkout. The intent
// carries the booking reference in its metadata; the webhook reconciler
// completes the payment when the processor reports success.
type PaymentService interface {
	CreateBookingIntent(ctx context.Context, studentID, bookingID string) (*models.PaymentIntentInfo, error)
}

// DefaultPaymentService is the production implementation.
type DefaultPaymentService struct {
	Bookings  bookingRepo.BookingRepository
	Processor Processor

	TokenUnitPriceCents int
	Currency            string
}

func (s *DefaultPaymentService) CreateBookingIntent(ctx context.Context, studentID, bookingID string) (*models.PaymentIntentInfo, error) {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.StudentID != studentID {
		return nil, utils.AuthorizationError("booking belongs to another student")
	}
	if !models.ValidPaymentStatus(booking.PaymentStatus) {
		return nil, utils.DomainStateError("booking %s has unknown payment status %q", bookingID, booking.PaymentStatus)
	}
	if booking.PaymentStatus == models.PaymentPaid {
		return nil, utils.ConflictError("booking %s is already paid", bookingID)
	}
	if booking.PaymentStatus == models.PaymentRefunded {
		return nil, utils.DomainStateError("booking %s was refunded and cannot be paid again", bookingID)
	}
	if booking.Status == models.StatusCancelled || booking.Status == models.StatusFailed {
		return nil, utils.DomainStateError("booking %s is no longer payable", bookingID)
	}

	cents := int64(math.Round(booking.Amount * float64(s.TokenUnitPriceCents)))
	if cents <= 0 {
		return nil, utils.DomainStateError("booking %s has a non-chargeable amount %.2f", bookingID, booking.Amount)
	}

	reference := models.RefPrefixBooking + bookingID
	metadata := map[string]string{
		"reference": reference,
		"bookingId": bookingID,
		"userId":    studentID,
	}
	intent, err := s.Processor.CreateIntent(ctx, cents, s.Currency, "Mentorship session", metadata)
	if err != nil {
		return nil, err
	}

	utils.GetLogger().Info("booking payment intent created",
		zap.String("bookingId", bookingID),
		zap.String("intentId", intent.ID),
		zap.Int64("amountCents", cents),
	)
	return intent, nil
}
