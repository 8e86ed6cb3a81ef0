package ledger

import (
	"context"
	"time"

	"mentra/models"
	"mentra/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *DefaultLedgerService) Balance(userID string) (*models.WalletSummary, error) {
	if userID == "" {
		return nil, utils.ValidationError("user id is required")
	}
	balance, err := s.Repo.Balance(userID)
	if err != nil {
		return nil, err
	}
	return &models.WalletSummary{UserID: userID, Balance: balance, Currency: "tokens"}, nil
}

func (s *DefaultLedgerService) History(userID string, page, pageSize int) (*models.TransactionPage, error) {
	if userID == "" {
		return nil, utils.ValidationError("user id is required")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	items, total, err := s.Repo.History(userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.TokenTransaction{}
	}
	return &models.TransactionPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *DefaultLedgerService) HasSufficientBalance(userID string, amount float64) (bool, error) {
	if amount <= 0 {
		return false, utils.ValidationError("amount must be positive")
	}
	balance, err := s.Repo.Balance(userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

func (s *DefaultLedgerService) Credit(ctx context.Context, userID string, amount float64, description, reference string) (float64, error) {
	if userID == "" {
		return 0, utils.ValidationError("user id is required")
	}
	if amount <= 0 {
		return 0, utils.ValidationError("credit amount must be positive")
	}
	entry := &models.TokenTransaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        models.TokenCredit,
		Amount:      amount,
		Description: description,
		Reference:   reference,
	}
	return s.Repo.Credit(ctx, entry)
}

func (s *DefaultLedgerService) Debit(ctx context.Context, userID string, amount float64, description, reference string) (float64, error) {
	if userID == "" {
		return 0, utils.ValidationError("user id is required")
	}
	if amount <= 0 {
		return 0, utils.ValidationError("debit amount must be positive")
	}
	entry := &models.TokenTransaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        models.TokenDebit,
		Amount:      amount,
		Description: description,
		Reference:   reference,
	}
	return s.Repo.Debit(ctx, entry)
}

func (s *DefaultLedgerService) Refund(ctx context.Context, userID string, amount float64, reason, reference string) (float64, error) {
	if userID == "" {
		return 0, utils.ValidationError("user id is required")
	}
	if amount <= 0 {
		return 0, utils.ValidationError("refund amount must be positive")
	}
	if reference != "" {
		seen, err := s.Repo.HasEntryWithReference(reference, models.TokenRefund)
		if err != nil {
			return 0, err
		}
		if seen {
			return 0, utils.ConflictError("reference %s already refunded", reference)
		}
	}
	entry := &models.TokenTransaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        models.TokenRefund,
		Amount:      amount,
		Description: reason,
		Reference:   reference,
	}
	return s.Repo.Credit(ctx, entry)
}

// PayBookingWithTokens is the token checkout: ownership and state are
// validated up front, then the repo performs the debit plus booking flip
// atomically. Fanout (notifications, reminder) happens only after commit.
func (s *DefaultLedgerService) PayBookingWithTokens(ctx context.Context, studentID, bookingID string) (*models.Booking, error) {
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

	entry := &models.TokenTransaction{
		ID:          uuid.New().String(),
		UserID:      studentID,
		Type:        models.TokenDebit,
		Amount:      booking.Amount,
		Description: "Session payment",
		Reference:   models.RefPrefixBooking + bookingID,
	}
	wasPending := booking.Status == models.StatusPending

	updated, err := s.Repo.PayBooking(ctx, booking, entry)
	if err != nil {
		return nil, err
	}

	utils.GetLogger().Info("booking paid with tokens",
		zap.String("bookingId", updated.ID),
		zap.String("studentId", studentID),
		zap.Float64("amount", updated.Amount),
	)

	s.Notification.PaymentReceived(ctx, models.PaymentEvent{
		BookingID: updated.ID,
		UserID:    studentID,
		Amount:    updated.Amount,
		Method:    models.MethodTokens,
		Reference: entry.Reference,
	})
	if wasPending && updated.Status == models.StatusConfirmed {
		s.Notification.BookingConfirmed(ctx, updated)
		if s.Reminders != nil {
			if err := s.Reminders.Schedule(ctx, updated); err != nil {
				utils.GetLogger().Error("failed to schedule session reminder",
					zap.String("bookingId", updated.ID),
					zap.Error(err),
				)
			}
		}
	}
	return updated, nil
}

// RefundBookingToTokens reverses a token payment. Only token-funded, paid
// bookings qualify; processor-funded bookings are refunded at the
// processor instead.
func (s *DefaultLedgerService) RefundBookingToTokens(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	booking, err := s.Bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentMethod != models.MethodTokens {
		return nil, utils.DomainStateError("booking %s was not paid with tokens", bookingID)
	}
	if !models.ValidPaymentStatus(booking.PaymentStatus) {
		return nil, utils.DomainStateError("booking %s has unknown payment status %q", bookingID, booking.PaymentStatus)
	}
	if booking.PaymentStatus == models.PaymentRefunded {
		return nil, utils.ConflictError("booking %s is already refunded", bookingID)
	}
	if booking.PaymentStatus != models.PaymentPaid {
		return nil, utils.DomainStateError("only paid bookings can be refunded")
	}

	reference := models.RefPrefixBooking + bookingID
	entry := &models.TokenTransaction{
		ID:          uuid.New().String(),
		UserID:      booking.StudentID,
		Type:        models.TokenRefund,
		Amount:      booking.Amount,
		Description: "Session refund",
		Reference:   reference,
	}
	record := models.RefundRecord{
		Processed:   true,
		Reason:      reason,
		Reference:   reference,
		ProcessedAt: time.Now().UTC(),
	}

	if _, err := s.Repo.RefundBooking(ctx, booking, record, entry); err != nil {
		return nil, err
	}

	booking.PaymentStatus = models.PaymentRefunded
	booking.Refund = &record
	utils.GetLogger().Info("booking refunded to tokens",
		zap.String("bookingId", booking.ID),
		zap.String("studentId", booking.StudentID),
		zap.Float64("amount", booking.Amount),
	)
	return booking, nil
}
