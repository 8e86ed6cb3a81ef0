package ledger

import (
	"context"

	bookingRepo "mentra/database/repository/booking"
	ledgerRepo "mentra/database/repository/ledger"
	"mentra/models"
	"mentra/services/notification"
	"mentra/services/tasks"
)

// ProcessorClient is the slice of the payment processor the ledger needs:
// creating and retrieving top-up intents. Implemented by the Stripe
// processor in services/payments.
type ProcessorClient interface {
	CreateIntent(ctx context.Context, amountCents int64, currency, description string, metadata map[string]string) (*models.PaymentIntentInfo, error)
	RetrieveIntent(ctx context.Context, id string) (*models.PaymentIntentInfo, error)
}

// LedgerService owns the Mentra token balance: wallet reads, atomic
// mutations, booking payment and refund over tokens, and processor-funded
// top-ups.
type LedgerService interface {
	Balance(userID string) (*models.WalletSummary, error)
	History(userID string, page, pageSize int) (*models.TransactionPage, error)
	HasSufficientBalance(userID string, amount float64) (bool, error)

	// Credit and Debit mutate the balance and append the ledger entry in
	// one transaction. Debit rejects when the balance cannot cover the
	// amount, writing nothing.
	Credit(ctx context.Context, userID string, amount float64, description, reference string) (float64, error)
	Debit(ctx context.Context, userID string, amount float64, description, reference string) (float64, error)

	// Refund credits the amount back with a refund-tagged entry. A
	// reference already refunded is a conflict.
	Refund(ctx context.Context, userID string, amount float64, reason, reference string) (float64, error)

	// PayBookingWithTokens charges the student and flips the booking to
	// paid (confirming it when still pending) in one transaction; partial
	// states are impossible.
	PayBookingWithTokens(ctx context.Context, studentID, bookingID string) (*models.Booking, error)

	// RefundBookingToTokens returns a token-funded booking's amount to the
	// student and stamps the refund sub-record, in one transaction.
	RefundBookingToTokens(ctx context.Context, bookingID, reason string) (*models.Booking, error)

	// CreateTopUpIntent opens a processor payment intent that funds the
	// wallet once it succeeds (via webhook or explicit confirmation).
	CreateTopUpIntent(ctx context.Context, userID string, amount float64) (*models.TopUpIntent, error)

	// ConfirmTopUp checks the intent with the processor and credits the
	// wallet, idempotently by reference. Reports whether this call applied
	// the credit.
	ConfirmTopUp(ctx context.Context, userID, intentID string) (bool, error)

	// CreditTopUp applies a succeeded top-up by reference; replays are
	// no-ops. Used by the webhook reconciler and the confirm path.
	CreditTopUp(ctx context.Context, userID string, tokens float64, reference string) (bool, error)
}

// DefaultLedgerService is the production implementation.
type DefaultLedgerService struct {
	Repo         ledgerRepo.LedgerRepository
	Bookings     bookingRepo.BookingRepository
	Processor    ProcessorClient
	Notification notification.NotificationService
	Reminders    tasks.ReminderScheduler

	// TokenUnitPriceCents converts between tokens and processor minor
	// units; Currency is the processor currency for top-ups.
	TokenUnitPriceCents int
	Currency            string
}
