package ledgerRepo

import (
	"context"

	"mentra/models"
)

// LedgerRepository owns the append-only token_transactions collection and
// the tokenBalance field on users. Balance mutations and their ledger
// entries always commit together; entries are never updated or deleted.
type LedgerRepository interface {
	// Balance reads the user's current token balance.
	Balance(userID string) (float64, error)

	// Credit increments the balance and appends the entry in one
	// transaction, returning the new balance.
	Credit(ctx context.Context, entry *models.TokenTransaction) (float64, error)

	// Debit decrements the balance with a floor check and appends the
	// entry in one transaction. A balance below the amount yields an
	// insufficient-balance error with nothing written.
	Debit(ctx context.Context, entry *models.TokenTransaction) (float64, error)

	// PayBooking debits the student and flips the booking to
	// paid/confirmed with the token funding method, all in one
	// transaction. A booking no longer awaiting payment aborts with a
	// conflict and the debit never lands.
	PayBooking(ctx context.Context, b *models.Booking, entry *models.TokenTransaction) (*models.Booking, error)

	// RefundBooking credits the student and marks the booking's refund
	// sub-record processed in one transaction. A booking whose refund is
	// already processed aborts with a conflict.
	RefundBooking(ctx context.Context, b *models.Booking, refund models.RefundRecord, entry *models.TokenTransaction) (float64, error)

	// History returns a page of the user's ledger entries, newest first.
	History(userID string, page, pageSize int) ([]models.TokenTransaction, int64, error)

	// HasEntryWithReference reports whether an entry of the given type
	// already carries the reference. Used for idempotent processor-funded
	// credits.
	HasEntryWithReference(reference, entryType string) (bool, error)
}
