package bookingRepo

import (
	"context"
	"time"

	"mentra/models"
)

// BookingRepository owns the bookings collection and the slot-lock rows
// that harden booking creation against concurrent overlapping requests.
type BookingRepository interface {
	// Create inserts the booking together with one slot-lock row per
	// 30-minute granule of its interval, inside a single transaction. A
	// duplicate lock key means a concurrent booking won the interval and
	// surfaces as a conflict error.
	Create(ctx context.Context, b *models.Booking) error

	GetByID(id string) (*models.Booking, error)
	List(f models.BookingFilter) ([]models.Booking, int64, error)
	Update(b *models.Booking) error

	// FindOverlapping returns the mentor's {pending, confirmed} bookings
	// whose half-open interval intersects [start, end).
	FindOverlapping(mentorID string, start, end time.Time) ([]models.Booking, error)

	// MarkPaid flips paymentStatus pending→paid, records the processor
	// reference and funding method, and promotes a still-pending booking to
	// confirmed, all in one storage operation. It returns nil, nil when the
	// booking was not in pending payment state (no-op for replays).
	MarkPaid(ctx context.Context, id, paymentRef, method string) (*models.Booking, error)

	// SetPaymentStatus writes an explicit payment status without touching
	// the booking status. Used by the failure path and operator tooling.
	SetPaymentStatus(id, status, paymentRef string) error

	// SetStatus performs a guarded status write: the update applies only if
	// the booking is currently in the from status.
	SetStatus(id, from, to string) (bool, error)

	// SettleCompletion turns a confirmed booking reviewable and writes the
	// commission split, payout bookkeeping and dispute window in the same
	// operation.
	SettleCompletion(id string, s models.CompletionSettlement) (bool, error)

	// Terminate moves a booking from a pre-terminal state to cancelled or
	// failed and releases its slot locks, inside a single transaction.
	Terminate(ctx context.Context, id, status, actor, reason string) error

	// MarkRefunded records the refund sub-record and sets paymentStatus
	// refunded, guarded against double processing.
	MarkRefunded(ctx context.Context, id string, refund models.RefundRecord) (bool, error)

	// UpdatePayout writes payout bookkeeping onto one booking when its
	// payout status differs from the target, reporting whether it changed.
	UpdatePayout(id string, u models.PayoutUpdate) (bool, error)

	// UpdatePayoutByTransfer applies the payout update to every booking
	// carrying the transfer id whose payout status differs from the target,
	// returning how many documents changed. A zero count signals a replayed
	// event: callers skip notifications.
	UpdatePayoutByTransfer(transferID string, u models.PayoutUpdate) (int64, error)

	ListByTransfer(transferID string) ([]models.Booking, error)
}
