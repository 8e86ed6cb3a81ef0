package earningsRepo

import (
	"context"
	"time"

	"mentra/models"
)

// EarningsRepository owns the per-mentor earnings aggregates. Lifetime
// totals and the month bucket move in the same storage operation, and tier
// writes are rank-guarded so the tier never goes down.
type EarningsRepository interface {
	// ApplyIncome increments the lifetime fields and the delta's month
	// bucket in a single atomic read-modify-write, upserting the aggregate
	// on first income, and returns the updated document. Concurrent
	// completions for the same mentor serialize on the document, so no
	// update is lost.
	ApplyIncome(ctx context.Context, mentorID string, delta models.IncomeDelta) (*models.MentorEarnings, error)

	// PromoteTier records a tier change only when the stored rank is below
	// the new rank, reporting whether the promotion applied.
	PromoteTier(ctx context.Context, mentorID, tier string, rank int, at time.Time) (bool, error)

	// GetByMentor returns the mentor's aggregate, or nil when the mentor
	// has no recorded earnings yet.
	GetByMentor(mentorID string) (*models.MentorEarnings, error)
}
