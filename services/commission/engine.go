package commission

import (
	"math"

	"mentra/models"
)

// Round2 rounds half-up to two decimal places. Both sides of a split use
// it, so commission plus payout always reassembles the gross amount to the
// cent.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TierFor returns the highest tier the stats qualify for, with its rank.
// Qualification is sessions OR earnings for every tier except the top one,
// which requires both. The lowest tier carries zero thresholds and is the
// fallback. Thresholds never decrease across the table and stats only
// grow, so the returned rank is monotonic over a mentor's lifetime.
func TierFor(stats models.TierStats, tiers []models.CommissionTier) (models.CommissionTier, int) {
	top := len(tiers) - 1
	for i := top; i >= 0; i-- {
		t := tiers[i]
		bySessions := stats.Sessions >= t.MinSessions
		byEarnings := stats.Earnings >= t.MinEarnings

		if i == top {
			if bySessions && byEarnings {
				return t, i
			}
			continue
		}
		if bySessions || byEarnings {
			return t, i
		}
	}
	return tiers[0], 0
}

// CommissionAmount is the platform's cut of a gross amount at the tier's rate.
func CommissionAmount(amount float64, tier models.CommissionTier) float64 {
	return Round2(amount * tier.Rate)
}

// PayoutAmount is the mentor's share of a gross amount at the tier's rate.
func PayoutAmount(amount float64, tier models.CommissionTier) float64 {
	return Round2(amount - CommissionAmount(amount, tier))
}

// Split returns both sides of the commission split in one call.
func Split(amount float64, tier models.CommissionTier) (commission, payout float64) {
	commission = CommissionAmount(amount, tier)
	payout = Round2(amount - commission)
	return commission, payout
}
