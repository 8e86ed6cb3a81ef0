package models

import (
	"sort"
	"time"
)

// Income kinds credited to the earnings ledger.
const (
	IncomeSession = "session"
	IncomeMessage = "message"
)

// EarningsBucket is one breakdown of net income, used both for lifetime
// totals and for monthly rollups.
type EarningsBucket struct {
	SessionEarnings float64 `bson:"sessionEarnings" json:"sessionEarnings"`
	MessageEarnings float64 `bson:"messageEarnings" json:"messageEarnings"`
	TotalEarnings   float64 `bson:"totalEarnings" json:"totalEarnings"`
	SessionCount    int     `bson:"sessionCount" json:"sessionCount"`
	MessageCount    int     `bson:"messageCount" json:"messageCount"`
}

// MentorEarnings is the per-mentor aggregate. Lifetime fields and the
// current month's bucket always move in the same storage operation, so the
// sum of monthly totals equals the lifetime total.
type MentorEarnings struct {
	MentorID       string `bson:"mentorId" json:"mentorId"`
	EarningsBucket `bson:",inline"`

	CurrentTier   string    `bson:"currentTier" json:"currentTier"`
	TierRank      int       `bson:"tierRank" json:"tierRank"`
	TierUpdatedAt time.Time `bson:"tierUpdatedAt,omitempty" json:"tierUpdatedAt,omitempty"`

	// Monthly buckets are keyed by the UTC month of the crediting instant,
	// formatted "2006-01".
	Monthly map[string]EarningsBucket `bson:"monthly,omitempty" json:"monthly,omitempty"`

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Stats projects the aggregate into the tier-qualification inputs.
func (e *MentorEarnings) Stats() TierStats {
	return TierStats{Sessions: e.SessionCount, Earnings: e.TotalEarnings}
}

// MonthlyEarnings is one month's bucket with its key, for sorted API output.
type MonthlyEarnings struct {
	Month string `json:"month"`
	EarningsBucket
}

// MonthlyBreakdown returns the monthly buckets sorted by month ascending.
func (e *MentorEarnings) MonthlyBreakdown() []MonthlyEarnings {
	out := make([]MonthlyEarnings, 0, len(e.Monthly))
	for k, v := range e.Monthly {
		out = append(out, MonthlyEarnings{Month: k, EarningsBucket: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// IncomeDelta is one earnings credit: the mentor's net share after
// commission, bucketed by kind and month.
type IncomeDelta struct {
	Kind     string
	Net      float64
	MonthKey string
}

// MonthKey buckets an instant into its UTC month.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
