package models

// CommissionTier is one bracket of the ordered tier table. Rank is the
// tier's index in the table; rates strictly decrease as rank increases.
// Qualification is sessions OR earnings, except the top tier which
// requires both.
type CommissionTier struct {
	Name        string  `bson:"name" json:"name" mapstructure:"name"`
	MinSessions int     `bson:"minSessions" json:"minSessions" mapstructure:"min_sessions"`
	MinEarnings float64 `bson:"minEarnings" json:"minEarnings" mapstructure:"min_earnings"`
	Rate        float64 `bson:"rate" json:"rate" mapstructure:"rate"`
}

// TierStats are the cumulative inputs to tier qualification.
type TierStats struct {
	Sessions int
	Earnings float64
}
