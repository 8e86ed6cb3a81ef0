package models

import "time"

// Connected payout account statuses, maintained from processor account events.
const (
	PayoutAccountPending  = "pending"
	PayoutAccountActive   = "active"
	PayoutAccountRejected = "rejected"
)

// User is the externally owned account document. The booking core reads and
// writes only the fields below; profile management lives elsewhere.
type User struct {
	ID    string `bson:"id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Role  string `bson:"role" json:"role"`

	// Timezone is an IANA label ("America/New_York") used to resolve the
	// user's wall clock when creating bookings.
	Timezone string `bson:"timezone" json:"timezone"`

	// TokenBalance is the authoritative Mentra balance; it always equals the
	// signed sum of the user's token transactions.
	TokenBalance float64 `bson:"tokenBalance" json:"tokenBalance"`

	// WeeklyAvailability holds the mentor's declared windows in the mentor's
	// own timezone. Empty for students.
	WeeklyAvailability []AvailabilityRule `bson:"weeklyAvailability,omitempty" json:"weeklyAvailability,omitempty"`

	PayoutAccountID     string `bson:"payoutAccountId,omitempty" json:"payoutAccountId,omitempty"`
	PayoutAccountStatus string `bson:"payoutAccountStatus,omitempty" json:"payoutAccountStatus,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AvailabilityRule declares one weekly window, local to the mentor.
// Day is the English weekday name; Start and End are zero-padded "HH:MM"
// wall-clock strings, Start < End, same-day only.
type AvailabilityRule struct {
	Day   string `bson:"day" json:"day"`
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// RuleForDay returns the availability rule matching the given weekday name,
// or nil when the mentor declares no window that day.
func (u *User) RuleForDay(day string) *AvailabilityRule {
	for i := range u.WeeklyAvailability {
		if u.WeeklyAvailability[i].Day == day {
			return &u.WeeklyAvailability[i]
		}
	}
	return nil
}
