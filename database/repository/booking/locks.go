package bookingRepo

import (
	"time"
)

// granule is the slot-lock resolution. Bookings aligned to it contend on a
// shared lock key exactly when their intervals genuinely overlap.
const granule = 30 * time.Minute

// slotLock is one reserved granule of a mentor's calendar. The _id encodes
// mentor and granule start, making the uniqueness constraint on
// (mentor, interval) a plain duplicate-key check.
type slotLock struct {
	Key       string    `bson:"_id"`
	BookingID string    `bson:"bookingId"`
	MentorID  string    `bson:"mentorId"`
	CreatedAt time.Time `bson:"createdAt"`
}

// LockKeys returns one key per granule covered by the half-open interval
// [start, start+durationMinutes).
func LockKeys(mentorID string, start time.Time, durationMinutes int) []string {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	keys := make([]string, 0, 4)
	for g := start.UTC().Truncate(granule); g.Before(end); g = g.Add(granule) {
		keys = append(keys, mentorID+"|"+g.UTC().Format(time.RFC3339))
	}
	return keys
}
