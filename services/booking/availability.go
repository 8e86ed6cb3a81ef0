package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mentra/models"
	"mentra/utils"

	"go.uber.org/zap"
)

const (
	slotDuration = 60 * time.Minute
	slotStride   = 30 * time.Minute

	dateLayout = "2006-01-02"
	wallLayout = "15:04"

	slotCacheTTL = time.Minute
	maxRangeDays = 31
)

// EnsureBookable verifies that [startUTC, startUTC+duration) falls inside
// the mentor's declared weekly window and collides with no {pending,
// confirmed} booking. Wall-clock comparison happens in the mentor's own
// timezone; back-to-back bookings are allowed.
func (s *DefaultBookingService) EnsureBookable(ctx context.Context, mentor *models.User, startUTC time.Time, durationMinutes int) error {
	loc, err := mentorLocation(mentor)
	if err != nil {
		return err
	}

	localStart := startUTC.In(loc)
	localEnd := localStart.Add(time.Duration(durationMinutes) * time.Minute)

	rule := mentor.RuleForDay(localStart.Weekday().String())
	if rule == nil {
		return utils.DomainStateError("mentor %s is unavailable on %s", mentor.ID, localStart.Weekday())
	}
	if rule.End <= rule.Start {
		return utils.DomainStateError("mentor %s declares a misconfigured %s window %s-%s",
			mentor.ID, rule.Day, rule.Start, rule.End)
	}

	// Sessions are same-day in mentor-local time; crossing midnight can
	// never fit a single declared window.
	if localEnd.Format(dateLayout) != localStart.Format(dateLayout) {
		return utils.DomainStateError("requested session crosses midnight in the mentor's timezone")
	}

	startWall := localStart.Format(wallLayout)
	endWall := localEnd.Format(wallLayout)
	if startWall < rule.Start || endWall > rule.End {
		return utils.DomainStateError("requested time %s-%s is outside the mentor's %s window %s-%s",
			startWall, endWall, rule.Day, rule.Start, rule.End)
	}

	endUTC := startUTC.Add(time.Duration(durationMinutes) * time.Minute)
	overlapping, err := s.Repo.FindOverlapping(mentor.ID, startUTC, endUTC)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return utils.ConflictError("mentor %s already has a booking overlapping %s",
			mentor.ID, startUTC.UTC().Format(time.RFC3339))
	}
	return nil
}

// AvailableSlots enumerates bookable slots for one calendar day: 60-minute
// candidates at a 30-minute stride across the declared window, minus any
// that intersect an existing blocking booking. Results are cached briefly;
// the cache is best-effort and never fails the query.
func (s *DefaultBookingService) AvailableSlots(ctx context.Context, mentorID, date string) ([]models.AvailableSlot, error) {
	cacheKey := slotCacheKey(mentorID, date)
	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, cacheKey).Result(); err == nil {
			var cached []models.AvailableSlot
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}

	mentor, err := s.UserRepo.GetMentor(mentorID)
	if err != nil {
		return nil, err
	}
	loc, err := mentorLocation(mentor)
	if err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return nil, utils.ValidationError("invalid date %q, expected YYYY-MM-DD", date)
	}

	slots := []models.AvailableSlot{}
	rule := mentor.RuleForDay(day.Weekday().String())
	if rule == nil || rule.End <= rule.Start {
		return slots, nil
	}

	windowStart, err := atWall(day, rule.Start, loc)
	if err != nil {
		return nil, utils.DomainStateError("mentor %s declares a malformed window start %q", mentorID, rule.Start)
	}
	windowEnd, err := atWall(day, rule.End, loc)
	if err != nil {
		return nil, utils.DomainStateError("mentor %s declares a malformed window end %q", mentorID, rule.End)
	}

	existing, err := s.Repo.FindOverlapping(mentorID, windowStart.UTC(), windowEnd.UTC())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for cur := windowStart; !cur.Add(slotDuration).After(windowEnd); cur = cur.Add(slotStride) {
		end := cur.Add(slotDuration)
		if cur.Before(now) {
			continue
		}
		if overlapsAny(existing, cur.UTC(), end.UTC()) {
			continue
		}
		slots = append(slots, models.AvailableSlot{
			StartUTC:   cur.UTC(),
			EndUTC:     end.UTC(),
			StartLocal: cur.Format(wallLayout),
			EndLocal:   end.Format(wallLayout),
		})
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(slots); err == nil {
			if err := s.Cache.Set(ctx, cacheKey, raw, slotCacheTTL).Err(); err != nil {
				utils.GetLogger().Debug("slot cache write failed",
					zap.String("mentorId", mentorID), zap.Error(err))
			}
		}
	}
	return slots, nil
}

// AvailabilityForRange reports the mentor's declared window for each day in
// [from, to]. Read-only; existing bookings are not consulted.
func (s *DefaultBookingService) AvailabilityForRange(ctx context.Context, mentorID, from, to string) ([]models.DayAvailability, error) {
	mentor, err := s.UserRepo.GetMentor(mentorID)
	if err != nil {
		return nil, err
	}
	loc, err := mentorLocation(mentor)
	if err != nil {
		return nil, err
	}

	start, err := time.ParseInLocation(dateLayout, from, loc)
	if err != nil {
		return nil, utils.ValidationError("invalid from date %q, expected YYYY-MM-DD", from)
	}
	end, err := time.ParseInLocation(dateLayout, to, loc)
	if err != nil {
		return nil, utils.ValidationError("invalid to date %q, expected YYYY-MM-DD", to)
	}
	if end.Before(start) {
		return nil, utils.ValidationError("to date %s precedes from date %s", to, from)
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return nil, utils.ValidationError("date range exceeds %d days", maxRangeDays)
	}

	var days []models.DayAvailability
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		entry := models.DayAvailability{
			Date: d.Format(dateLayout),
			Day:  d.Weekday().String(),
		}
		if rule := mentor.RuleForDay(d.Weekday().String()); rule != nil {
			entry.Start = rule.Start
			entry.End = rule.End
			entry.Available = true
		}
		days = append(days, entry)
	}
	return days, nil
}

// mentorLocation resolves the mentor's IANA timezone, empty meaning UTC.
func mentorLocation(mentor *models.User) (*time.Location, error) {
	loc, err := time.LoadLocation(mentor.Timezone)
	if err != nil {
		return nil, utils.DomainStateError("mentor %s declares an invalid timezone %q", mentor.ID, mentor.Timezone)
	}
	return loc, nil
}

// atWall pins an "HH:MM" wall-clock string onto a calendar day in loc.
func atWall(day time.Time, wall string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(wallLayout, wall)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

func overlapsAny(bookings []models.Booking, start, end time.Time) bool {
	for i := range bookings {
		if bookings[i].ScheduledAt.Before(end) && bookings[i].ScheduledEnd.After(start) {
			return true
		}
	}
	return false
}

func slotCacheKey(mentorID, date string) string {
	return fmt.Sprintf("slots:%s:%s", mentorID, date)
}

// invalidateSlotCache drops the cached listing for the day a booking landed
// on, in the mentor's timezone. Best-effort.
func (s *DefaultBookingService) invalidateSlotCache(ctx context.Context, mentorID, tz string, startUTC time.Time) {
	if s.Cache == nil {
		return
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	key := slotCacheKey(mentorID, startUTC.In(loc).Format(dateLayout))
	if err := s.Cache.Del(ctx, key).Err(); err != nil {
		utils.GetLogger().Debug("slot cache invalidation failed",
			zap.String("mentorId", mentorID), zap.Error(err))
	}
}
