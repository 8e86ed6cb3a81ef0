package booking

import (
	"context"
	"testing"
	"time"

	"mentra/models"
	"mentra/utils"
)

func testMentor(tz string, rules ...models.AvailabilityRule) *models.User {
	return &models.User{
		ID:                 "mentor-1",
		Role:               models.RoleMentor,
		Timezone:           tz,
		WeeklyAvailability: rules,
	}
}

func mondayRule(start, end string) models.AvailabilityRule {
	return models.AvailabilityRule{Day: "Monday", Start: start, End: end}
}

// nextMonday returns the next Monday strictly after today, at midnight UTC.
func nextMonday() time.Time {
	d := time.Now().UTC().AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func newTestService(repo *fakeBookingRepo, users *fakeUserRepo, offerings *fakeOfferingRepo) (*DefaultBookingService, *fakeNotifier, *fakeScheduler, *fakeEarnings) {
	notifier := &fakeNotifier{}
	scheduler := &fakeScheduler{}
	earnings := &fakeEarnings{tier: models.CommissionTier{Name: "starter", Rate: 0.20}}
	svc := &DefaultBookingService{
		Repo:          repo,
		UserRepo:      users,
		OfferingRepo:  offerings,
		Earnings:      earnings,
		Notification:  notifier,
		Reminders:     scheduler,
		DisputeWindow: 48 * time.Hour,
	}
	return svc, notifier, scheduler, earnings
}

func TestEnsureBookable(t *testing.T) {
	monday := nextMonday()
	at := func(h, m int) time.Time {
		return time.Date(monday.Year(), monday.Month(), monday.Day(), h, m, 0, 0, time.UTC)
	}

	repo := newFakeBookingRepo()
	existing := &models.Booking{
		ID:              "existing",
		MentorID:        "mentor-1",
		StudentID:       "student-0",
		ScheduledAt:     at(11, 0),
		ScheduledEnd:    at(12, 0),
		DurationMinutes: 60,
		Status:          models.StatusConfirmed,
		PaymentStatus:   models.PaymentPaid,
	}
	if err := repo.Create(context.Background(), existing); err != nil {
		t.Fatalf("seeding existing booking: %v", err)
	}

	svc, _, _, _ := newTestService(repo, newFakeUserRepo(), newFakeOfferingRepo())
	mentor := testMentor("UTC", mondayRule("09:00", "17:00"))

	cases := []struct {
		name     string
		start    time.Time
		duration int
		wantKind string
	}{
		{"inside the window", at(9, 0), 60, ""},
		{"ends exactly at window close", at(16, 0), 60, ""},
		{"back-to-back after existing booking", at(12, 0), 60, ""},
		{"starts before the window", at(8, 30), 60, utils.KindDomainState},
		{"runs past the window", at(16, 30), 60, utils.KindDomainState},
		{"day without declared availability", at(9, 0).AddDate(0, 0, 1), 60, utils.KindDomainState},
		{"overlaps an existing booking", at(11, 30), 60, utils.KindConflict},
		{"contains an existing booking", at(10, 30), 120, utils.KindConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.EnsureBookable(context.Background(), mentor, tc.start, tc.duration)
			if tc.wantKind == "" {
				if err != nil {
					t.Fatalf("expected bookable, got %v", err)
				}
				return
			}
			if err == nil || utils.KindOf(err) != tc.wantKind {
				t.Fatalf("expected %s error, got %v", tc.wantKind, err)
			}
		})
	}
}

func TestEnsureBookableRejectsBadMentorConfig(t *testing.T) {
	svc, _, _, _ := newTestService(newFakeBookingRepo(), newFakeUserRepo(), newFakeOfferingRepo())
	monday := nextMonday().Add(10 * time.Hour)

	badTZ := testMentor("Not/AZone", mondayRule("09:00", "17:00"))
	if err := svc.EnsureBookable(context.Background(), badTZ, monday, 60); utils.KindOf(err) != utils.KindDomainState {
		t.Fatalf("expected domain error for invalid timezone, got %v", err)
	}

	inverted := testMentor("UTC", mondayRule("17:00", "09:00"))
	if err := svc.EnsureBookable(context.Background(), inverted, monday, 60); utils.KindOf(err) != utils.KindDomainState {
		t.Fatalf("expected domain error for inverted window, got %v", err)
	}
}

func TestAvailableSlotsEnumeration(t *testing.T) {
	monday := nextMonday()
	mentor := testMentor("UTC", mondayRule("09:00", "12:00"))

	repo := newFakeBookingRepo()
	svc, _, _, _ := newTestService(repo, newFakeUserRepo(mentor), newFakeOfferingRepo())

	slots, err := svc.AvailableSlots(context.Background(), mentor.ID, monday.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 60-minute slots at a 30-minute stride across 09:00-12:00.
	wantStarts := []string{"09:00", "09:30", "10:00", "10:30", "11:00"}
	if len(slots) != len(wantStarts) {
		t.Fatalf("expected %d slots, got %d: %+v", len(wantStarts), len(slots), slots)
	}
	for i, want := range wantStarts {
		if slots[i].StartLocal != want {
			t.Errorf("slot %d: expected start %s, got %s", i, want, slots[i].StartLocal)
		}
		if !slots[i].EndUTC.Equal(slots[i].StartUTC.Add(time.Hour)) {
			t.Errorf("slot %d: not a 60-minute slot", i)
		}
	}
}

func TestAvailableSlotsDropOverlaps(t *testing.T) {
	monday := nextMonday()
	at := func(h, m int) time.Time {
		return time.Date(monday.Year(), monday.Month(), monday.Day(), h, m, 0, 0, time.UTC)
	}
	mentor := testMentor("UTC", mondayRule("09:00", "12:00"))

	repo := newFakeBookingRepo()
	if err := repo.Create(context.Background(), &models.Booking{
		ID:              "b-1",
		MentorID:        mentor.ID,
		ScheduledAt:     at(10, 0),
		ScheduledEnd:    at(11, 0),
		DurationMinutes: 60,
		Status:          models.StatusPending,
	}); err != nil {
		t.Fatalf("seeding booking: %v", err)
	}

	svc, _, _, _ := newTestService(repo, newFakeUserRepo(mentor), newFakeOfferingRepo())
	slots, err := svc.AvailableSlots(context.Background(), mentor.ID, monday.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The 10:00-11:00 booking knocks out candidates starting 09:30, 10:00
	// and 10:30; 09:00 and 11:00 survive.
	wantStarts := []string{"09:00", "11:00"}
	if len(slots) != len(wantStarts) {
		t.Fatalf("expected %d slots, got %d: %+v", len(wantStarts), len(slots), slots)
	}
	for i, want := range wantStarts {
		if slots[i].StartLocal != want {
			t.Errorf("slot %d: expected start %s, got %s", i, want, slots[i].StartLocal)
		}
	}
}

func TestAvailableSlotsValidation(t *testing.T) {
	mentor := testMentor("UTC", mondayRule("09:00", "17:00"))
	svc, _, _, _ := newTestService(newFakeBookingRepo(), newFakeUserRepo(mentor), newFakeOfferingRepo())

	if _, err := svc.AvailableSlots(context.Background(), mentor.ID, "tomorrow"); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("expected validation error for malformed date, got %v", err)
	}
	if _, err := svc.AvailableSlots(context.Background(), "ghost", nextMonday().Format("2006-01-02")); utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("expected not found for unknown mentor, got %v", err)
	}

	// A day without a declared window yields an empty listing, not an error.
	sunday := nextMonday().AddDate(0, 0, -1)
	slots, err := svc.AvailableSlots(context.Background(), mentor.ID, sunday.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on an undeclared day, got %d", len(slots))
	}
}

func TestAvailabilityForRange(t *testing.T) {
	mentor := testMentor("UTC", mondayRule("09:00", "17:00"))
	svc, _, _, _ := newTestService(newFakeBookingRepo(), newFakeUserRepo(mentor), newFakeOfferingRepo())

	monday := nextMonday()
	from := monday.Format("2006-01-02")
	to := monday.AddDate(0, 0, 2).Format("2006-01-02")

	days, err := svc.AvailabilityForRange(context.Background(), mentor.ID, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if !days[0].Available || days[0].Start != "09:00" || days[0].End != "17:00" {
		t.Errorf("Monday should carry the declared window: %+v", days[0])
	}
	if days[1].Available || days[2].Available {
		t.Errorf("undeclared days should be unavailable: %+v", days[1:])
	}

	if _, err := svc.AvailabilityForRange(context.Background(), mentor.ID, to, from); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
	farOut := monday.AddDate(0, 0, 60).Format("2006-01-02")
	if _, err := svc.AvailabilityForRange(context.Background(), mentor.ID, from, farOut); utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("expected validation error for oversized range, got %v", err)
	}
}

func TestCreateBookingScenario(t *testing.T) {
	monday := nextMonday()
	at := func(h, m int) time.Time {
		return time.Date(monday.Year(), monday.Month(), monday.Day(), h, m, 0, 0, time.UTC)
	}

	mentor := testMentor("UTC", mondayRule("09:00", "17:00"))
	student1 := &models.User{ID: "student-1", Role: models.RoleStudent, Timezone: "UTC"}
	student2 := &models.User{ID: "student-2", Role: models.RoleStudent, Timezone: "UTC"}
	offering := &models.ServiceOffering{
		ID:              "svc-1",
		MentorID:        mentor.ID,
		Price:           100,
		DurationMinutes: 60,
		Active:          true,
	}

	repo := newFakeBookingRepo()
	svc, notifier, _, _ := newTestService(repo, newFakeUserRepo(mentor, student1, student2), newFakeOfferingRepo(offering))
	ctx := context.Background()

	created, err := svc.Create(ctx, student1.ID, models.CreateBookingRequest{
		MentorID:    mentor.ID,
		ServiceID:   offering.ID,
		ScheduledAt: at(9, 0),
	})
	if err != nil {
		t.Fatalf("first booking should succeed: %v", err)
	}
	if created.Status != models.StatusPending || created.PaymentStatus != models.PaymentPending {
		t.Fatalf("new booking should be pending/pending-payment, got %s/%s", created.Status, created.PaymentStatus)
	}
	if created.Amount != 100 || created.DurationMinutes != 60 {
		t.Fatalf("amount and duration must come from the offering: %+v", created)
	}
	if notifier.count(models.EventBookingRequested) != 1 {
		t.Fatalf("expected a booking-requested event")
	}

	// Overlapping request for 09:30-10:30 must lose.
	_, err = svc.Create(ctx, student2.ID, models.CreateBookingRequest{
		MentorID:    mentor.ID,
		ServiceID:   offering.ID,
		ScheduledAt: at(9, 30),
	})
	if utils.KindOf(err) != utils.KindConflict {
		t.Fatalf("expected conflict for overlapping request, got %v", err)
	}

	// Back-to-back at 10:00 is allowed.
	if _, err := svc.Create(ctx, student2.ID, models.CreateBookingRequest{
		MentorID:    mentor.ID,
		ServiceID:   offering.ID,
		ScheduledAt: at(10, 0),
	}); err != nil {
		t.Fatalf("back-to-back booking should succeed: %v", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	monday := nextMonday()
	start := time.Date(monday.Year(), monday.Month(), monday.Day(), 9, 0, 0, 0, time.UTC)

	mentor := testMentor("UTC", mondayRule("09:00", "17:00"))
	student := &models.User{ID: "student-1", Role: models.RoleStudent, Timezone: "UTC"}
	active := &models.ServiceOffering{ID: "svc-1", MentorID: mentor.ID, Price: 100, DurationMinutes: 60, Active: true}
	retired := &models.ServiceOffering{ID: "svc-2", MentorID: mentor.ID, Price: 100, DurationMinutes: 60, Active: false}
	foreign := &models.ServiceOffering{ID: "svc-3", MentorID: "someone-else", Price: 50, DurationMinutes: 30, Active: true}

	svc, _, _, _ := newTestService(newFakeBookingRepo(), newFakeUserRepo(mentor, student), newFakeOfferingRepo(active, retired, foreign))
	ctx := context.Background()

	cases := []struct {
		name     string
		student  string
		req      models.CreateBookingRequest
		wantKind string
	}{
		{"missing mentor", student.ID, models.CreateBookingRequest{ServiceID: "svc-1", ScheduledAt: start}, utils.KindValidation},
		{"past start", student.ID, models.CreateBookingRequest{MentorID: mentor.ID, ServiceID: "svc-1", ScheduledAt: time.Now().Add(-time.Hour)}, utils.KindValidation},
		{"self booking", mentor.ID, models.CreateBookingRequest{MentorID: mentor.ID, ServiceID: "svc-1", ScheduledAt: start}, utils.KindValidation},
		{"unknown mentor", student.ID, models.CreateBookingRequest{MentorID: "ghost", ServiceID: "svc-1", ScheduledAt: start}, utils.KindNotFound},
		{"unknown service", student.ID, models.CreateBookingRequest{MentorID: mentor.ID, ServiceID: "ghost", ScheduledAt: start}, utils.KindNotFound},
		{"foreign service", student.ID, models.CreateBookingRequest{MentorID: mentor.ID, ServiceID: "svc-3", ScheduledAt: start}, utils.KindValidation},
		{"retired service", student.ID, models.CreateBookingRequest{MentorID: mentor.ID, ServiceID: "svc-2", ScheduledAt: start}, utils.KindDomainState},
		{"duration mismatch", student.ID, models.CreateBookingRequest{MentorID: mentor.ID, ServiceID: "svc-1", ScheduledAt: start, DurationMinutes: 90}, utils.KindValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.student, tc.req)
			if err == nil || utils.KindOf(err) != tc.wantKind {
				t.Fatalf("expected %s error, got %v", tc.wantKind, err)
			}
		})
	}
}
