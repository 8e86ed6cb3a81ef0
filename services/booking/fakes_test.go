package booking

import (
	"context"
	"sync"
	"time"

	bookingRepo "mentra/database/repository/booking"
	"mentra/models"
	"mentra/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// fakeBookingRepo keeps bookings and slot locks in memory and honors the
// same guards as the Mongo repository, so lifecycle tests exercise the real
// service logic against faithful storage semantics.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	locks    map[string]string
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{
		bookings: map[string]*models.Booking{},
		locks:    map[string]string{},
	}
}

func (f *fakeBookingRepo) Create(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := bookingRepo.LockKeys(b.MentorID, b.ScheduledAt, b.DurationMinutes)
	for _, k := range keys {
		if _, taken := f.locks[k]; taken {
			return utils.ConflictError("mentor already has a booking overlapping %s",
				b.ScheduledAt.UTC().Format(time.RFC3339))
		}
	}
	for _, k := range keys {
		f.locks[k] = b.ID
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	copied := *b
	f.bookings[b.ID] = &copied
	return nil
}

func (f *fakeBookingRepo) GetByID(id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, utils.NotFoundError("booking", id)
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookingRepo) List(filter models.BookingFilter) ([]models.Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if filter.MentorID != "" && b.MentorID != filter.MentorID {
			continue
		}
		if filter.StudentID != "" && b.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (f *fakeBookingRepo) Update(b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[b.ID]; !ok {
		return utils.NotFoundError("booking", b.ID)
	}
	copied := *b
	f.bookings[b.ID] = &copied
	return nil
}

func (f *fakeBookingRepo) FindOverlapping(mentorID string, start, end time.Time) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.MentorID != mentorID {
			continue
		}
		if b.Status != models.StatusPending && b.Status != models.StatusConfirmed {
			continue
		}
		if b.ScheduledAt.Before(end) && b.ScheduledEnd.After(start) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) MarkPaid(_ context.Context, id, paymentRef, method string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.PaymentStatus != models.PaymentPending {
		return nil, nil
	}
	b.PaymentStatus = models.PaymentPaid
	b.PaymentMethod = method
	if paymentRef != "" {
		b.PaymentRef = paymentRef
	}
	if b.Status == models.StatusPending {
		b.Status = models.StatusConfirmed
	}
	b.UpdatedAt = time.Now()
	copied := *b
	return &copied, nil
}

func (f *fakeBookingRepo) SetPaymentStatus(id, status, paymentRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return utils.NotFoundError("booking", id)
	}
	b.PaymentStatus = status
	if paymentRef != "" {
		b.PaymentRef = paymentRef
	}
	return nil
}

func (f *fakeBookingRepo) SetStatus(id, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (f *fakeBookingRepo) SettleCompletion(id string, s models.CompletionSettlement) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.Status != models.StatusConfirmed {
		return false, nil
	}
	b.Status = models.StatusReviewable
	b.CommissionTier = s.Tier
	b.PlatformCommission = s.Commission
	b.MentorPayout = s.Payout
	b.PayoutStatus = models.PayoutPending
	ends := s.DisputePeriodEnds
	b.DisputePeriodEnds = &ends
	return true, nil
}

func (f *fakeBookingRepo) Terminate(_ context.Context, id, status, actor, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return utils.NotFoundError("booking", id)
	}
	if b.Status != models.StatusPending && b.Status != models.StatusConfirmed {
		return utils.DomainStateError("booking %s is no longer in a cancellable state", id)
	}
	b.Status = status
	b.CancelledBy = actor
	b.CancelReason = reason
	for k, owner := range f.locks {
		if owner == id {
			delete(f.locks, k)
		}
	}
	return nil
}

func (f *fakeBookingRepo) MarkRefunded(_ context.Context, id string, refund models.RefundRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || (b.Refund != nil && b.Refund.Processed) {
		return false, nil
	}
	b.Refund = &refund
	b.PaymentStatus = models.PaymentRefunded
	return true, nil
}

func (f *fakeBookingRepo) UpdatePayout(id string, u models.PayoutUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.PayoutStatus == u.Status {
		return false, nil
	}
	applyPayout(b, u)
	return true, nil
}

func (f *fakeBookingRepo) UpdatePayoutByTransfer(transferID string, u models.PayoutUpdate) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.bookings {
		if b.TransferID == transferID && b.PayoutStatus != u.Status {
			applyPayout(b, u)
			n++
		}
	}
	return n, nil
}

func (f *fakeBookingRepo) ListByTransfer(transferID string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.TransferID == transferID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func applyPayout(b *models.Booking, u models.PayoutUpdate) {
	b.PayoutStatus = u.Status
	if u.TransferID != "" {
		b.TransferID = u.TransferID
	}
	if u.Date != nil {
		b.PayoutDate = u.Date
	}
	switch {
	case u.FailureReason != "":
		b.PayoutFailureReason = u.FailureReason
	case u.Status == models.PayoutPaid:
		b.PayoutFailureReason = ""
	}
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetByID(id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, utils.NotFoundError("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByIDWithProjection(id string, _ bson.M) (*models.User, error) {
	return f.GetByID(id)
}

func (f *fakeUserRepo) GetMentor(id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok || u.Role != models.RoleMentor {
		return nil, utils.NotFoundError("mentor", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) FindByPayoutAccount(accountID string) (*models.User, error) {
	for _, u := range f.users {
		if u.PayoutAccountID == accountID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) SetPayoutAccountStatus(_ context.Context, userID, status string) (bool, error) {
	u, ok := f.users[userID]
	if !ok {
		return false, utils.NotFoundError("user", userID)
	}
	if u.PayoutAccountStatus == status {
		return false, nil
	}
	u.PayoutAccountStatus = status
	return true, nil
}

type fakeOfferingRepo struct {
	offerings map[string]*models.ServiceOffering
}

func newFakeOfferingRepo(offerings ...*models.ServiceOffering) *fakeOfferingRepo {
	f := &fakeOfferingRepo{offerings: map[string]*models.ServiceOffering{}}
	for _, o := range offerings {
		f.offerings[o.ID] = o
	}
	return f
}

func (f *fakeOfferingRepo) GetByID(id string) (*models.ServiceOffering, error) {
	o, ok := f.offerings[id]
	if !ok {
		return nil, utils.NotFoundError("service", id)
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOfferingRepo) ListByMentor(mentorID string) ([]models.ServiceOffering, error) {
	var out []models.ServiceOffering
	for _, o := range f.offerings {
		if o.MentorID == mentorID && o.Active {
			out = append(out, *o)
		}
	}
	return out, nil
}

// fakeEarnings records session credits and serves a fixed tier.
type fakeEarnings struct {
	tier     models.CommissionTier
	applied  []float64
	applyErr error
	tierErr  error
}

func (f *fakeEarnings) ApplySessionIncome(_ context.Context, _ string, net float64) (*models.MentorEarnings, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.applied = append(f.applied, net)
	return &models.MentorEarnings{}, nil
}

func (f *fakeEarnings) ApplyMessageIncome(_ context.Context, _ string, gross float64) (*models.MentorEarnings, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.applied = append(f.applied, gross)
	return &models.MentorEarnings{}, nil
}

func (f *fakeEarnings) CurrentTier(string) (models.CommissionTier, error) {
	if f.tierErr != nil {
		return models.CommissionTier{}, f.tierErr
	}
	return f.tier, nil
}

func (f *fakeEarnings) GetEarnings(mentorID string) (*models.MentorEarnings, error) {
	return &models.MentorEarnings{MentorID: mentorID}, nil
}

// fakeNotifier counts events by routing key.
type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) record(key string) { f.events = append(f.events, key) }

func (f *fakeNotifier) count(key string) int {
	n := 0
	for _, e := range f.events {
		if e == key {
			n++
		}
	}
	return n
}

func (f *fakeNotifier) BookingRequested(context.Context, *models.Booking) {
	f.record(models.EventBookingRequested)
}
func (f *fakeNotifier) BookingConfirmed(context.Context, *models.Booking) {
	f.record(models.EventBookingConfirmed)
}
func (f *fakeNotifier) BookingCancelled(context.Context, *models.Booking, string, string) {
	f.record(models.EventBookingCancelled)
}
func (f *fakeNotifier) PaymentReceived(context.Context, models.PaymentEvent) {
	f.record(models.EventPaymentReceived)
}
func (f *fakeNotifier) PaymentFailed(context.Context, models.PaymentEvent) {
	f.record(models.EventPaymentFailed)
}
func (f *fakeNotifier) PayoutPaid(context.Context, models.PayoutEvent) {
	f.record(models.EventPayoutPaid)
}
func (f *fakeNotifier) PayoutFailed(context.Context, models.PayoutEvent) {
	f.record(models.EventPayoutFailed)
}
func (f *fakeNotifier) PayoutAccountStatus(context.Context, string, string) {
	f.record(models.EventPayoutAccount)
}
func (f *fakeNotifier) EarningsCreditFailed(context.Context, models.EarningsAlert) {
	f.record(models.EventEarningsAlert)
}
func (f *fakeNotifier) SessionReminder(context.Context, models.ReminderPayload) {
	f.record(models.EventSessionReminder)
}

// fakeScheduler tracks reminder scheduling by booking id.
type fakeScheduler struct {
	scheduled []string
	cancelled []string
}

func (f *fakeScheduler) Schedule(_ context.Context, b *models.Booking) error {
	f.scheduled = append(f.scheduled, b.ID)
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, bookingID string) error {
	f.cancelled = append(f.cancelled, bookingID)
	return nil
}
