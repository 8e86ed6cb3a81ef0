package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	bookingRepo "mentra/database/repository/booking"
	userRepo "mentra/database/repository/user"
	"mentra/models"
	"mentra/services/ledger"
	"mentra/utils"
)

// fakeBookingRepo keeps bookings in memory and honors the same guards as
// the Mongo repository's payment and payout writes.
type fakeBookingRepo struct {
	bookingRepo.BookingRepository

	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*models.Booking{}}
}

func (f *fakeBookingRepo) put(b *models.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *b
	f.bookings[b.ID] = &copied
}

func (f *fakeBookingRepo) get(id string) *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id]
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

func (f *fakeBookingRepo) MarkRefunded(_ context.Context, id string, refund models.RefundRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return false, utils.NotFoundError("booking", id)
	}
	if b.PaymentStatus != models.PaymentPaid || (b.Refund != nil && b.Refund.Processed) {
		return false, nil
	}
	record := refund
	b.Refund = &record
	b.PaymentStatus = models.PaymentRefunded
	return true, nil
}

func (f *fakeBookingRepo) applyPayout(b *models.Booking, u models.PayoutUpdate) {
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

func (f *fakeBookingRepo) UpdatePayout(id string, u models.PayoutUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.PayoutStatus == u.Status {
		return false, nil
	}
	f.applyPayout(b, u)
	return true, nil
}

func (f *fakeBookingRepo) UpdatePayoutByTransfer(transferID string, u models.PayoutUpdate) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var modified int64
	for _, b := range f.bookings {
		if b.TransferID == transferID && b.PayoutStatus != u.Status {
			f.applyPayout(b, u)
			modified++
		}
	}
	return modified, nil
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

// fakeUserRepo serves mentors and their payout accounts.
type fakeUserRepo struct {
	userRepo.UserRepository

	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) GetMentor(id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.Role != models.RoleMentor {
		return nil, utils.NotFoundError("mentor", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) FindByPayoutAccount(accountID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PayoutAccountID == accountID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) SetPayoutAccountStatus(_ context.Context, userID, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

// fakeEventRepo reproduces the reserve/mark lifecycle of the Mongo store.
type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*models.WebhookEvent
	order  []string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: map[string]*models.WebhookEvent{}}
}

func (f *fakeEventRepo) Reserve(_ context.Context, eventID, eventType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.events[eventID]; ok {
		return !prev.Processed, nil
	}
	f.events[eventID] = &models.WebhookEvent{EventID: eventID, Type: eventType, ReceivedAt: time.Now()}
	f.order = append(f.order, eventID)
	return true, nil
}

func (f *fakeEventRepo) MarkProcessed(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return utils.NotFoundError("webhook event", eventID)
	}
	now := time.Now()
	e.Processed = true
	e.ProcessedAt = &now
	e.Error = ""
	return nil
}

func (f *fakeEventRepo) MarkFailed(_ context.Context, eventID string, procErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return utils.NotFoundError("webhook event", eventID)
	}
	e.Error = procErr.Error()
	return nil
}

func (f *fakeEventRepo) ListRecent(limit int64) ([]models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WebhookEvent
	for i := len(f.order) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, *f.events[f.order[i]])
	}
	return out, nil
}

// fakeLedger records top-up credits and token refunds; the full wallet
// behavior is covered by the ledger package's own tests.
type fakeLedger struct {
	ledger.LedgerService

	mu       sync.Mutex
	credited map[string]float64
	refunded []string
	bookings *fakeBookingRepo
}

func newFakeLedger(bookings *fakeBookingRepo) *fakeLedger {
	return &fakeLedger{credited: map[string]float64{}, bookings: bookings}
}

func (l *fakeLedger) CreditTopUp(_ context.Context, userID string, tokens float64, reference string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, seen := l.credited[reference]; seen {
		return false, nil
	}
	l.credited[reference] = tokens
	_ = userID
	return true, nil
}

func (l *fakeLedger) RefundBookingToTokens(_ context.Context, bookingID, reason string) (*models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.bookings.get(bookingID)
	if b == nil {
		return nil, utils.NotFoundError("booking", bookingID)
	}
	if b.PaymentMethod != models.MethodTokens {
		return nil, utils.DomainStateError("booking %s was not paid with tokens", bookingID)
	}
	if b.PaymentStatus != models.PaymentPaid {
		return nil, utils.ConflictError("booking %s is not refundable", bookingID)
	}
	record := models.RefundRecord{Processed: true, Reason: reason, ProcessedAt: time.Now()}
	b.PaymentStatus = models.PaymentRefunded
	b.Refund = &record
	l.refunded = append(l.refunded, bookingID)
	copied := *b
	return &copied, nil
}

// fakeEarnings records message income applications.
type fakeEarnings struct {
	mu            sync.Mutex
	messageIncome map[string]float64
}

func newFakeEarnings() *fakeEarnings {
	return &fakeEarnings{messageIncome: map[string]float64{}}
}

func (f *fakeEarnings) ApplySessionIncome(_ context.Context, mentorID string, net float64) (*models.MentorEarnings, error) {
	return &models.MentorEarnings{MentorID: mentorID}, nil
}

func (f *fakeEarnings) ApplyMessageIncome(_ context.Context, mentorID string, gross float64) (*models.MentorEarnings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messageIncome[mentorID] += gross
	return &models.MentorEarnings{MentorID: mentorID}, nil
}

func (f *fakeEarnings) CurrentTier(string) (models.CommissionTier, error) {
	return models.CommissionTier{Name: "starter", Rate: 0.20}, nil
}

func (f *fakeEarnings) GetEarnings(mentorID string) (*models.MentorEarnings, error) {
	return &models.MentorEarnings{MentorID: mentorID}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) record(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, key)
}

func (n *fakeNotifier) count(key string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == key {
			c++
		}
	}
	return c
}

func (n *fakeNotifier) BookingRequested(context.Context, *models.Booking) {
	n.record(models.EventBookingRequested)
}
func (n *fakeNotifier) BookingConfirmed(context.Context, *models.Booking) {
	n.record(models.EventBookingConfirmed)
}
func (n *fakeNotifier) BookingCancelled(context.Context, *models.Booking, string, string) {
	n.record(models.EventBookingCancelled)
}
func (n *fakeNotifier) PaymentReceived(context.Context, models.PaymentEvent) {
	n.record(models.EventPaymentReceived)
}
func (n *fakeNotifier) PaymentFailed(context.Context, models.PaymentEvent) {
	n.record(models.EventPaymentFailed)
}
func (n *fakeNotifier) PayoutPaid(context.Context, models.PayoutEvent) {
	n.record(models.EventPayoutPaid)
}
func (n *fakeNotifier) PayoutFailed(context.Context, models.PayoutEvent) {
	n.record(models.EventPayoutFailed)
}
func (n *fakeNotifier) PayoutAccountStatus(context.Context, string, string) {
	n.record(models.EventPayoutAccount)
}
func (n *fakeNotifier) EarningsCreditFailed(context.Context, models.EarningsAlert) {
	n.record(models.EventEarningsAlert)
}
func (n *fakeNotifier) SessionReminder(context.Context, models.ReminderPayload) {
	n.record(models.EventSessionReminder)
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
	cancelled []string
}

func (f *fakeScheduler) Schedule(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, b.ID)
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, bookingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, bookingID)
	return nil
}

// fakeProcessor hands out deterministic intents, refunds and transfers.
type fakeProcessor struct {
	mu          sync.Mutex
	intents     map[string]*models.PaymentIntentInfo
	transfers   []models.TransferInfo
	refunds     []string
	seq         int
	transferErr error
	refundErr   error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{intents: map[string]*models.PaymentIntentInfo{}}
}

func (p *fakeProcessor) CreateIntent(_ context.Context, amountCents int64, currency, _ string, metadata map[string]string) (*models.PaymentIntentInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	info := &models.PaymentIntentInfo{
		ID:           fmt.Sprintf("pi_%d", p.seq),
		ClientSecret: fmt.Sprintf("pi_%d_secret", p.seq),
		Status:       "requires_payment_method",
		AmountCents:  amountCents,
		Currency:     currency,
		Reference:    metadata["reference"],
		UserID:       metadata["userId"],
	}
	p.intents[info.ID] = info
	return info, nil
}

func (p *fakeProcessor) RetrieveIntent(_ context.Context, id string) (*models.PaymentIntentInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, ok := p.intents[id]
	if !ok {
		return nil, utils.NotFoundError("payment intent", id)
	}
	copied := *info
	return &copied, nil
}

func (p *fakeProcessor) RefundPayment(_ context.Context, intentID, _ string) (*models.RefundInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refundErr != nil {
		return nil, p.refundErr
	}
	p.refunds = append(p.refunds, intentID)
	return &models.RefundInfo{ID: "re_" + intentID, Status: "succeeded"}, nil
}

func (p *fakeProcessor) CreateTransfer(_ context.Context, amountCents int64, _, destination string, _ map[string]string) (*models.TransferInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.transferErr != nil {
		return nil, p.transferErr
	}
	p.seq++
	info := models.TransferInfo{
		ID:          fmt.Sprintf("tr_%d", p.seq),
		AmountCents: amountCents,
		Destination: destination,
	}
	p.transfers = append(p.transfers, info)
	return &info, nil
}
