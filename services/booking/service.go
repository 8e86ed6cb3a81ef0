package booking

import (
	"context"
	"time"

	"mentra/models"
	"mentra/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Create prices and schedules a new booking. Amount and duration come from
// the offering, never from the caller; the insert shares a transaction with
// the slot locks, so two overlapping requests cannot both succeed.
func (s *DefaultBookingService) Create(ctx context.Context, studentID string, req models.CreateBookingRequest) (*models.Booking, error) {
	if req.MentorID == "" || req.ServiceID == "" {
		return nil, utils.ValidationError("mentorId and serviceId are required")
	}
	if req.ScheduledAt.IsZero() {
		return nil, utils.ValidationError("scheduledAt is required")
	}
	if req.MentorID == studentID {
		return nil, utils.ValidationError("mentors cannot book their own sessions")
	}
	if !req.ScheduledAt.After(time.Now()) {
		return nil, utils.ValidationError("scheduledAt must be in the future")
	}

	mentor, err := s.UserRepo.GetMentor(req.MentorID)
	if err != nil {
		return nil, err
	}
	student, err := s.UserRepo.GetByID(studentID)
	if err != nil {
		return nil, err
	}
	offering, err := s.OfferingRepo.GetByID(req.ServiceID)
	if err != nil {
		return nil, err
	}
	if offering.MentorID != mentor.ID {
		return nil, utils.ValidationError("service %s does not belong to mentor %s", offering.ID, mentor.ID)
	}
	if !offering.Active {
		return nil, utils.DomainStateError("service %s is no longer offered", offering.ID)
	}

	duration := offering.DurationMinutes
	if req.DurationMinutes > 0 && req.DurationMinutes != duration {
		return nil, utils.ValidationError("requested duration %d does not match the %d-minute offering",
			req.DurationMinutes, duration)
	}
	if duration <= 0 {
		return nil, utils.DomainStateError("service %s declares no duration", offering.ID)
	}

	startUTC := req.ScheduledAt.UTC()
	if err := s.EnsureBookable(ctx, mentor, startUTC, duration); err != nil {
		return nil, err
	}

	studentLoc, err := time.LoadLocation(student.Timezone)
	if err != nil {
		studentLoc = time.UTC
	}

	booking := &models.Booking{
		ID:              uuid.New().String(),
		MentorID:        mentor.ID,
		StudentID:       student.ID,
		ServiceID:       offering.ID,
		ScheduledAt:     startUTC,
		ScheduledEnd:    startUTC.Add(time.Duration(duration) * time.Minute),
		ScheduledLocal:  startUTC.In(studentLoc).Format("2006-01-02T15:04"),
		DurationMinutes: duration,
		MentorTimezone:  mentor.Timezone,
		StudentTimezone: student.Timezone,
		Amount:          offering.Price,
		PaymentStatus:   models.PaymentPending,
		Status:          models.StatusPending,
		Notes:           req.Notes,
	}

	if err := s.Repo.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.Notification.BookingRequested(ctx, booking)
	s.invalidateSlotCache(ctx, mentor.ID, mentor.Timezone, startUTC)

	utils.GetLogger().Info("booking created",
		zap.String("bookingId", booking.ID),
		zap.String("mentorId", booking.MentorID),
		zap.String("studentId", booking.StudentID),
		zap.Time("scheduledAt", booking.ScheduledAt),
	)
	return booking, nil
}

// Get returns the booking if the actor may see it.
func (s *DefaultBookingService) Get(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	booking, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleOperator && !booking.IsParticipant(actor.ID) {
		return nil, utils.AuthorizationError("caller is not a participant in booking %s", id)
	}
	return booking, nil
}

// List scopes the filter to the actor before querying: mentors and students
// see only their own bookings, operators see everything.
func (s *DefaultBookingService) List(ctx context.Context, actor models.Actor, f models.BookingFilter) (*models.BookingPage, error) {
	switch actor.Role {
	case models.RoleOperator:
	case models.RoleMentor:
		f.MentorID = actor.ID
		f.StudentID = ""
	default:
		f.StudentID = actor.ID
		f.MentorID = ""
	}
	if f.Status != "" && !models.ValidBookingStatus(f.Status) {
		return nil, utils.ValidationError("unknown status filter %q", f.Status)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}

	items, total, err := s.Repo.List(f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Booking{}
	}
	return &models.BookingPage{
		Items:    items,
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
	}, nil
}

// UpdatePaymentStatus is the operator escape hatch for payment bookkeeping.
// The status set is closed; marking paid rides the same guarded write the
// payment paths use, so a pending booking confirms exactly once.
func (s *DefaultBookingService) UpdatePaymentStatus(ctx context.Context, actor models.Actor, id, status, ref string) (*models.Booking, error) {
	if actor.Role != models.RoleOperator {
		return nil, utils.AuthorizationError("only operators may set payment status directly")
	}
	if !models.ValidPaymentStatus(status) {
		return nil, utils.ValidationError("invalid payment status %q", status)
	}

	booking, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if status == models.PaymentPaid {
		method := booking.PaymentMethod
		if method == "" {
			method = models.MethodStripe
		}
		updated, err := s.Repo.MarkPaid(ctx, id, ref, method)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, utils.ConflictError("booking %s is not awaiting payment", id)
		}
		if updated.Status == models.StatusConfirmed && booking.Status == models.StatusPending {
			s.Notification.BookingConfirmed(ctx, updated)
			if err := s.Reminders.Schedule(ctx, updated); err != nil {
				utils.GetLogger().Error("failed to schedule session reminder",
					zap.String("bookingId", updated.ID), zap.Error(err))
			}
		}
		return updated, nil
	}

	if err := s.Repo.SetPaymentStatus(id, status, ref); err != nil {
		return nil, err
	}
	booking.PaymentStatus = status
	if ref != "" {
		booking.PaymentRef = ref
	}
	return booking, nil
}
