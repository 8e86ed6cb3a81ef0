package booking

import (
	"context"
	"time"

	bookingRepo "mentra/database/repository/booking"
	offeringRepo "mentra/database/repository/offering"
	userRepo "mentra/database/repository/user"
	"mentra/models"
	"mentra/services/commission"
	"mentra/services/notification"
	"mentra/services/tasks"

	"github.com/go-redis/redis/v8"
)

// BookingService drives the booking lifecycle: creation with availability
// and conflict checks, role-gated status transitions, and the read API.
type BookingService interface {
	// Create validates the request against the mentor's declared
	// availability and existing bookings and inserts the booking in
	// pending status with pending payment.
	Create(ctx context.Context, studentID string, req models.CreateBookingRequest) (*models.Booking, error)

	// Get returns a booking visible to the actor: participants see their
	// own, operators see all.
	Get(ctx context.Context, actor models.Actor, id string) (*models.Booking, error)

	// List returns a page of bookings scoped to the actor's role.
	List(ctx context.Context, actor models.Actor, f models.BookingFilter) (*models.BookingPage, error)

	// UpdateStatus applies a whitelisted, role-gated lifecycle transition.
	UpdateStatus(ctx context.Context, actor models.Actor, id, status, reason string) (*models.Booking, error)

	// UpdatePaymentStatus writes an explicit payment status. Operator only;
	// marking paid confirms a still-pending booking.
	UpdatePaymentStatus(ctx context.Context, actor models.Actor, id, status, ref string) (*models.Booking, error)

	// AvailableSlots enumerates bookable slots for one calendar day in the
	// mentor's timezone.
	AvailableSlots(ctx context.Context, mentorID, date string) ([]models.AvailableSlot, error)

	// AvailabilityForRange reports the mentor's declared window per day
	// across a date range.
	AvailabilityForRange(ctx context.Context, mentorID, from, to string) ([]models.DayAvailability, error)
}

// DefaultBookingService is the production implementation.
type DefaultBookingService struct {
	Repo         bookingRepo.BookingRepository
	UserRepo     userRepo.UserRepository
	OfferingRepo offeringRepo.OfferingRepository
	Earnings     commission.EarningsService
	Notification notification.NotificationService
	Reminders    tasks.ReminderScheduler

	// Cache backs the slot listing; nil disables caching.
	Cache *redis.Client

	// DisputeWindow is how long after completion a payout is held.
	DisputeWindow time.Duration
}
