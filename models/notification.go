package models

import "time"

// Routing keys for published notification events. Delivery (push, email,
// in-app) is owned by downstream consumers of the event exchange.
const (
	EventBookingRequested = "booking.requested"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventPaymentReceived  = "payment.received"
	EventPaymentFailed    = "payment.failed"
	EventPayoutPaid       = "payout.paid"
	EventPayoutFailed     = "payout.failed"
	EventPayoutAccount    = "payout.account_status"
	EventEarningsAlert    = "earnings.alert"
	EventSessionReminder  = "session.reminder"
)

// BookingEvent notifies participants about a booking lifecycle change.
type BookingEvent struct {
	BookingID   string    `json:"bookingId"`
	MentorID    string    `json:"mentorId"`
	StudentID   string    `json:"studentId"`
	Status      string    `json:"status"`
	Amount      float64   `json:"amount"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Actor       string    `json:"actor,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// PaymentEvent notifies the student about a payment outcome.
type PaymentEvent struct {
	BookingID string  `json:"bookingId,omitempty"`
	UserID    string  `json:"userId"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method,omitempty"`
	Reference string  `json:"reference,omitempty"`
	Succeeded bool    `json:"succeeded"`
}

// PayoutEvent notifies a mentor about a transfer outcome. One event is
// published per transfer, not per booking.
type PayoutEvent struct {
	MentorID   string  `json:"mentorId"`
	TransferID string  `json:"transferId"`
	Amount     float64 `json:"amount,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// AccountStatusEvent notifies a mentor that their connected payout account
// changed status. Published only on observed transitions.
type AccountStatusEvent struct {
	MentorID string `json:"mentorId"`
	Status   string `json:"status"`
}

// EarningsAlert escalates a failed earnings credit so operators can re-run
// the update out of band. The booking transition it followed stands.
type EarningsAlert struct {
	BookingID string `json:"bookingId,omitempty"`
	MentorID  string `json:"mentorId"`
	Reason    string `json:"reason"`
}

// ReminderPayload is the scheduled session-reminder task body.
type ReminderPayload struct {
	BookingID string    `json:"bookingId"`
	MentorID  string    `json:"mentorId"`
	StudentID string    `json:"studentId"`
	StartsAt  time.Time `json:"startsAt"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
}
