package models

import "time"

// Booking lifecycle statuses. StatusCompleted is accepted as a transition
// input but is stored as StatusReviewable in the same write; it never
// appears on a persisted booking.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusCompleted  = "completed"
	StatusReviewable = "reviewable"
	StatusReviewed   = "reviewed"
	StatusCancelled  = "cancelled"
	StatusFailed     = "failed"
)

// Payment statuses form a closed set. A stored booking carrying any other
// value is treated as corrupt and rejected, never silently corrected.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Payout statuses. Empty means payout bookkeeping has not started.
const (
	PayoutPending = "pending"
	PayoutPaid    = "paid"
	PayoutFailed  = "failed"
)

// Funding sources. Exactly one funds a given booking.
const (
	MethodStripe = "stripe"
	MethodTokens = "tokens"
)

// Caller roles carried in auth claims.
const (
	RoleStudent  = "student"
	RoleMentor   = "mentor"
	RoleOperator = "operator"
)

// Booking is the central record tying a student, a mentor and a service
// offering to a scheduled session and its settlement state. Bookings are
// never hard-deleted; cancellation and failure are terminal states.
type Booking struct {
	ID        string `bson:"id" json:"id"`
	MentorID  string `bson:"mentorId" json:"mentorId"`
	StudentID string `bson:"studentId" json:"studentId"`
	ServiceID string `bson:"serviceId" json:"serviceId"`

	// ScheduledLocal is the wall-clock start in the student's timezone at
	// creation time ("2006-01-02T15:04"). Both timezone labels are captured
	// at creation and immutable afterwards so display-time semantics survive
	// later preference changes.
	ScheduledAt     time.Time `bson:"scheduledAt" json:"scheduledAt"`
	ScheduledEnd    time.Time `bson:"scheduledEnd" json:"scheduledEnd"`
	ScheduledLocal  string    `bson:"scheduledLocal" json:"scheduledLocal"`
	DurationMinutes int       `bson:"durationMinutes" json:"durationMinutes"`
	MentorTimezone  string    `bson:"mentorTimezone" json:"mentorTimezone"`
	StudentTimezone string    `bson:"studentTimezone" json:"studentTimezone"`

	Amount             float64 `bson:"amount" json:"amount"`
	PaymentMethod      string  `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	PaymentStatus      string  `bson:"paymentStatus" json:"paymentStatus"`
	PaymentRef         string  `bson:"paymentRef,omitempty" json:"paymentRef,omitempty"`
	PlatformCommission float64 `bson:"platformCommission,omitempty" json:"platformCommission,omitempty"`
	MentorPayout       float64 `bson:"mentorPayout,omitempty" json:"mentorPayout,omitempty"`
	CommissionTier     string  `bson:"commissionTier,omitempty" json:"commissionTier,omitempty"`

	PayoutStatus        string     `bson:"payoutStatus,omitempty" json:"payoutStatus,omitempty"`
	PayoutDate          *time.Time `bson:"payoutDate,omitempty" json:"payoutDate,omitempty"`
	TransferID          string     `bson:"transferId,omitempty" json:"transferId,omitempty"`
	PayoutFailureReason string     `bson:"payoutFailureReason,omitempty" json:"payoutFailureReason,omitempty"`

	Status            string        `bson:"status" json:"status"`
	Notes             string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CancelReason      string        `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CancelledBy       string        `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	DisputePeriodEnds *time.Time    `bson:"disputePeriodEnds,omitempty" json:"disputePeriodEnds,omitempty"`
	Refund            *RefundRecord `bson:"refund,omitempty" json:"refund,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RefundRecord marks a processed refund on a booking.
type RefundRecord struct {
	Processed   bool      `bson:"processed" json:"processed"`
	Reason      string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Reference   string    `bson:"reference,omitempty" json:"reference,omitempty"`
	ProcessedAt time.Time `bson:"processedAt" json:"processedAt"`
}

// End returns the exclusive end instant of the booked interval.
func (b *Booking) End() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// IsParticipant reports whether userID is the booking's mentor or student.
func (b *Booking) IsParticipant(userID string) bool {
	return userID == b.MentorID || userID == b.StudentID
}

// ValidBookingStatus reports whether s is a persistable booking status.
func ValidBookingStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusReviewable, StatusReviewed, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s belongs to the closed payment-status set.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// TerminalBookingStatus reports whether s admits no further transitions.
func TerminalBookingStatus(s string) bool {
	switch s {
	case StatusReviewed, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// Actor identifies the authenticated caller for role-gated operations.
type Actor struct {
	ID   string
	Role string
}

// CreateBookingRequest is the payload for booking creation.
type CreateBookingRequest struct {
	MentorID        string    `json:"mentorId" binding:"required"`
	ServiceID       string    `json:"serviceId" binding:"required"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes"`
	Notes           string    `json:"notes"`
}

// StatusUpdateRequest is the payload for booking status transitions.
type StatusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// PaymentStatusUpdateRequest is the payload for operator payment-status writes.
type PaymentStatusUpdateRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
	PaymentRef    string `json:"paymentRef"`
}

// BookingFilter narrows booking list queries.
type BookingFilter struct {
	MentorID  string
	StudentID string
	Status    string
	Page      int
	PageSize  int
}

// BookingPage is a paginated booking list.
type BookingPage struct {
	Items    []Booking `json:"items"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// CompletionSettlement carries the commission split written onto a booking
// when it turns reviewable.
type CompletionSettlement struct {
	Tier              string
	Commission        float64
	Payout            float64
	DisputePeriodEnds time.Time
}

// PayoutUpdate mutates a booking's payout bookkeeping.
type PayoutUpdate struct {
	Status        string
	TransferID    string
	Date          *time.Time
	FailureReason string
}

// AvailableSlot is one bookable interval in a mentor's day, expressed both
// as absolute instants and as mentor-local wall clock.
type AvailableSlot struct {
	StartUTC   time.Time `json:"startUtc"`
	EndUTC     time.Time `json:"endUtc"`
	StartLocal string    `json:"startLocal"`
	EndLocal   string    `json:"endLocal"`
}

// DayAvailability is a mentor's declared window for one calendar day.
type DayAvailability struct {
	Date      string `json:"date"`
	Day       string `json:"day"`
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
	Available bool   `json:"available"`
}
