package models

import "time"

// AppointmentState is the lifecycle state of an appointment
type AppointmentState string

const (
	AppointmentScheduled AppointmentState = "SCHEDULED"
	AppointmentCancelled AppointmentState = "CANCELLED"
	AppointmentCompleted AppointmentState = "COMPLETED"
	AppointmentNoShow    AppointmentState = "NO_SHOW"
)

// CanTransitionTo reports whether the state graph allows s -> next.
// Only SCHEDULED appointments move; every other state is terminal.
func (s AppointmentState) CanTransitionTo(next AppointmentState) bool {
	if s != AppointmentScheduled {
		return false
	}
	switch next {
	case AppointmentCancelled, AppointmentCompleted, AppointmentNoShow:
		return true
	}
	return false
}

// Product is a bookable service offered by a practitioner
type Product struct {
	ID             int64     `json:"id" db:"id"`
	PractitionerID int64     `json:"practitionerId" db:"practitioner_id"`
	Minutes        int       `json:"minutes" db:"minutes"`
	PriceCents     int64     `json:"priceCents" db:"price_cents"`
	Purpose        string    `json:"purpose" db:"purpose"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Availability is a window in which a practitioner accepts bookings
type Availability struct {
	ID             int64     `json:"id" db:"id"`
	PractitionerID int64     `json:"practitionerId" db:"practitioner_id"`
	StartsAt       time.Time `json:"startsAt" db:"starts_at"`
	EndsAt         time.Time `json:"endsAt" db:"ends_at"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// Covers reports whether [start,end) lies inside the window
func (a *Availability) Covers(start, end time.Time) bool {
	return !start.Before(a.StartsAt) && !end.After(a.EndsAt)
}

// Appointment is a booked product slot
type Appointment struct {
	ID               int64            `json:"id" db:"id"`
	MemberID         int64            `json:"memberId" db:"member_id"`
	PractitionerID   int64            `json:"practitionerId" db:"practitioner_id"`
	ProductID        int64            `json:"productId" db:"product_id"`
	ScheduledStart   time.Time        `json:"scheduledStart" db:"scheduled_start"`
	ScheduledEnd     time.Time        `json:"scheduledEnd" db:"scheduled_end"`
	State            AppointmentState `json:"state" db:"state"`
	CancelledAt      *time.Time       `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CancelledBy      *int64           `json:"cancelledBy,omitempty" db:"cancelled_by"`
	LateCancellation bool             `json:"lateCancellation" db:"late_cancellation"`
	ReminderSentAt   *time.Time       `json:"reminderSentAt,omitempty" db:"reminder_sent_at"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
}
