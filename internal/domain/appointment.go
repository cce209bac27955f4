package domain

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusDeclined  AppointmentStatus = "declined"
)

// Blocking reports whether an appointment in this status occupies its slot.
func (s AppointmentStatus) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusDeclined
}

func (s AppointmentStatus) Valid() bool {
	return s.Blocking() || s.Terminal()
}

// BlockingStatuses lists the statuses that take part in conflict checks.
var BlockingStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

// Slot is the half-open interval [Start, End).
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Appointment struct {
	ID               int64             `json:"id"`
	CustomerID       int64             `json:"customer_id"`
	ServiceID        int64             `json:"service_id"`
	ProviderID       int64             `json:"provider_id"`
	Slot             Slot              `json:"slot"`
	ScheduledAt      time.Time         `json:"scheduled_at"`
	Status           AppointmentStatus `json:"status"`
	Payment          Payment           `json:"payment"`
	CancellationNote string            `json:"cancellation_note,omitempty"`
	Reminded         bool              `json:"reminded"`
	CustomerName     string            `json:"customer_name,omitempty"`
	CustomerPhone    string            `json:"customer_phone,omitempty"`
	Notes            string            `json:"notes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
