package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"tapbook/internal/domain"
	"tapbook/internal/scheduling"
)

// BookRequest is what Book needs once the HTTP layer has parsed the start time.
type BookRequest struct {
	ServiceID     int64
	Start         time.Time
	CustomerName  string
	CustomerPhone string
	Notes         string
}

type CreateAppointmentRequest struct {
	ServiceID     int64  `json:"service_id" binding:"required" validate:"required,gt=0"`
	Start         string `json:"start" binding:"required" validate:"required"`
	CustomerName  string `json:"customer_name" validate:"max=255"`
	CustomerPhone string `json:"customer_phone" validate:"max=50"`
	Notes         string `json:"notes" validate:"max=1000"`
}

type PreviewRequest struct {
	ServiceID int64  `json:"service_id" binding:"required" validate:"required,gt=0"`
	Start     string `json:"start" binding:"required" validate:"required"`
}

type RescheduleRequest struct {
	Start string `json:"start" binding:"required" validate:"required"`
}

type NoteRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type CancelRangeRequest struct {
	From string `json:"from" binding:"required" validate:"required"`
	To   string `json:"to" binding:"required" validate:"required"`
}

// BookingResult is the accepted outcome of Book.
type BookingResult struct {
	Status             string              `json:"status"`
	AppointmentID      int64               `json:"appointment_id"`
	ServiceCost        decimal.Decimal     `json:"service_cost"`
	MembershipDiscount decimal.Decimal     `json:"membership_discount"`
	TotalDue           decimal.Decimal     `json:"total_due"`
	Appointment        *domain.Appointment `json:"appointment"`
	ServiceName        string              `json:"service_name"`
	ProviderName       string              `json:"provider_name,omitempty"`
	AverageRating      float64             `json:"average_rating"`
	ReviewCount        int64               `json:"review_count"`
}

const StatusAccepted = "accepted"

type Quote struct {
	ServiceID int64          `json:"service_id"`
	Slot      domain.Slot    `json:"slot"`
	Payment   domain.Payment `json:"payment"`
}

type CancelRangeResult struct {
	Cancelled      int     `json:"cancelled"`
	AppointmentIDs []int64 `json:"appointment_ids"`
}

type ListFilter struct {
	Status string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type BookedSlot struct {
	Start  string                   `json:"start"`
	End    string                   `json:"end"`
	Status domain.AppointmentStatus `json:"status"`
}

type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AvailabilityResponse struct {
	ServiceID    int64              `json:"service_id"`
	Date         string             `json:"date"`
	Open         bool               `json:"open"`
	WorkingHours *scheduling.Window `json:"working_hours,omitempty"`
	BookedSlots  []BookedSlot       `json:"booked_slots"`
	FreeSlots    []TimeSlot         `json:"free_slots"`
}
