package domain

import "time"

type ReviewDirection string

const (
	ReviewOfProvider ReviewDirection = "customer_to_provider"
	ReviewOfCustomer ReviewDirection = "provider_to_customer"
)

type Review struct {
	ID            int64           `json:"id"`
	AppointmentID int64           `json:"appointment_id"`
	ServiceID     int64           `json:"service_id"`
	AuthorID      int64           `json:"author_id"`
	SubjectID     int64           `json:"subject_id"`
	Direction     ReviewDirection `json:"direction"`
	Rating        int             `json:"rating"`
	Comment       string          `json:"comment,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RatingSummary aggregates the customer reviews of one service.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}
