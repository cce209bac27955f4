package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service is the single bookable offering a provider publishes.
type Service struct {
	ID              int64           `json:"id"`
	ProviderID      int64           `json:"provider_id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	Address         string          `json:"address"`
	BusinessHours   BusinessHours   `json:"business_hours"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
