package catalog

import (
	"github.com/shopspring/decimal"

	"tapbook/internal/domain"
)

type CreateServiceRequest struct {
	Name            string               `json:"name" validate:"required,max=255"`
	Category        string               `json:"category" validate:"required,max=100"`
	Description     string               `json:"description" validate:"max=2000"`
	Price           decimal.Decimal      `json:"price"`
	DurationMinutes int                  `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	Address         string               `json:"address" validate:"max=500"`
	BusinessHours   domain.BusinessHours `json:"business_hours"`
}

// UpdateServiceRequest changes only the fields that are present.
type UpdateServiceRequest struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Category        *string          `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty" validate:"omitempty,gt=0,lte=1440"`
	Address         *string          `json:"address,omitempty" validate:"omitempty,max=500"`
}

type UpdateBusinessHoursRequest struct {
	BusinessHours domain.BusinessHours `json:"business_hours"`
}

// ServiceView is a service with its customer rating.
type ServiceView struct {
	domain.Service
	Rating domain.RatingSummary `json:"rating"`
}

type ListServicesResponse struct {
	Services []ServiceView `json:"services"`
	Total    int64         `json:"total"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
}
