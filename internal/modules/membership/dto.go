package membership

import (
	"github.com/shopspring/decimal"

	"tapbook/internal/domain"
)

type SubscribeRequest struct {
	Plan string `json:"plan" binding:"required" validate:"required,plan"`
}

// View is the membership as the holder sees it.
type View struct {
	Membership   *domain.Membership `json:"membership"`
	Active       bool               `json:"active"`
	DiscountRate decimal.Decimal    `json:"discount_rate"`
}
