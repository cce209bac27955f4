package domain

import "github.com/shopspring/decimal"

func init() {
	// Amounts are rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Payment is the cost snapshot captured when an appointment is booked or rescheduled.
type Payment struct {
	ServiceCost        decimal.Decimal `json:"service_cost"`
	MembershipDiscount decimal.Decimal `json:"membership_discount"`
	TotalDue           decimal.Decimal `json:"total_due"`
}
