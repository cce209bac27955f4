package scheduling

import (
	"time"

	"github.com/shopspring/decimal"

	"tapbook/internal/domain"
)

var (
	monthlyRate = decimal.RequireFromString("0.05")
	yearlyRate  = decimal.RequireFromString("0.10")
)

// DiscountRate is the fraction of the price waived for m at now.
func DiscountRate(m *domain.Membership, now time.Time) decimal.Decimal {
	if !m.Active(now) {
		return decimal.Zero
	}
	switch m.Plan {
	case domain.PlanMonthly:
		return monthlyRate
	case domain.PlanYearly:
		return yearlyRate
	default:
		return decimal.Zero
	}
}

// Price computes the payment snapshot. Arithmetic is exact; amounts are rounded to
// cents only on the way out.
func Price(servicePrice decimal.Decimal, m *domain.Membership, now time.Time) domain.Payment {
	cost := servicePrice
	discount := cost.Mul(DiscountRate(m, now))
	total := cost.Sub(discount)
	return domain.Payment{
		ServiceCost:        cost.Round(2),
		MembershipDiscount: discount.Round(2),
		TotalDue:           total.Round(2),
	}
}
