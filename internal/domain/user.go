package domain

import "time"

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleProvider UserRole = "provider"
)

func (r UserRole) Valid() bool {
	return r == RoleCustomer || r == RoleProvider
}

type MembershipPlan string

const (
	PlanNone    MembershipPlan = "none"
	PlanMonthly MembershipPlan = "monthly"
	PlanYearly  MembershipPlan = "yearly"
)

// Membership is embedded in User. Cancelling is soft: the expiry stays as it was.
type Membership struct {
	Plan       MembershipPlan `json:"plan"`
	StartDate  time.Time      `json:"start_date"`
	ExpiryDate time.Time      `json:"expiry_date"`
	Cancelled  bool           `json:"cancelled"`
}

// Active reports whether the membership entitles its holder to a discount at now.
func (m *Membership) Active(now time.Time) bool {
	if m == nil {
		return false
	}
	return m.Plan != "" && m.Plan != PlanNone && !m.Cancelled && m.ExpiryDate.After(now)
}

type User struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         UserRole    `json:"role"`
	Phone        string      `json:"phone,omitempty"`
	Membership   *Membership `json:"membership,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
