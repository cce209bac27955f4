package membership

import "tapbook/internal/pkg/apperr"

var (
	ErrInvalidPlan  = apperr.New(apperr.KindInput, "INVALID_PLAN", "plan must be monthly or yearly")
	ErrNoMembership = apperr.New(apperr.KindPolicy, "NO_ACTIVE_MEMBERSHIP", "there is no active membership to cancel")
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "user not found")
)
