package catalog

import "tapbook/internal/pkg/apperr"

var (
	ErrInvalidInput    = apperr.New(apperr.KindInput, "VALIDATION_ERROR", "invalid service data")
	ErrInvalidHours    = apperr.New(apperr.KindInput, "INVALID_BUSINESS_HOURS", "business hours are invalid")
	ErrServiceNotFound = apperr.New(apperr.KindNotFound, "SERVICE_NOT_FOUND", "service not found")
	ErrServiceExists   = apperr.New(apperr.KindPolicy, "SERVICE_EXISTS", "provider already has a service")
	ErrForbidden       = apperr.New(apperr.KindAuthorization, "FORBIDDEN", "only the owning provider may change this service")
)
