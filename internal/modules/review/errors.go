package review

import "tapbook/internal/pkg/apperr"

var (
	ErrInvalidRequest      = apperr.New(apperr.KindInput, "VALIDATION_ERROR", "rating must be between 1 and 5")
	ErrAppointmentNotFound = apperr.New(apperr.KindNotFound, "APPOINTMENT_NOT_FOUND", "appointment not found")
	ErrServiceNotFound     = apperr.New(apperr.KindNotFound, "SERVICE_NOT_FOUND", "service not found")
	ErrNotParticipant      = apperr.New(apperr.KindAuthorization, "FORBIDDEN", "only the customer or the provider of the appointment may review it")
	ErrNotReviewable       = apperr.New(apperr.KindPolicy, "NOT_REVIEWABLE", "only completed appointments can be reviewed")
	ErrConflict            = apperr.New(apperr.KindPolicy, "ALREADY_REVIEWED", "this appointment has already been reviewed")
)
