package scheduling

import "tapbook/internal/pkg/apperr"

var (
	ErrClosed            = apperr.Rejection(apperr.KindPolicy, "CLOSED", "Closed", "service is closed on the requested day")
	ErrOutOfHours        = apperr.Rejection(apperr.KindPolicy, "OUT_OF_HOURS", "OutOfHours", "slot is outside business hours")
	ErrInvalidTransition = apperr.New(apperr.KindPolicy, "INVALID_TRANSITION", "status transition not allowed")
	ErrNoteRequired      = apperr.New(apperr.KindPolicy, "NOTE_REQUIRED", "a note of at least 3 characters is required")
	ErrNotDue            = apperr.New(apperr.KindPolicy, "NOT_DUE", "appointment has not ended yet")
	ErrForbidden         = apperr.New(apperr.KindAuthorization, "FORBIDDEN", "actor may not perform this action")
)
