package booking

import (
	"errors"

	"tapbook/internal/lock"
	"tapbook/internal/pkg/apperr"
	"tapbook/internal/repository"
	"tapbook/internal/scheduling"
)

var (
	ErrInvalidInput        = apperr.New(apperr.KindInput, "VALIDATION_ERROR", "invalid booking request")
	ErrInvalidRange        = apperr.New(apperr.KindInput, "INVALID_RANGE", "range end must be after its start")
	ErrPastDate            = apperr.Rejection(apperr.KindInput, "PAST_DATE", "PastDate", "appointment must start in the future")
	ErrServiceNotFound     = apperr.Rejection(apperr.KindNotFound, "SERVICE_NOT_FOUND", "NotFound", "service not found")
	ErrUserNotFound        = apperr.New(apperr.KindNotFound, "USER_NOT_FOUND", "customer not found")
	ErrAppointmentNotFound = apperr.New(apperr.KindNotFound, "APPOINTMENT_NOT_FOUND", "appointment not found")
	ErrSlotTaken           = apperr.Rejection(apperr.KindPolicy, "SLOT_TAKEN", "SlotTaken", "the provider already has a booking in this slot")
	ErrDoubleBooked        = apperr.Rejection(apperr.KindPolicy, "DOUBLE_BOOKED", "DoubleBooked", "you already have a booking in this slot")
)

// storeErr maps a failed conditional write onto the rejection it stands for.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrProviderConflict):
		return ErrSlotTaken
	case errors.Is(err, repository.ErrCustomerConflict):
		return ErrDoubleBooked
	case errors.Is(err, repository.ErrStatusChanged):
		return scheduling.ErrInvalidTransition
	case errors.Is(err, repository.ErrNotFound):
		return ErrAppointmentNotFound
	default:
		return apperr.Storage(err)
	}
}

func lockErr(err error) error {
	if errors.Is(err, lock.ErrNotAcquired) {
		return &apperr.Error{Kind: apperr.KindStorage, Code: "BUSY", Message: "slot is being booked, retry", Err: err}
	}
	return apperr.Storage(err)
}

// reasonOf names a rejection for metrics.
func reasonOf(err error) string {
	ae, ok := apperr.As(err)
	if !ok {
		return "internal"
	}
	if ae.Reason != "" {
		return ae.Reason
	}
	return ae.Kind.String()
}
