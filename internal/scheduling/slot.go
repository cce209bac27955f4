package scheduling

import (
	"time"

	"tapbook/internal/domain"
)

// NewSlot builds the slot that starts at start and lasts duration.
func NewSlot(start time.Time, duration time.Duration) domain.Slot {
	return domain.Slot{Start: start, End: start.Add(duration)}
}

// ValidateSlot checks that slot fits inside w once both ends are expressed in loc.
// Comparison is at minute resolution. A slot that crosses midnight never fits.
func ValidateSlot(slot domain.Slot, w Window, loc *time.Location) error {
	if !slot.End.After(slot.Start) {
		return ErrOutOfHours
	}
	start := slot.Start.In(loc)
	end := slot.End.In(loc)

	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		return ErrOutOfHours
	}

	if domain.ClockOf(start) < w.From || domain.ClockOf(end) > w.To {
		return ErrOutOfHours
	}
	return nil
}

// CheckHours resolves the business hours for the slot's start day and validates the slot.
func CheckHours(hours domain.BusinessHours, slot domain.Slot, loc *time.Location) error {
	w, ok := Resolve(hours, slot.Start.In(loc))
	if !ok {
		return ErrClosed
	}
	return ValidateSlot(slot, w, loc)
}
