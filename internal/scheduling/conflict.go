package scheduling

import "tapbook/internal/domain"

// Overlaps reports whether two half-open slots intersect. Back-to-back slots do not.
func Overlaps(a, b domain.Slot) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// HasConflict reports whether candidate overlaps any blocking appointment in existing,
// ignoring the appointment with id excludeID (0 excludes nothing).
func HasConflict(candidate domain.Slot, existing []domain.Appointment, excludeID int64) bool {
	for _, a := range existing {
		if excludeID != 0 && a.ID == excludeID {
			continue
		}
		if !a.Status.Blocking() {
			continue
		}
		if Overlaps(candidate, a.Slot) {
			return true
		}
	}
	return false
}
