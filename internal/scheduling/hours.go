package scheduling

import (
	"time"

	"tapbook/internal/domain"
)

// Window is the open interval of one day, in clock times.
type Window struct {
	From domain.ClockTime `json:"from"`
	To   domain.ClockTime `json:"to"`
}

// Resolve returns the opening window for date's weekday. The date must already be
// expressed in the operating timezone. ok is false when the day is closed.
func Resolve(hours domain.BusinessHours, date time.Time) (w Window, ok bool) {
	d := hours.Day(date.Weekday())
	if !d.Open || d.To <= d.From {
		return Window{}, false
	}
	return Window{From: d.From, To: d.To}, true
}

// Bounds returns the window as instants on date's calendar day in loc.
func (w Window) Bounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	d := date.In(loc)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return midnight.Add(time.Duration(w.From) * time.Minute), midnight.Add(time.Duration(w.To) * time.Minute)
}
