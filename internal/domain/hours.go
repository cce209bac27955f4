package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day in minutes since midnight.
type ClockTime int

const minutesPerDay = 24 * 60

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ClockOf returns the minute-resolution clock time of t in t's location.
func ClockOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute())
}

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return NewClockTime(t.Hour(), t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// DayHours is one weekday entry. The zero value is a closed day.
type DayHours struct {
	Open bool
	From ClockTime
	To   ClockTime
}

type dayHoursJSON struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

func (d DayHours) MarshalJSON() ([]byte, error) {
	if !d.Open {
		return json.Marshal(dayHoursJSON{Closed: true})
	}
	return json.Marshal(dayHoursJSON{From: d.From.String(), To: d.To.String()})
}

func (d *DayHours) UnmarshalJSON(b []byte) error {
	var raw dayHoursJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Closed || (raw.From == "" && raw.To == "") {
		*d = DayHours{}
		return nil
	}
	from, err := ParseClockTime(raw.From)
	if err != nil {
		return err
	}
	to, err := ParseClockTime(raw.To)
	if err != nil {
		return err
	}
	*d = DayHours{Open: true, From: from, To: to}
	return nil
}

// BusinessHours is a weekly schedule indexed by time.Weekday (Sunday = 0).
type BusinessHours [7]DayHours

var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func WeekdayName(w time.Weekday) string {
	return weekdayNames[w]
}

func (h BusinessHours) Day(w time.Weekday) DayHours {
	return h[w]
}

// Validate checks that every open day has a non-empty window inside one calendar day.
func (h BusinessHours) Validate() error {
	for i, d := range h {
		if !d.Open {
			continue
		}
		if d.From < 0 || d.To > minutesPerDay || d.To <= d.From {
			return fmt.Errorf("%s: closing time must be after opening time", weekdayNames[i])
		}
	}
	return nil
}

func (h BusinessHours) MarshalJSON() ([]byte, error) {
	out := make(map[string]DayHours, len(h))
	for i, d := range h {
		out[weekdayNames[i]] = d
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts a weekday-name keyed object; missing days are closed.
func (h *BusinessHours) UnmarshalJSON(b []byte) error {
	var raw map[string]DayHours
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out BusinessHours
	for key, d := range raw {
		idx := -1
		for i, name := range weekdayNames {
			if strings.EqualFold(key, name) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("unknown weekday %q", key)
		}
		out[idx] = d
	}
	*h = out
	return nil
}

// Value and Scan store the schedule as a JSON column.
func (h BusinessHours) Value() (driver.Value, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (h *BusinessHours) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*h = BusinessHours{}
		return nil
	case []byte:
		return h.UnmarshalJSON(v)
	case string:
		return h.UnmarshalJSON([]byte(v))
	default:
		return errors.New("unsupported business hours column type")
	}
}
