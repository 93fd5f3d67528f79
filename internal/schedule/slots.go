package schedule

import (
	"fmt"
	"time"
)

const (
	SlotLength = 30 * time.Minute

	dayStart  TimeOfDay = 8 * 60
	lastStart TimeOfDay = 16*60 + 30
)

// TimeOfDay is a wall-clock time expressed as minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM", or "HH:MM:SS" with zero seconds as
// the database renders it.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	layout := "15:04"
	if len(s) == 8 {
		layout = "15:04:05"
	} else if len(s) != 5 {
		return 0, fmt.Errorf("invalid time string: %q", s)
	}
	tt, err := time.Parse(layout, s)
	if err != nil || tt.Second() != 0 {
		return 0, fmt.Errorf("invalid time string: %q", s)
	}
	return TimeOfDay(tt.Hour()*60 + tt.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// OnGrid reports whether t falls on a slot boundary.
func (t TimeOfDay) OnGrid() bool {
	return int(t)%int(SlotLength/time.Minute) == 0
}

// Slots returns the bookable slot starts, 08:00 through 16:30 inclusive.
func Slots() []TimeOfDay {
	var slots []TimeOfDay
	for t := dayStart; t <= lastStart; t = t.Add(SlotLength) {
		slots = append(slots, t)
	}
	return slots
}

// EndTimes returns the choices offered for a booking's end, one slot
// past every start.
func EndTimes() []TimeOfDay {
	slots := Slots()
	out := make([]TimeOfDay, len(slots))
	for i, s := range slots {
		out[i] = s.Add(SlotLength)
	}
	return out
}

// At combines a YYYY-MM-DD date and a time of day into a wall-clock instant in loc.
func At(date string, t TimeOfDay, loc *time.Location) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), int(t)/60, int(t)%60, 0, 0, loc), nil
}
