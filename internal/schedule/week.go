package schedule

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	shortDayLayout  = "Mon 01/02"
	fullDayLayout   = "Monday, January 02, 2006"
	workDaysPerWeek = 5
)

type Day struct {
	Date  time.Time `json:"-"`
	ISO   string    `json:"date"`
	Short string    `json:"display"`
	Full  string    `json:"full_display"`
}

type Week struct {
	Offset    int       `json:"week_offset"`
	Days      []Day     `json:"days"`
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
	Display   string    `json:"week_display"`
	IsCurrent bool      `json:"is_current_week"`
	IsPast    bool      `json:"is_past_week"`
}

// ResolveWeek returns Monday through Friday of the week offset weeks away
// from the one containing now. Dates are derived from now's calendar date
// only, so the wall clock and DST transitions never move a day.
func ResolveWeek(offset int, now time.Time) Week {
	monday := Monday(now).AddDate(0, 0, 7*offset)

	days := make([]Day, workDaysPerWeek)
	for i := range days {
		d := monday.AddDate(0, 0, i)
		days[i] = Day{
			Date:  d,
			ISO:   d.Format(DateLayout),
			Short: d.Format(shortDayLayout),
			Full:  d.Format(fullDayLayout),
		}
	}

	start, end := days[0].Date, days[len(days)-1].Date
	return Week{
		Offset:    offset,
		Days:      days,
		Start:     start,
		End:       end,
		Display:   fmt.Sprintf("%s - %s", start.Format("January 02"), end.Format("January 02, 2006")),
		IsCurrent: offset == 0,
		IsPast:    offset < 0,
	}
}

// Monday returns the Monday of now's week as a UTC calendar date.
func Monday(now time.Time) time.Time {
	today := CalendarDate(now)
	return today.AddDate(0, 0, -weekdayIndex(today.Weekday()))
}

// CalendarDate strips the clock and zone from t, keeping its local date.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdayIndex numbers days from Monday=0 to Sunday=6.
func weekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

func (w Week) Prev() int { return w.Offset - 1 }
func (w Week) Next() int { return w.Offset + 1 }

// FirstISO and LastISO bound the week for range queries.
func (w Week) FirstISO() string { return w.Days[0].ISO }
func (w Week) LastISO() string  { return w.Days[len(w.Days)-1].ISO }

// Contains reports whether date (YYYY-MM-DD) is one of the week's days.
func (w Week) Contains(date string) bool {
	for _, d := range w.Days {
		if d.ISO == date {
			return true
		}
	}
	return false
}
