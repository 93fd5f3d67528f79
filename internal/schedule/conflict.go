package schedule

// Interval is a half-open range [Start, End) within one day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (i Interval) Valid() bool {
	return i.End > i.Start
}

// Contains reports whether a slot starting at t lies inside the interval.
func (i Interval) Contains(t TimeOfDay) bool {
	return i.Start <= t && t < i.End
}

// Overlaps uses half-open semantics: [s1,e1) and [s2,e2) overlap iff
// s1 < e2 && s2 < e1, so back-to-back intervals never collide.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Span is a booked interval on a given date, as seen by the engine.
type Span struct {
	ID       int64
	Date     string
	Interval Interval
	Occupant string
	Purpose  string
}

// FindConflict returns the first span in existing that shares candidate's
// date and overlaps it. Callers pass spans of a single resource type.
func FindConflict(candidate Span, existing []Span) (Span, bool) {
	for _, s := range existing {
		if s.Date != candidate.Date {
			continue
		}
		if Overlaps(candidate.Interval, s.Interval) {
			return s, true
		}
	}
	return Span{}, false
}
