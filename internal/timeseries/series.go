package timeseries

import (
	"sort"
	"time"
)

// DateFormat is the wire format for calendar days.
const DateFormat = "2006-01-02"

// Point is one observed day in a daily series.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a daily series ordered by ascending date, at most one point per
// calendar day.
type Series []Point

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// FromTotals builds a sorted series from per-day totals.
func FromTotals(totals map[time.Time]float64) Series {
	if len(totals) == 0 {
		return nil
	}
	s := make(Series, 0, len(totals))
	for date, value := range totals {
		s = append(s, Point{Date: date, Value: value})
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
	return s
}

// IsEmpty reports whether the series holds no observations.
func (s Series) IsEmpty() bool {
	return len(s) == 0
}

// FirstDate returns the earliest date in the series.
func (s Series) FirstDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

// LastDate returns the latest date in the series.
func (s Series) LastDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// Values returns the observation values in date order.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Tail returns the trailing n points, or the whole series when shorter.
func (s Series) Tail(n int) Series {
	if n <= 0 {
		return nil
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Normalize reindexes the series onto the full calendar range from its first
// date through horizonEnd, inserting zero-valued points for days with no
// observation, then truncates to the trailing windowDays. A zero value means
// "no sales that day", not "unknown". An empty series normalizes to an empty
// series; no synthetic dates are invented.
func Normalize(s Series, horizonEnd time.Time, windowDays int) Series {
	if len(s) == 0 {
		return nil
	}

	byDate := make(map[time.Time]float64, len(s))
	start := Day(s[0].Date)
	for _, p := range s {
		date := Day(p.Date)
		byDate[date] = p.Value
		if date.Before(start) {
			start = date
		}
	}

	end := Day(horizonEnd)
	if end.Before(start) {
		return nil
	}

	full := make(Series, 0, int(end.Sub(start).Hours()/24)+1)
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		full = append(full, Point{Date: date, Value: byDate[date]})
	}
	return full.Tail(windowDays)
}
