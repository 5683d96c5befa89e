package report

import "time"

// Window is a closed time interval [From, To]
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies within the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// YearToDate returns Jan 1 of now's year through now
func YearToDate(now time.Time) Window {
	return Window{From: startOfYear(now), To: now}
}

// PriorYearToDate covers the same elapsed span of the previous year
func PriorYearToDate(now time.Time) Window {
	start := startOfYear(now).AddDate(-1, 0, 0)
	end := start.Add(now.Sub(startOfYear(now)))
	if limit := startOfYear(now).Add(-time.Nanosecond); end.After(limit) {
		end = limit
	}
	return Window{From: start, To: end}
}

// MonthToDate returns the first of now's month through now
func MonthToDate(now time.Time) Window {
	return Window{From: startOfMonth(now), To: now}
}

// PriorMonthToDate covers the same elapsed span of the previous calendar month,
// clamped to that month's last instant
func PriorMonthToDate(now time.Time) Window {
	monthStart := startOfMonth(now)
	start := monthStart.AddDate(0, -1, 0)
	end := start.Add(now.Sub(monthStart))
	if limit := monthStart.Add(-time.Nanosecond); end.After(limit) {
		end = limit
	}
	return Window{From: start, To: end}
}
