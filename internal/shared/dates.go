package shared

import "time"

// BusinessDate truncates t to a calendar date at UTC midnight. All
// business-day grouping in the finance engine works on these values,
// independent of the created_at audit timestamps.
func BusinessDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// YearStart returns January 1st of t's year.
func YearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

// NextDay returns the calendar day after t.
func NextDay(t time.Time) time.Time {
	return BusinessDate(t).AddDate(0, 0, 1)
}
