// Package report renders read-only tabular views of a room's events and
// derived shift requirements. It never mutates scheduling state.
package report

import "time"

// Period identifies the range preset requested for event listings.
type Period string

const (
	// PeriodNone indicates no preset; caller supplied explicit bounds.
	PeriodNone Period = ""
	// PeriodDay constrains results to a single day.
	PeriodDay Period = "day"
	// PeriodWeek constrains results to the Monday-start week containing the
	// reference time.
	PeriodWeek Period = "week"
	// PeriodMonth constrains results to the month containing the reference
	// time.
	PeriodMonth Period = "month"
)

// Range computes the half-open [start, end) window for a period preset
// around the reference time, evaluated in the given location. A nil
// location defaults to UTC.
func Range(period Period, reference time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	switch period {
	case PeriodDay:
		start := startOfDay(reference, loc)
		return start, start.AddDate(0, 0, 1)
	case PeriodWeek:
		start := startOfWeek(reference, loc)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonth:
		start := startOfMonth(reference, loc)
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func startOfWeek(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	weekday := int(start.Weekday())
	// Adjust so Monday is start of week. In Go, Monday == 1, Sunday == 0.
	offset := (weekday + 6) % 7
	return start.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
}
