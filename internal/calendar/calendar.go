// Package calendar generates month slots and answers calendar questions
// (days in month, leap years, inclusive day counts) for the projection,
// variance and cashflow engines.
//
// All day arithmetic goes through real calendar dates. Subtracting
// day-of-month numbers across a month boundary is never correct:
// Jan 25 to Feb 4 spans 11 days, not -20.
package calendar

import "time"

// MonthKeyLayout is the layout of month keys ("YYYY-MM").
const MonthKeyLayout = "2006-01"

// MonthSlot is the unit of time bucketing shared by every engine.
type MonthSlot struct {
	Month       string    `json:"month"` // "YYYY-MM"
	Year        int       `json:"year"`
	MonthNum    int       `json:"monthNum"` // 1-12
	FirstDay    time.Time `json:"firstDay"`
	LastDay     time.Time `json:"lastDay"`
	DaysInMonth int       `json:"daysInMonth"`
}

// Contains reports whether t falls on a day inside the slot.
func (s MonthSlot) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(s.FirstDay) && !d.After(s.LastDay)
}

// GenerateMonthSlots returns every calendar month from start's month to end's
// month, both inclusive. An end before start yields no slots.
func GenerateMonthSlots(start, end time.Time) []MonthSlot {
	cur := FirstOfMonth(start)
	last := FirstOfMonth(end)
	if cur.After(last) {
		return nil
	}

	var slots []MonthSlot
	for !cur.After(last) {
		slots = append(slots, NewMonthSlot(cur.Year(), int(cur.Month())))
		cur = cur.AddDate(0, 1, 0)
	}
	return slots
}

// NewMonthSlot builds the slot for a given year and month (1-12).
func NewMonthSlot(year, month int) MonthSlot {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	days := DaysInMonth(year, month)
	return MonthSlot{
		Month:       first.Format(MonthKeyLayout),
		Year:        first.Year(),
		MonthNum:    int(first.Month()),
		FirstDay:    first,
		LastDay:     time.Date(first.Year(), first.Month(), days, 0, 0, 0, 0, time.UTC),
		DaysInMonth: days,
	}
}

// DaysInMonth returns the number of days in the month, using the calendar
// rather than a lookup table so February is 28 or 29 as appropriate.
func DaysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return DaysInMonth(year, 2) == 29
}

// MonthKey formats t as "YYYY-MM".
func MonthKey(t time.Time) string {
	return t.Format(MonthKeyLayout)
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FirstOfMonth returns midnight UTC on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// LastOfMonth returns midnight UTC on the last day of t's month.
func LastOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// InclusiveDays counts calendar days from from to to, both included.
// It returns 0 when to is before from.
func InclusiveDays(from, to time.Time) int {
	f, t := DateOf(from), DateOf(to)
	if t.Before(f) {
		return 0
	}
	// Whole days between two UTC midnights; no DST drift in UTC.
	return int(t.Sub(f).Hours()/24) + 1
}

// MonthsBetween returns the number of calendar months from a's month to b's
// month (negative when b precedes a).
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
