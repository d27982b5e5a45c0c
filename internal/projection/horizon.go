package projection

import (
	"time"

	"cashplan/internal/calendar"
	"cashplan/internal/core"
)

// RollingMonths is the number of months an open period covers, including
// the current one.
const RollingMonths = 12

// Horizon is the resolved projection period.
type Horizon struct {
	Start core.Date `json:"start"`
	End   core.Date `json:"end"`
}

// ResolveHorizon returns the projection period for a workspace period type.
// An open period rolls: the current calendar month plus the following 11.
// A fixed period uses the explicit start and end; if either is missing it
// falls back to the rolling window.
func ResolveHorizon(periodType core.PeriodType, start, end *core.Date, now time.Time) Horizon {
	if periodType == core.PeriodFixed && start != nil && end != nil {
		return Horizon{Start: *start, End: *end}
	}
	first := calendar.FirstOfMonth(now)
	last := calendar.LastOfMonth(first.AddDate(0, RollingMonths-1, 0))
	return Horizon{
		Start: core.Date{Time: first},
		End:   core.Date{Time: last},
	}
}

// Slots returns the month slots of the horizon.
func (h Horizon) Slots() []calendar.MonthSlot {
	return calendar.GenerateMonthSlots(h.Start.Time, h.End.Time)
}

// Contains reports whether d falls inside the horizon.
func (h Horizon) Contains(d core.Date) bool {
	return !d.Before(h.Start.Time) && !d.After(h.End.Time)
}
