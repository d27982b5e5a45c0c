// Package projection expands line items into per-month amounts over a
// planning horizon.
//
// This file implements the Strategy Pattern for frequency handling. Each
// frequency (once-off, daily, weekly, monthly, quarterly, annually) has its
// own contributor that decides how much of an item lands in a given month.
package projection

import (
	"fmt"

	"cashplan/internal/calendar"
	"cashplan/internal/core"

	"github.com/shopspring/decimal"
)

var daysPerWeek = decimal.NewFromInt(7)

// Window is the part of a month slot during which an item is active.
type Window struct {
	Slot  calendar.MonthSlot
	Start core.Date // clamped to the slot
	End   core.Date // clamped to the slot
}

// Days is the inclusive number of active days in the window.
func (w Window) Days() int {
	return calendar.InclusiveDays(w.Start.Time, w.End.Time)
}

// Contributor is the strategy interface for a frequency. It returns the
// amount an item contributes to the window's month. The window is only
// passed for months the item overlaps.
type Contributor interface {
	Contribute(item core.LineItem, w Window) decimal.Decimal
}

// OnceOffContributor books the full amount in the start month only.
type OnceOffContributor struct{}

func (OnceOffContributor) Contribute(item core.LineItem, w Window) decimal.Decimal {
	if item.StartDate.MonthKey() != w.Slot.Month {
		return decimal.Zero
	}
	return item.Amount
}

// DailyContributor books amount × active days.
type DailyContributor struct{}

func (DailyContributor) Contribute(item core.LineItem, w Window) decimal.Decimal {
	return item.Amount.Mul(decimal.NewFromInt(int64(w.Days())))
}

// WeeklyContributor books amount × active days / 7. The fractional
// weeks-per-month figure is intentional and is not snapped to whole weeks.
type WeeklyContributor struct{}

func (WeeklyContributor) Contribute(item core.LineItem, w Window) decimal.Decimal {
	return item.Amount.Mul(decimal.NewFromInt(int64(w.Days()))).Div(daysPerWeek)
}

// MonthlyContributor books the full amount in every active month.
type MonthlyContributor struct{}

func (MonthlyContributor) Contribute(item core.LineItem, _ Window) decimal.Decimal {
	return item.Amount
}

// QuarterlyContributor books the full amount every third month counted from
// the start month.
type QuarterlyContributor struct{}

func (QuarterlyContributor) Contribute(item core.LineItem, w Window) decimal.Decimal {
	if calendar.MonthsBetween(item.StartDate.Time, w.Slot.FirstDay)%3 != 0 {
		return decimal.Zero
	}
	return item.Amount
}

// AnnualContributor books the full amount in the start date's calendar month
// of every active year.
type AnnualContributor struct{}

func (AnnualContributor) Contribute(item core.LineItem, w Window) decimal.Decimal {
	if int(item.StartDate.Month()) != w.Slot.MonthNum {
		return decimal.Zero
	}
	return item.Amount
}

// contributors maps frequencies to their strategies.
var contributors = map[core.Frequency]Contributor{
	core.OnceOff:   OnceOffContributor{},
	core.Daily:     DailyContributor{},
	core.Weekly:    WeeklyContributor{},
	core.Monthly:   MonthlyContributor{},
	core.Quarterly: QuarterlyContributor{},
	core.Annually:  AnnualContributor{},
}

// GetContributor returns the strategy for a frequency.
func GetContributor(frequency core.Frequency) (Contributor, error) {
	c, ok := contributors[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return c, nil
}
