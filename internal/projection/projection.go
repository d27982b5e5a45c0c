package projection

import (
	"time"

	"cashplan/internal/calendar"
	"cashplan/internal/core"

	"github.com/shopspring/decimal"
)

// LineProjection is one line item's amount per month.
type LineProjection struct {
	LineItem core.LineItem        `json:"lineItem"`
	Months   *calendar.MonthSeries `json:"months"`
	Total    decimal.Decimal       `json:"total"`
}

// CategoryProjection is the expense rollup for one primary tag.
type CategoryProjection struct {
	Tag    string                `json:"tag"`
	Months *calendar.MonthSeries `json:"months"`
	Total  decimal.Decimal       `json:"total"`
}

// Result is the output of Expand.
//
// MonthlyTotals and GrandTotal cover expenses only; income is reported
// separately in MonthlyIncome and TotalIncome. CategoryRollup covers expense
// lines only, so for every month the rollup sums to MonthlyTotals.
type Result struct {
	PeriodStart    core.Date             `json:"periodStart"`
	PeriodEnd      core.Date             `json:"periodEnd"`
	Slots          []calendar.MonthSlot  `json:"slots"`
	Lines          []LineProjection      `json:"lines"`
	MonthlyTotals  *calendar.MonthSeries `json:"monthlyTotals"`
	MonthlyIncome  *calendar.MonthSeries `json:"monthlyIncome"`
	MonthlyNet     *calendar.MonthSeries `json:"monthlyNet"`
	CategoryRollup []CategoryProjection  `json:"categoryRollup"`
	GrandTotal     decimal.Decimal       `json:"grandTotal"`
	TotalIncome    decimal.Decimal       `json:"totalIncome"`
	NetTotal       decimal.Decimal       `json:"netTotal"`
}

// Category returns the rollup for tag, or nil.
func (r Result) Category(tag string) *CategoryProjection {
	for i := range r.CategoryRollup {
		if r.CategoryRollup[i].Tag == tag {
			return &r.CategoryRollup[i]
		}
	}
	return nil
}

// Line returns the projection for a line item ID, or nil.
func (r Result) Line(id string) *LineProjection {
	for i := range r.Lines {
		if r.Lines[i].LineItem.ID == id {
			return &r.Lines[i]
		}
	}
	return nil
}

// Expand projects items over every month from periodStart to periodEnd.
// Items with an unknown frequency contribute nothing.
func Expand(items []core.LineItem, periodStart, periodEnd core.Date) Result {
	slots := calendar.GenerateMonthSlots(periodStart.Time, periodEnd.Time)

	res := Result{
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		Slots:         slots,
		Lines:         make([]LineProjection, 0, len(items)),
		MonthlyTotals: calendar.NewMonthSeries(slots),
		MonthlyIncome: calendar.NewMonthSeries(slots),
		MonthlyNet:    calendar.NewMonthSeries(slots),
	}
	rollupIdx := map[string]int{}

	for _, item := range items {
		months := calendar.NewMonthSeries(slots)
		contributor, err := GetContributor(item.Frequency)
		if err == nil {
			for _, slot := range slots {
				w, ok := activeWindow(item, slot, periodEnd)
				if !ok {
					continue
				}
				months.Add(slot.Month, contributor.Contribute(item, w))
			}
		}

		line := LineProjection{LineItem: item, Months: months, Total: months.Total()}
		res.Lines = append(res.Lines, line)

		if item.Type == core.Income {
			months.Each(res.MonthlyIncome.Add)
			continue
		}

		months.Each(res.MonthlyTotals.Add)
		tag := item.PrimaryTag()
		i, ok := rollupIdx[tag]
		if !ok {
			i = len(res.CategoryRollup)
			rollupIdx[tag] = i
			res.CategoryRollup = append(res.CategoryRollup, CategoryProjection{
				Tag:    tag,
				Months: calendar.NewMonthSeries(slots),
			})
		}
		months.Each(res.CategoryRollup[i].Months.Add)
	}

	for i := range res.CategoryRollup {
		res.CategoryRollup[i].Total = res.CategoryRollup[i].Months.Total()
	}
	for _, slot := range slots {
		res.MonthlyNet.Set(slot.Month, res.MonthlyIncome.Get(slot.Month).Sub(res.MonthlyTotals.Get(slot.Month)))
	}
	res.GrandTotal = res.MonthlyTotals.Total()
	res.TotalIncome = res.MonthlyIncome.Total()
	res.NetTotal = res.TotalIncome.Sub(res.GrandTotal)
	return res
}

// activeWindow clamps the item's effective range to slot. The effective end
// is the item's end date, or the period end for open-ended items.
func activeWindow(item core.LineItem, slot calendar.MonthSlot, periodEnd core.Date) (Window, bool) {
	start := calendar.DateOf(item.StartDate.Time)
	end := calendar.DateOf(periodEnd.Time)
	if item.EndDate != nil {
		end = calendar.DateOf(item.EndDate.Time)
	}
	if start.After(slot.LastDay) || end.Before(slot.FirstDay) {
		return Window{}, false
	}
	return Window{
		Slot:  slot,
		Start: core.Date{Time: maxTime(start, slot.FirstDay)},
		End:   core.Date{Time: minTime(end, slot.LastDay)},
	}, true
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
