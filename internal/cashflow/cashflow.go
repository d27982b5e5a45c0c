// Package cashflow projects running balances from a projection and the
// actuals confirmed so far.
package cashflow

import (
	"cashplan/internal/calendar"
	"cashplan/internal/core"
	"cashplan/internal/projection"

	"github.com/shopspring/decimal"
)

// MonthBalance is one month of a cashflow projection. For each of income and
// expense the effective figure is the actual total when any actual of that
// type exists in the month, and the projected total otherwise.
type MonthBalance struct {
	Month              string          `json:"month"`
	ProjectedIncome    decimal.Decimal `json:"projectedIncome"`
	ProjectedExpense   decimal.Decimal `json:"projectedExpense"`
	ActualIncome       decimal.Decimal `json:"actualIncome"`
	ActualExpense      decimal.Decimal `json:"actualExpense"`
	UsingActualIncome  bool            `json:"usingActualIncome"`
	UsingActualExpense bool            `json:"usingActualExpense"`
	EffectiveIncome    decimal.Decimal `json:"effectiveIncome"`
	EffectiveExpense   decimal.Decimal `json:"effectiveExpense"`
	Net                decimal.Decimal `json:"net"`
	OpeningBalance     decimal.Decimal `json:"openingBalance"`
	ClosingBalance     decimal.Decimal `json:"closingBalance"`
}

type Result struct {
	StartingBalance    decimal.Decimal `json:"startingBalance"`
	Months             []MonthBalance  `json:"months"`
	EndingBalance      decimal.Decimal `json:"endingBalance"`
	WillGoNegative     bool            `json:"willGoNegative"`
	ZeroCrossingMonth  string          `json:"zeroCrossingMonth,omitempty"`
	ZeroCrossingDate   *core.Date      `json:"zeroCrossingDate,omitempty"`
	LowestBalance      decimal.Decimal `json:"lowestBalance"`
	LowestBalanceMonth string          `json:"lowestBalanceMonth,omitempty"`
}

// Project walks the projection's months in order, carrying a running balance
// from startingBalance. The lowest balance is tracked over the whole horizon,
// even when the balance recovers afterwards.
func Project(startingBalance decimal.Decimal, proj projection.Result, actuals []core.Actual, items []core.LineItem) Result {
	idx := core.LineItemIndex(items)
	actualIncome := calendar.NewMonthSeries(proj.Slots)
	actualExpense := calendar.NewMonthSeries(proj.Slots)
	hasIncome := map[string]bool{}
	hasExpense := map[string]bool{}

	for _, a := range actuals {
		month := a.Date.MonthKey()
		if !actualIncome.Has(month) {
			continue
		}
		if core.ActualType(a, idx) == core.Income {
			actualIncome.Add(month, a.Amount)
			hasIncome[month] = true
		} else {
			actualExpense.Add(month, a.Amount)
			hasExpense[month] = true
		}
	}

	res := Result{
		StartingBalance: startingBalance,
		Months:          make([]MonthBalance, 0, len(proj.Slots)),
		LowestBalance:   startingBalance,
	}
	balance := startingBalance

	for i, slot := range proj.Slots {
		m := MonthBalance{
			Month:              slot.Month,
			ProjectedIncome:    proj.MonthlyIncome.Get(slot.Month),
			ProjectedExpense:   proj.MonthlyTotals.Get(slot.Month),
			ActualIncome:       actualIncome.Get(slot.Month),
			ActualExpense:      actualExpense.Get(slot.Month),
			UsingActualIncome:  hasIncome[slot.Month],
			UsingActualExpense: hasExpense[slot.Month],
			OpeningBalance:     balance,
		}
		m.EffectiveIncome = pick(m.UsingActualIncome, m.ActualIncome, m.ProjectedIncome)
		m.EffectiveExpense = pick(m.UsingActualExpense, m.ActualExpense, m.ProjectedExpense)
		m.Net = m.EffectiveIncome.Sub(m.EffectiveExpense)
		balance = balance.Add(m.Net)
		m.ClosingBalance = balance
		res.Months = append(res.Months, m)

		if i == 0 || balance.LessThan(res.LowestBalance) {
			res.LowestBalance = balance
			res.LowestBalanceMonth = slot.Month
		}
		if !res.WillGoNegative && balance.IsNegative() {
			res.WillGoNegative = true
			res.ZeroCrossingMonth = slot.Month
			d := crossingDate(slot, m.OpeningBalance, m.Net)
			res.ZeroCrossingDate = &d
		}
	}

	res.EndingBalance = balance
	return res
}

// crossingDate estimates the day inside slot at which opening plus a linear
// share of net first drops below zero.
func crossingDate(slot calendar.MonthSlot, opening, net decimal.Decimal) core.Date {
	day := 1
	if net.IsNegative() && opening.IsPositive() {
		frac := opening.Div(net.Neg()).Mul(decimal.NewFromInt(int64(slot.DaysInMonth)))
		day = int(frac.Ceil().IntPart())
	}
	day = min(max(day, 1), slot.DaysInMonth)
	return core.NewDate(slot.Year, slot.MonthNum, day)
}

func pick(useActual bool, actual, projected decimal.Decimal) decimal.Decimal {
	if useActual {
		return actual
	}
	return projected
}
