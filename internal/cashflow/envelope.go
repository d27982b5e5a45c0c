package cashflow

import (
	"time"

	"cashplan/internal/calendar"
	"cashplan/internal/core"
	"cashplan/internal/projection"

	"github.com/shopspring/decimal"
)

// EnvelopeMonth is one month of an envelope burn-down.
type EnvelopeMonth struct {
	Month       string          `json:"month"`
	Projected   decimal.Decimal `json:"projected"`
	Actual      decimal.Decimal `json:"actual"`
	UsingActual bool            `json:"usingActual"`
	Effective   decimal.Decimal `json:"effective"`
	Cumulative  decimal.Decimal `json:"cumulative"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// EnvelopeResult tracks a fixed budget being spent down.
//
// TotalSpent and Remaining describe actual spend to date. The Months series
// and LowestBalance are the forecast, blending actual and projected spend.
type EnvelopeResult struct {
	TotalBudget     decimal.Decimal  `json:"totalBudget"`
	Months          []EnvelopeMonth  `json:"months"`
	TotalSpent      decimal.Decimal  `json:"totalSpent"`
	Remaining       decimal.Decimal  `json:"remaining"`
	DaysCovered     int              `json:"daysCovered"`
	BurnRate        *decimal.Decimal `json:"burnRate"`
	DepletionDate   *core.Date       `json:"depletionDate"`
	AlreadyDepleted bool             `json:"alreadyDepleted"`
	ExhaustedMonth  string           `json:"exhaustedMonth,omitempty"`
	LowestBalance   decimal.Decimal  `json:"lowestBalance"`
}

// ProjectEnvelope burns totalBudget down month by month. Envelopes track
// spend only, so every actual counts as an expense.
//
// The daily burn rate is total actual spend over the days from the earliest
// actual to today, inclusive and at least one. With a positive burn rate and
// budget left, the depletion date is today plus ceil(remaining / rate) days.
func ProjectEnvelope(totalBudget decimal.Decimal, proj projection.Result, actuals []core.Actual, today time.Time) EnvelopeResult {
	spend := calendar.NewMonthSeries(proj.Slots)
	hasSpend := map[string]bool{}
	totalSpent := decimal.Zero
	var earliest time.Time

	for _, a := range actuals {
		totalSpent = totalSpent.Add(a.Amount)
		if earliest.IsZero() || a.Date.Before(earliest) {
			earliest = a.Date.Time
		}
		month := a.Date.MonthKey()
		if spend.Has(month) {
			spend.Add(month, a.Amount)
			hasSpend[month] = true
		}
	}

	res := EnvelopeResult{
		TotalBudget:   totalBudget,
		Months:        make([]EnvelopeMonth, 0, len(proj.Slots)),
		TotalSpent:    totalSpent,
		Remaining:     totalBudget.Sub(totalSpent),
		LowestBalance: totalBudget,
	}

	cumulative := decimal.Zero
	for _, slot := range proj.Slots {
		m := EnvelopeMonth{
			Month:       slot.Month,
			Projected:   proj.MonthlyTotals.Get(slot.Month),
			Actual:      spend.Get(slot.Month),
			UsingActual: hasSpend[slot.Month],
		}
		m.Effective = pick(m.UsingActual, m.Actual, m.Projected)
		cumulative = cumulative.Add(m.Effective)
		m.Cumulative = cumulative
		m.Remaining = totalBudget.Sub(cumulative)
		res.Months = append(res.Months, m)

		if m.Remaining.LessThan(res.LowestBalance) {
			res.LowestBalance = m.Remaining
		}
		if res.ExhaustedMonth == "" && !m.Remaining.IsPositive() {
			res.ExhaustedMonth = slot.Month
		}
	}

	res.AlreadyDepleted = !res.Remaining.IsPositive()
	if len(actuals) == 0 {
		return res
	}

	res.DaysCovered = max(calendar.InclusiveDays(earliest, today), 1)
	if !totalSpent.IsPositive() {
		return res
	}
	rate := totalSpent.Div(decimal.NewFromInt(int64(res.DaysCovered)))
	res.BurnRate = &rate

	if res.AlreadyDepleted {
		return res
	}
	days := res.Remaining.Div(rate).Ceil().IntPart()
	depletion := core.DateFromTime(today).AddDate(0, 0, int(days))
	res.DepletionDate = &core.Date{Time: depletion}
	return res
}
