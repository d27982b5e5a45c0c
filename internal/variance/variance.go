// Package variance compares a projection against confirmed actuals.
//
// Only expense actuals take part. An actual's type comes from the line item
// it references; unmatched actuals, and actuals whose line item is gone, are
// expenses. Income never inflates actual spend.
package variance

import (
	"cashplan/internal/calendar"
	"cashplan/internal/core"
	"cashplan/internal/projection"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Over    Direction = "over"
	Under   Direction = "under"
	Neutral Direction = "neutral"
)

var hundred = decimal.NewFromInt(100)

// Figures are the budgeted-vs-actual numbers shared by every granularity.
type Figures struct {
	Budgeted        decimal.Decimal  `json:"budgeted"`
	Actual          decimal.Decimal  `json:"actual"`
	Variance        decimal.Decimal  `json:"variance"`
	VariancePercent *decimal.Decimal `json:"variancePercent"`
	Direction       Direction        `json:"direction"`
}

type LineVariance struct {
	LineItem core.LineItem `json:"lineItem"`
	Figures
}

type TagVariance struct {
	Tag string `json:"tag"`
	Figures
}

type MonthVariance struct {
	Month      string `json:"month"`
	HasActuals bool   `json:"hasActuals"`
	Figures
}

// Result is the output of Compare.
type Result struct {
	Lines         []LineVariance  `json:"lines"`
	Tags          []TagVariance   `json:"tags"`
	Months        []MonthVariance `json:"months"`
	Unbudgeted    []core.Actual   `json:"unbudgeted"`
	TotalBudgeted decimal.Decimal `json:"totalBudgeted"`
	TotalActual   decimal.Decimal `json:"totalActual"`
	TotalVariance decimal.Decimal `json:"totalVariance"`
	Direction     Direction       `json:"direction"`
}

// Tag returns the variance for tag, or nil.
func (r Result) Tag(tag string) *TagVariance {
	for i := range r.Tags {
		if r.Tags[i].Tag == tag {
			return &r.Tags[i]
		}
	}
	return nil
}

// Line returns the variance for a line item ID, or nil.
func (r Result) Line(id string) *LineVariance {
	for i := range r.Lines {
		if r.Lines[i].LineItem.ID == id {
			return &r.Lines[i]
		}
	}
	return nil
}

// NewFigures derives variance, percentage and direction from a budgeted and
// an actual amount. The percentage is nil when nothing was budgeted.
func NewFigures(budgeted, actual decimal.Decimal) Figures {
	v := actual.Sub(budgeted)
	f := Figures{
		Budgeted:  budgeted,
		Actual:    actual,
		Variance:  v,
		Direction: DirectionOf(v),
	}
	if !budgeted.IsZero() {
		pct := v.Div(budgeted).Mul(hundred)
		f.VariancePercent = &pct
	}
	return f
}

// DirectionOf classifies a variance. Anything under half a cent is neutral.
func DirectionOf(v decimal.Decimal) Direction {
	switch {
	case v.Abs().LessThan(core.HalfCent):
		return Neutral
	case v.IsPositive():
		return Over
	default:
		return Under
	}
}

// Compare aggregates expense actuals against the projection per line item,
// per primary tag and per month. Callers pass the actuals that belong to the
// projected period.
func Compare(proj projection.Result, actuals []core.Actual, items []core.LineItem) Result {
	idx := core.LineItemIndex(items)

	lineActual := map[string]decimal.Decimal{}
	tagActual := map[string]decimal.Decimal{}
	var extraTags []string
	monthActual := calendar.NewMonthSeries(proj.Slots)
	monthSeen := map[string]bool{}

	res := Result{
		Lines:         []LineVariance{},
		Tags:          []TagVariance{},
		Months:        make([]MonthVariance, 0, len(proj.Slots)),
		Unbudgeted:    []core.Actual{},
		TotalBudgeted: proj.GrandTotal,
		TotalActual:   decimal.Zero,
	}

	for _, a := range actuals {
		if core.ActualType(a, idx) != core.Expense {
			continue
		}
		res.TotalActual = res.TotalActual.Add(a.Amount)

		tag := a.PrimaryTag()
		if li, ok := linkedItem(a, idx); ok {
			lineActual[li.ID] = lineActual[li.ID].Add(a.Amount)
			tag = li.PrimaryTag()
		} else {
			res.Unbudgeted = append(res.Unbudgeted, a)
		}

		if _, ok := tagActual[tag]; !ok && proj.Category(tag) == nil {
			extraTags = append(extraTags, tag)
		}
		tagActual[tag] = tagActual[tag].Add(a.Amount)

		month := a.Date.MonthKey()
		if monthActual.Has(month) {
			monthActual.Add(month, a.Amount)
			monthSeen[month] = true
		}
	}

	for _, lp := range proj.Lines {
		if lp.LineItem.Type != core.Expense {
			continue
		}
		res.Lines = append(res.Lines, LineVariance{
			LineItem: lp.LineItem,
			Figures:  NewFigures(lp.Total, lineActual[lp.LineItem.ID]),
		})
	}

	for _, c := range proj.CategoryRollup {
		res.Tags = append(res.Tags, TagVariance{Tag: c.Tag, Figures: NewFigures(c.Total, tagActual[c.Tag])})
	}
	for _, tag := range extraTags {
		res.Tags = append(res.Tags, TagVariance{Tag: tag, Figures: NewFigures(decimal.Zero, tagActual[tag])})
	}

	for _, slot := range proj.Slots {
		res.Months = append(res.Months, MonthVariance{
			Month:      slot.Month,
			HasActuals: monthSeen[slot.Month],
			Figures:    NewFigures(proj.MonthlyTotals.Get(slot.Month), monthActual.Get(slot.Month)),
		})
	}

	res.TotalVariance = res.TotalActual.Sub(res.TotalBudgeted)
	res.Direction = DirectionOf(res.TotalVariance)
	return res
}

// linkedItem returns the line item an actual references, if it still exists.
func linkedItem(a core.Actual, idx map[string]core.LineItem) (core.LineItem, bool) {
	if !a.IsMatched() {
		return core.LineItem{}, false
	}
	li, ok := idx[*a.LineItemID]
	return li, ok
}
