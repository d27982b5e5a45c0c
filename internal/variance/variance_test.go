package variance

import (
	"testing"

	"cashplan/internal/core"
	"cashplan/internal/projection"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func monthly(id string, typ core.ItemType, amount, tag string) core.LineItem {
	return core.LineItem{
		ID:          id,
		Description: id,
		Tags:        []string{tag},
		Amount:      dec(amount),
		Frequency:   core.Monthly,
		Type:        typ,
		StartDate:   core.NewDate(2026, 1, 1),
	}
}

func actual(id, lineID string, date core.Date, amount, tag string) core.Actual {
	a := core.Actual{
		ID:              id,
		Date:            date,
		Amount:          dec(amount),
		Tags:            []string{tag},
		Description:     id,
		MatchConfidence: core.ConfidenceUnmatched,
	}
	if lineID != "" {
		a.LineItemID = strPtr(lineID)
		a.MatchConfidence = core.ConfidenceHigh
		a.Approved = true
	}
	return a
}

func TestCompareExcludesIncomeActuals(t *testing.T) {
	items := []core.LineItem{
		monthly("salary", core.Income, "3500", "Salary"),
		monthly("rent", core.Expense, "1000", "Housing"),
	}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 2, 28))
	actuals := []core.Actual{
		actual("a1", "salary", core.NewDate(2026, 1, 25), "3500", "Salary"),
		actual("a2", "rent", core.NewDate(2026, 1, 1), "1000", "Housing"),
	}

	res := Compare(proj, actuals, items)

	if !res.TotalActual.Equal(dec("1000")) {
		t.Fatalf("TotalActual = %s, want 1000", res.TotalActual)
	}
	if res.Line("salary") != nil {
		t.Error("income line must not appear in line variance")
	}
	if res.Tag("Salary") != nil {
		t.Error("income tag must not appear in tag variance")
	}
	if !res.Months[0].Actual.Equal(dec("1000")) {
		t.Errorf("January actual = %s, want 1000", res.Months[0].Actual)
	}
	if len(res.Unbudgeted) != 0 {
		t.Errorf("unbudgeted = %d, want 0", len(res.Unbudgeted))
	}
}

func TestComparePerLine(t *testing.T) {
	items := []core.LineItem{
		monthly("rent", core.Expense, "1000", "Housing"),
		monthly("food", core.Expense, "400", "Food"),
	}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	actuals := []core.Actual{
		actual("a1", "rent", core.NewDate(2026, 1, 1), "1000", "Housing"),
		actual("a2", "food", core.NewDate(2026, 1, 8), "250", "Food"),
		actual("a3", "food", core.NewDate(2026, 1, 22), "200", "Food"),
	}

	res := Compare(proj, actuals, items)

	rent := res.Line("rent")
	if rent.Direction != Neutral || !rent.VariancePercent.IsZero() {
		t.Errorf("rent = %+v", rent.Figures)
	}
	food := res.Line("food")
	if !food.Variance.Equal(dec("50")) || food.Direction != Over {
		t.Errorf("food variance = %s (%s)", food.Variance, food.Direction)
	}
	if !food.VariancePercent.Equal(dec("12.5")) {
		t.Errorf("food percent = %s", food.VariancePercent)
	}
	if !res.TotalVariance.Equal(dec("50")) || res.Direction != Over {
		t.Errorf("total variance = %s (%s)", res.TotalVariance, res.Direction)
	}
}

func TestCompareUnbudgetedActuals(t *testing.T) {
	items := []core.LineItem{monthly("rent", core.Expense, "1000", "Housing")}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 2, 28))
	actuals := []core.Actual{
		actual("coffee", "", core.NewDate(2026, 2, 3), "4.50", "Treats"),
		// References a deleted line item.
		actual("old", "gone", core.NewDate(2026, 2, 4), "20", "Misc"),
	}

	res := Compare(proj, actuals, items)

	if len(res.Unbudgeted) != 2 {
		t.Fatalf("unbudgeted = %d, want 2", len(res.Unbudgeted))
	}
	if res.Unbudgeted[0].ID != "coffee" {
		t.Errorf("unbudgeted[0] = %s", res.Unbudgeted[0].ID)
	}
	treats := res.Tag("Treats")
	if treats == nil {
		t.Fatal("missing Treats tag")
	}
	if treats.VariancePercent != nil {
		t.Error("zero budget must give a nil percentage")
	}
	if treats.Direction != Over {
		t.Errorf("Treats direction = %s", treats.Direction)
	}
	if res.Months[0].HasActuals || !res.Months[1].HasActuals {
		t.Errorf("hasActuals = %v, %v", res.Months[0].HasActuals, res.Months[1].HasActuals)
	}
	if !res.TotalActual.Equal(dec("24.5")) {
		t.Errorf("TotalActual = %s", res.TotalActual)
	}
}

func TestCompareTagUsesLinkedItemTag(t *testing.T) {
	items := []core.LineItem{monthly("food", core.Expense, "400", "Food")}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	actuals := []core.Actual{actual("a1", "food", core.NewDate(2026, 1, 9), "380", "Shopping")}

	res := Compare(proj, actuals, items)

	if res.Tag("Shopping") != nil {
		t.Error("matched actual should roll up under its line item's tag")
	}
	if food := res.Tag("Food"); !food.Actual.Equal(dec("380")) || food.Direction != Under {
		t.Errorf("Food = %+v", food.Figures)
	}
}

func TestDirectionRoundingTolerance(t *testing.T) {
	tests := []struct {
		variance string
		want     Direction
	}{
		{"0", Neutral},
		{"0.001", Neutral},
		{"-0.004", Neutral},
		{"0.005", Over},
		{"0.01", Over},
		{"-0.01", Under},
	}
	for _, tt := range tests {
		if got := DirectionOf(dec(tt.variance)); got != tt.want {
			t.Errorf("DirectionOf(%s) = %s, want %s", tt.variance, got, tt.want)
		}
	}
}

func TestNewFiguresZeroBudget(t *testing.T) {
	f := NewFigures(decimal.Zero, dec("10"))
	if f.VariancePercent != nil {
		t.Fatalf("percent = %s, want nil", f.VariancePercent)
	}
	if !f.Variance.Equal(dec("10")) {
		t.Fatalf("variance = %s", f.Variance)
	}
}
