package projection

import (
	"testing"
	"time"

	"cashplan/internal/core"

	"github.com/shopspring/decimal"
)

func d(y, m, day int) core.Date { return core.NewDate(y, m, day) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(id string, freq core.Frequency, typ core.ItemType, amount string, start core.Date, tags ...string) core.LineItem {
	return core.LineItem{
		ID:          id,
		Description: id,
		Tags:        tags,
		Amount:      dec(amount),
		Frequency:   freq,
		Type:        typ,
		StartDate:   start,
	}
}

func assertAmount(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("%s = %s, want %s", label, got, want)
	}
}

func TestExpandDailyAcrossMonthBoundary(t *testing.T) {
	li := item("coffee", core.Daily, core.Expense, "10", d(2026, 1, 25), "Food")
	res := Expand([]core.LineItem{li}, d(2026, 1, 1), d(2026, 2, 28))

	line := res.Line("coffee")
	if line == nil {
		t.Fatal("missing line")
	}
	assertAmount(t, "jan", line.Months.Get("2026-01"), "70")
	assertAmount(t, "feb", line.Months.Get("2026-02"), "280")
	assertAmount(t, "total", line.Total, "350")
}

func TestExpandFrequencies(t *testing.T) {
	tests := []struct {
		name       string
		item       core.LineItem
		start, end core.Date
		wantTotal  string
		wantMonths map[string]string
	}{
		{
			name:      "monthly over three months",
			item:      item("rent", core.Monthly, core.Expense, "500", d(2026, 1, 1)),
			start:     d(2026, 1, 1),
			end:       d(2026, 3, 31),
			wantTotal: "1500",
		},
		{
			name:       "quarterly starting january hits january and april",
			item:       item("water", core.Quarterly, core.Expense, "300", d(2026, 1, 10)),
			start:      d(2026, 1, 1),
			end:        d(2026, 6, 30),
			wantTotal:  "600",
			wantMonths: map[string]string{"2026-01": "300", "2026-02": "0", "2026-04": "300", "2026-06": "0"},
		},
		{
			name:       "quarterly crossing a year boundary",
			item:       item("levy", core.Quarterly, core.Expense, "100", d(2025, 11, 1)),
			start:      d(2026, 1, 1),
			end:        d(2026, 6, 30),
			wantTotal:  "200",
			wantMonths: map[string]string{"2026-02": "100", "2026-05": "100"},
		},
		{
			name:       "annual starting march",
			item:       item("insurance", core.Annually, core.Expense, "1200", d(2026, 3, 15)),
			start:      d(2026, 1, 1),
			end:        d(2026, 12, 31),
			wantTotal:  "1200",
			wantMonths: map[string]string{"2026-03": "1200"},
		},
		{
			name:       "once-off only in its month",
			item:       item("laptop", core.OnceOff, core.Expense, "900", d(2026, 2, 14)),
			start:      d(2026, 1, 1),
			end:        d(2026, 4, 30),
			wantTotal:  "900",
			wantMonths: map[string]string{"2026-02": "900"},
		},
		{
			name:       "weekly is fractional",
			item:       item("fuel", core.Weekly, core.Expense, "70", d(2026, 2, 1)),
			start:      d(2026, 2, 1),
			end:        d(2026, 3, 31),
			wantTotal:  "590",
			wantMonths: map[string]string{"2026-02": "280", "2026-03": "310"},
		},
		{
			name:      "starts before the horizon",
			item:      item("gym", core.Monthly, core.Expense, "40", d(2025, 6, 1)),
			start:     d(2026, 1, 1),
			end:       d(2026, 2, 28),
			wantTotal: "80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Expand([]core.LineItem{tt.item}, tt.start, tt.end)
			line := res.Lines[0]
			assertAmount(t, "total", line.Total, tt.wantTotal)
			for month, want := range tt.wantMonths {
				assertAmount(t, month, line.Months.Get(month), want)
			}
		})
	}
}

func TestExpandRespectsEndDate(t *testing.T) {
	li := item("daily", core.Daily, core.Expense, "1", d(2026, 1, 30))
	end := d(2026, 2, 2)
	li.EndDate = &end

	res := Expand([]core.LineItem{li}, d(2026, 1, 1), d(2026, 3, 31))
	assertAmount(t, "jan", res.Lines[0].Months.Get("2026-01"), "2")
	assertAmount(t, "feb", res.Lines[0].Months.Get("2026-02"), "2")
	assertAmount(t, "mar", res.Lines[0].Months.Get("2026-03"), "0")
}

func TestExpandSplitsIncomeAndExpense(t *testing.T) {
	items := []core.LineItem{
		item("salary", core.Monthly, core.Income, "3000", d(2026, 1, 1), "Salary"),
		item("rent", core.Monthly, core.Expense, "1000", d(2026, 1, 1), "Housing"),
		item("food", core.Monthly, core.Expense, "400", d(2026, 1, 1), "Food"),
		item("snacks", core.Monthly, core.Expense, "50", d(2026, 1, 1), "Food"),
		item("misc", core.Monthly, core.Expense, "25", d(2026, 1, 1)),
	}
	res := Expand(items, d(2026, 1, 1), d(2026, 2, 28))

	assertAmount(t, "monthly total", res.MonthlyTotals.Get("2026-01"), "1475")
	assertAmount(t, "monthly income", res.MonthlyIncome.Get("2026-01"), "3000")
	assertAmount(t, "monthly net", res.MonthlyNet.Get("2026-02"), "1525")
	assertAmount(t, "grand total", res.GrandTotal, "2950")
	assertAmount(t, "total income", res.TotalIncome, "6000")
	assertAmount(t, "net total", res.NetTotal, "3050")

	if res.Category("Salary") != nil {
		t.Error("income must not appear in the category rollup")
	}
	food := res.Category("Food")
	if food == nil {
		t.Fatal("missing Food rollup")
	}
	assertAmount(t, "food total", food.Total, "900")
	if res.Category(core.Uncategorised) == nil {
		t.Error("untagged expense should roll up under Uncategorised")
	}

	wantOrder := []string{"Housing", "Food", core.Uncategorised}
	for i, c := range res.CategoryRollup {
		if c.Tag != wantOrder[i] {
			t.Errorf("rollup[%d] = %s, want %s", i, c.Tag, wantOrder[i])
		}
	}
}

func TestCategoryRollupSumsToMonthlyTotals(t *testing.T) {
	items := []core.LineItem{
		item("a", core.Weekly, core.Expense, "33.33", d(2026, 1, 3), "A"),
		item("b", core.Daily, core.Expense, "4.5", d(2026, 2, 11), "B"),
		item("c", core.Quarterly, core.Expense, "120", d(2026, 1, 1), "A"),
		item("i", core.Weekly, core.Income, "500", d(2026, 1, 1), "Pay"),
	}
	res := Expand(items, d(2026, 1, 1), d(2026, 12, 31))

	for _, slot := range res.Slots {
		sum := decimal.Zero
		for _, c := range res.CategoryRollup {
			sum = sum.Add(c.Months.Get(slot.Month))
		}
		if !sum.Equal(res.MonthlyTotals.Get(slot.Month)) {
			t.Errorf("%s: rollup %s != monthly total %s", slot.Month, sum, res.MonthlyTotals.Get(slot.Month))
		}
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	items := []core.LineItem{
		item("a", core.Weekly, core.Expense, "12.34", d(2026, 1, 3), "A"),
		item("b", core.Annually, core.Income, "99", d(2025, 7, 1), "B"),
	}
	first := Expand(items, d(2026, 1, 1), d(2026, 12, 31))
	second := Expand(items, d(2026, 1, 1), d(2026, 12, 31))

	if !first.MonthlyTotals.Equal(second.MonthlyTotals) || !first.MonthlyIncome.Equal(second.MonthlyIncome) {
		t.Fatal("monthly series differ between identical calls")
	}
	for i := range first.Lines {
		if !first.Lines[i].Months.Equal(second.Lines[i].Months) {
			t.Fatalf("line %d differs", i)
		}
	}
}

func TestResolveHorizon(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

	open := ResolveHorizon(core.PeriodOpen, nil, nil, now)
	if open.Start.String() != "2026-10-01" || open.End.String() != "2027-09-30" {
		t.Fatalf("open horizon = %s..%s", open.Start, open.End)
	}
	if n := len(open.Slots()); n != 12 {
		t.Fatalf("open horizon has %d slots", n)
	}

	s, e := d(2026, 1, 1), d(2026, 6, 30)
	fixed := ResolveHorizon(core.PeriodFixed, &s, &e, now)
	if !fixed.Start.SameDay(s) || !fixed.End.SameDay(e) {
		t.Fatalf("fixed horizon = %s..%s", fixed.Start, fixed.End)
	}
}

func TestMemoizer(t *testing.T) {
	m := NewMemoizer(4, time.Minute)
	items := []core.LineItem{item("rent", core.Monthly, core.Expense, "500", d(2026, 1, 1))}

	first, hit := m.Expand(items, d(2026, 1, 1), d(2026, 3, 31))
	if hit {
		t.Fatal("first call should miss")
	}
	second, hit := m.Expand(items, d(2026, 1, 1), d(2026, 3, 31))
	if !hit {
		t.Fatal("second call should hit")
	}
	if !first.GrandTotal.Equal(second.GrandTotal) {
		t.Fatal("cached result differs")
	}

	items[0].Amount = dec("600")
	if _, hit := m.Expand(items, d(2026, 1, 1), d(2026, 3, 31)); hit {
		t.Fatal("changed input should miss")
	}
	if m.Size() != 2 {
		t.Fatalf("size = %d", m.Size())
	}
}
