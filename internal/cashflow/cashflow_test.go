package cashflow

import (
	"testing"
	"time"

	"cashplan/internal/core"
	"cashplan/internal/projection"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func monthly(id string, typ core.ItemType, amount string) core.LineItem {
	return core.LineItem{
		ID:          id,
		Description: id,
		Tags:        []string{id},
		Amount:      dec(amount),
		Frequency:   core.Monthly,
		Type:        typ,
		StartDate:   core.NewDate(2026, 1, 1),
	}
}

func spent(id, lineID string, date core.Date, amount string) core.Actual {
	a := core.Actual{ID: id, Date: date, Amount: dec(amount), Description: id}
	if lineID != "" {
		a.LineItemID = &lineID
	}
	return a
}

func TestProjectZeroCrossing(t *testing.T) {
	items := []core.LineItem{monthly("rent", core.Expense, "5000")}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 3, 31))

	res := Project(dec("8000"), proj, nil, items)

	if !res.WillGoNegative {
		t.Fatal("expected the balance to go negative")
	}
	if res.ZeroCrossingMonth != "2026-02" {
		t.Fatalf("crossing month = %s, want 2026-02", res.ZeroCrossingMonth)
	}
	// 3000 left against 5000 of February spend: 0.6 of 28 days, rounded up.
	if res.ZeroCrossingDate == nil || res.ZeroCrossingDate.String() != "2026-02-17" {
		t.Fatalf("crossing date = %v, want 2026-02-17", res.ZeroCrossingDate)
	}
	if !res.LowestBalance.Equal(dec("-7000")) || res.LowestBalanceMonth != "2026-03" {
		t.Fatalf("lowest = %s in %s", res.LowestBalance, res.LowestBalanceMonth)
	}
	if !res.EndingBalance.Equal(dec("-7000")) {
		t.Fatalf("ending = %s", res.EndingBalance)
	}
}

func TestProjectPrefersActualsPerType(t *testing.T) {
	items := []core.LineItem{
		monthly("salary", core.Income, "3000"),
		monthly("rent", core.Expense, "1000"),
	}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 2, 28))
	actuals := []core.Actual{
		// January income is actual; January expense stays projected.
		spent("pay", "salary", core.NewDate(2026, 1, 25), "2800"),
		// February expense is actual, including an unmatched row.
		spent("rent-feb", "rent", core.NewDate(2026, 2, 1), "1000"),
		spent("coffee", "", core.NewDate(2026, 2, 3), "50"),
	}

	res := Project(dec("0"), proj, actuals, items)

	jan, feb := res.Months[0], res.Months[1]
	if !jan.UsingActualIncome || jan.UsingActualExpense {
		t.Fatalf("january flags = %v/%v", jan.UsingActualIncome, jan.UsingActualExpense)
	}
	if !jan.Net.Equal(dec("1800")) {
		t.Errorf("january net = %s, want 1800", jan.Net)
	}
	if feb.UsingActualIncome || !feb.UsingActualExpense {
		t.Fatalf("february flags = %v/%v", feb.UsingActualIncome, feb.UsingActualExpense)
	}
	if !feb.EffectiveExpense.Equal(dec("1050")) {
		t.Errorf("february expense = %s, want 1050", feb.EffectiveExpense)
	}
	if !res.EndingBalance.Equal(dec("3750")) {
		t.Errorf("ending = %s, want 3750", res.EndingBalance)
	}
	if res.WillGoNegative || res.ZeroCrossingDate != nil {
		t.Error("balance never goes negative")
	}
}

func TestProjectLowestBalanceAfterRecovery(t *testing.T) {
	items := []core.LineItem{
		monthly("salary", core.Income, "1000"),
		{
			ID: "car", Description: "car", Amount: dec("2500"), Frequency: core.OnceOff,
			Type: core.Expense, StartDate: core.NewDate(2026, 2, 10),
		},
	}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 4, 30))

	res := Project(dec("0"), proj, nil, items)

	if !res.LowestBalance.Equal(dec("-500")) || res.LowestBalanceMonth != "2026-02" {
		t.Fatalf("lowest = %s in %s", res.LowestBalance, res.LowestBalanceMonth)
	}
	if !res.EndingBalance.Equal(dec("1500")) {
		t.Fatalf("ending = %s", res.EndingBalance)
	}
}

func TestProjectEnvelopeBurnRate(t *testing.T) {
	items := []core.LineItem{monthly("groceries", core.Expense, "600")}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 3, 31))
	actuals := []core.Actual{
		spent("a1", "groceries", core.NewDate(2026, 1, 1), "200"),
		spent("a2", "groceries", core.NewDate(2026, 1, 5), "100"),
	}
	today := time.Date(2026, 1, 10, 18, 30, 0, 0, time.UTC)

	res := ProjectEnvelope(dec("1500"), proj, actuals, today)

	if !res.TotalSpent.Equal(dec("300")) || !res.Remaining.Equal(dec("1200")) {
		t.Fatalf("spent %s remaining %s", res.TotalSpent, res.Remaining)
	}
	if res.DaysCovered != 10 {
		t.Fatalf("days covered = %d, want 10", res.DaysCovered)
	}
	if res.BurnRate == nil || !res.BurnRate.Equal(dec("30")) {
		t.Fatalf("burn rate = %v, want 30", res.BurnRate)
	}
	if res.DepletionDate == nil || res.DepletionDate.String() != "2026-02-19" {
		t.Fatalf("depletion = %v, want 2026-02-19", res.DepletionDate)
	}
	if res.AlreadyDepleted {
		t.Fatal("not depleted yet")
	}

	// January uses actual spend (300); Feb and Mar fall back to 600 each.
	wantRemaining := []string{"1200", "600", "0"}
	for i, m := range res.Months {
		if !m.Remaining.Equal(dec(wantRemaining[i])) {
			t.Errorf("%s remaining = %s, want %s", m.Month, m.Remaining, wantRemaining[i])
		}
	}
	if res.ExhaustedMonth != "2026-03" {
		t.Errorf("exhausted month = %q", res.ExhaustedMonth)
	}
	if !res.LowestBalance.Equal(decimal.Zero) {
		t.Errorf("lowest = %s", res.LowestBalance)
	}
}

func TestProjectEnvelopeWithoutActuals(t *testing.T) {
	items := []core.LineItem{monthly("groceries", core.Expense, "600")}
	proj := projection.Expand(items, core.NewDate(2026, 1, 1), core.NewDate(2026, 2, 28))

	res := ProjectEnvelope(dec("1000"), proj, nil, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))

	if res.BurnRate != nil || res.DepletionDate != nil {
		t.Fatal("no actuals means no burn rate and no depletion date")
	}
	if res.DaysCovered != 0 {
		t.Fatalf("days covered = %d", res.DaysCovered)
	}
	if res.AlreadyDepleted {
		t.Fatal("full budget is not depleted")
	}
	if res.ExhaustedMonth != "2026-02" || !res.LowestBalance.Equal(dec("-200")) {
		t.Fatalf("exhausted %q lowest %s", res.ExhaustedMonth, res.LowestBalance)
	}
}

func TestProjectEnvelopeAlreadyDepleted(t *testing.T) {
	proj := projection.Expand(nil, core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	actuals := []core.Actual{spent("a1", "", core.NewDate(2026, 1, 3), "550")}

	res := ProjectEnvelope(dec("500"), proj, actuals, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))

	if !res.AlreadyDepleted {
		t.Fatal("expected already depleted")
	}
	if res.DepletionDate != nil {
		t.Fatal("depleted envelopes carry no depletion date")
	}
	if res.DaysCovered != 1 || res.BurnRate == nil || !res.BurnRate.Equal(dec("550")) {
		t.Fatalf("days %d rate %v", res.DaysCovered, res.BurnRate)
	}
}
