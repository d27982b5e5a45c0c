package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cashplan/internal/core"
	"cashplan/internal/store"

	"github.com/shopspring/decimal"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := New()
	if err := s.SaveWorkspace(ctx, core.Workspace{ID: "ws1", Name: "Home", PeriodType: core.PeriodOpen, Mode: core.ModeCashflow}); err != nil {
		t.Fatalf("save workspace: %v", err)
	}
	li := core.LineItem{
		ID: "rent", Description: "Rent", Tags: []string{"Housing"}, Amount: decimal.NewFromInt(1000),
		Frequency: core.Monthly, Type: core.Expense, StartDate: core.NewDate(2026, 1, 1),
	}
	if err := s.SaveLineItem(ctx, "ws1", li); err != nil {
		t.Fatalf("save line item: %v", err)
	}
	return s
}

func actual(id string, lineID *string) core.Actual {
	return core.Actual{
		ID: id, WorkspaceID: "ws1", LineItemID: lineID, Date: core.NewDate(2026, 1, 2),
		Amount: decimal.NewFromInt(1000), Description: id, MatchConfidence: core.ConfidenceHigh, Approved: true,
	}
}

func TestDeleteLineItemClearsReferences(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	rent := "rent"
	if err := s.AddActuals(ctx, []core.Actual{actual("a1", &rent), actual("a2", nil), actual("a3", &rent)}); err != nil {
		t.Fatalf("add actuals: %v", err)
	}

	cleared, err := s.DeleteLineItem(ctx, "rent")
	if err != nil || cleared != 2 {
		t.Fatalf("delete: cleared=%d err=%v", cleared, err)
	}
	if _, err := s.GetLineItem(ctx, "rent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, _ := s.ListActuals(ctx, "ws1")
	if len(list) != 3 {
		t.Fatalf("actuals must survive the delete, got %d", len(list))
	}
	for _, a := range list {
		if a.LineItemID != nil {
			t.Fatalf("actual %s still references a line item", a.ID)
		}
	}
	a1, _ := s.GetActual(ctx, "a1")
	if a1.MatchConfidence != core.ConfidenceUnmatched || !a1.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected a1: %+v", a1)
	}

	if _, err := s.DeleteLineItem(ctx, "rent"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestAddActualsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	if err := s.AddActuals(ctx, []core.Actual{actual("a1", nil)}); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := s.AddActuals(ctx, []core.Actual{actual("a2", nil), actual("a1", nil)})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	list, _ := s.ListActuals(ctx, "ws1")
	if len(list) != 1 {
		t.Fatalf("partial insert: %d actuals", len(list))
	}

	orphan := actual("a9", nil)
	orphan.WorkspaceID = "nope"
	if err := s.AddActuals(ctx, []core.Actual{orphan}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected missing workspace, got %v", err)
	}
}

func TestReturnedActualsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	rent := "rent"
	_ = s.AddActuals(ctx, []core.Actual{actual("a1", &rent)})

	got, _ := s.GetActual(ctx, "a1")
	*got.LineItemID = "changed"

	again, _ := s.GetActual(ctx, "a1")
	if *again.LineItemID != "rent" {
		t.Fatalf("stored actual was mutated: %s", *again.LineItemID)
	}
}

func TestUpdateActual(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	_ = s.AddActuals(ctx, []core.Actual{actual("a1", nil)})

	a, _ := s.GetActual(ctx, "a1")
	rent := "rent"
	a.LineItemID = &rent
	a.MatchConfidence = core.ConfidenceManual
	if err := s.UpdateActual(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetActual(ctx, "a1")
	if got.MatchConfidence != core.ConfidenceManual || *got.LineItemID != "rent" {
		t.Fatalf("update not applied: %+v", got)
	}

	a.ID = "missing"
	if err := s.UpdateActual(ctx, a); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveLineItemRequiresWorkspace(t *testing.T) {
	s := New()
	li := core.LineItem{
		ID: "x", Description: "x", Amount: decimal.NewFromInt(1), Frequency: core.Monthly,
		Type: core.Expense, StartDate: core.NewDate(2026, 1, 1),
	}
	if err := s.SaveLineItem(context.Background(), "nope", li); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	li.Amount = decimal.Zero
	if err := s.SaveLineItem(context.Background(), "nope", li); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()

	// No directory -> empty store
	s, err := NewFromFiles(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("missing dir: %v", err)
	}
	if ws, _ := s.ListWorkspaces(context.Background()); len(ws) != 0 {
		t.Fatalf("expected empty store")
	}

	doc := `version: 1
workspace: {id: ws1, name: Home, currency: ZAR, periodType: open, mode: cashflow}
lineItems:
  - {id: rent, description: Rent, category: Housing, amount: 1000, frequency: monthly, type: expense, startDate: "2026-01-01"}
actuals:
  - {id: a1, lineItemId: rent, date: "2026-01-02", amount: 1000, description: RENT}
`
	if err := os.WriteFile(filepath.Join(dir, "home.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	items, _ := s.ListLineItems(context.Background(), "ws1")
	if len(items) != 1 || items[0].PrimaryTag() != "Housing" {
		t.Fatalf("unexpected items: %+v", items)
	}
	acts, _ := s.ListActuals(context.Background(), "ws1")
	if len(acts) != 1 || acts[0].MatchConfidence != core.ConfidenceManual {
		t.Fatalf("unexpected actuals: %+v", acts)
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"version": 9}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected decode error for unsupported version")
	}
}
