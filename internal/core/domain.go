package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Uncategorised is the grouping label used when an item carries no tags.
const Uncategorised = "Uncategorised"

const (
	OnceOff   Frequency = "once-off"
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Annually  Frequency = "annually"
)

const (
	Income  ItemType = "income"
	Expense ItemType = "expense"
)

const (
	ConfidenceHigh      MatchConfidence = "high"
	ConfidenceMedium    MatchConfidence = "medium"
	ConfidenceLow       MatchConfidence = "low"
	ConfidenceManual    MatchConfidence = "manual"
	ConfidenceUnmatched MatchConfidence = "unmatched"
)

const (
	SignPositive Sign = "positive"
	SignNegative Sign = "negative"
)

const (
	PeriodOpen  PeriodType = "open"
	PeriodFixed PeriodType = "fixed"
)

const (
	ModeCashflow WorkspaceMode = "cashflow"
	ModeEnvelope WorkspaceMode = "envelope"
)

type (
	Frequency       string
	ItemType        string
	MatchConfidence string
	Sign            string
	PeriodType      string
	WorkspaceMode   string

	// LineItem is a planned recurring or once-off income/expense entry.
	LineItem struct {
		ID          string          `json:"id" yaml:"id"`
		Description string          `json:"description" yaml:"description"`
		Tags        []string        `json:"tags" yaml:"tags"`
		Amount      decimal.Decimal `json:"amount" yaml:"amount"`
		Frequency   Frequency       `json:"frequency" yaml:"frequency"`
		Type        ItemType        `json:"type" yaml:"type"`
		StartDate   Date            `json:"startDate" yaml:"startDate"`
		EndDate     *Date           `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	}

	// ImportedRow is a parsed transaction that has not been persisted yet.
	// Amount is always non-negative; OriginalSign records the sign the
	// source used, as a hint for type-aware matching.
	ImportedRow struct {
		Date         Date              `json:"date"`
		Amount       decimal.Decimal   `json:"amount"`
		Tags         []string          `json:"tags"`
		Description  string            `json:"description"`
		OriginalRow  map[string]string `json:"originalRow"`
		OriginalSign *Sign             `json:"originalSign,omitempty"`
	}

	// Actual is a confirmed transaction, optionally linked to a LineItem.
	Actual struct {
		ID              string            `json:"id" yaml:"id"`
		WorkspaceID     string            `json:"workspaceId,omitempty" yaml:"workspaceId,omitempty"`
		LineItemID      *string           `json:"lineItemId" yaml:"lineItemId"`
		Date            Date              `json:"date" yaml:"date"`
		Amount          decimal.Decimal   `json:"amount" yaml:"amount"`
		Tags            []string          `json:"tags" yaml:"tags"`
		Description     string            `json:"description" yaml:"description"`
		OriginalRow     map[string]string `json:"originalRow,omitempty" yaml:"originalRow,omitempty"`
		MatchConfidence MatchConfidence   `json:"matchConfidence" yaml:"matchConfidence"`
		Approved        bool              `json:"approved" yaml:"approved"`
	}

	// Workspace groups line items and actuals under one planning horizon.
	Workspace struct {
		ID              string          `json:"id" yaml:"id"`
		Name            string          `json:"name" yaml:"name"`
		Currency        string          `json:"currency" yaml:"currency"`
		PeriodType      PeriodType      `json:"periodType" yaml:"periodType"`
		StartDate       *Date           `json:"startDate,omitempty" yaml:"startDate,omitempty"`
		EndDate         *Date           `json:"endDate,omitempty" yaml:"endDate,omitempty"`
		Mode            WorkspaceMode   `json:"mode" yaml:"mode"`
		StartingBalance decimal.Decimal `json:"startingBalance" yaml:"startingBalance"`
		TotalBudget     decimal.Decimal `json:"totalBudget" yaml:"totalBudget"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrInvalidType        = errors.New("invalid type")
	ErrEndBeforeStart     = errors.New("end date must not be before start date")
	ErrEmptyID            = errors.New("empty id")
	ErrInvalidPeriodType  = errors.New("invalid period type")
	ErrInvalidMode        = errors.New("invalid workspace mode")
	ErrMissingPeriodRange = errors.New("fixed period requires start and end dates")
)

// IsValid reports whether f is a supported frequency.
func (f Frequency) IsValid() bool {
	switch f {
	case OnceOff, Daily, Weekly, Monthly, Quarterly, Annually:
		return true
	}
	return false
}

// IsValid reports whether t is income or expense.
func (t ItemType) IsValid() bool {
	return t == Income || t == Expense
}

// AutoApproved reports whether a match at this confidence needs no user
// confirmation.
func (c MatchConfidence) AutoApproved() bool {
	return c == ConfidenceHigh
}

// ImpliedType maps a source sign to the line type it suggests: banks encode
// inflow as negative in the exports this tool targets.
func (s Sign) ImpliedType() ItemType {
	if s == SignNegative {
		return Income
	}
	return Expense
}

// PrimaryTag returns the first tag, or Uncategorised.
func PrimaryTag(tags []string) string {
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return Uncategorised
}

// PrimaryTag returns the item's grouping label.
func (li LineItem) PrimaryTag() string {
	return PrimaryTag(li.Tags)
}

// PrimaryTag returns the row's grouping label.
func (r ImportedRow) PrimaryTag() string {
	return PrimaryTag(r.Tags)
}

// PrimaryTag returns the actual's grouping label.
func (a Actual) PrimaryTag() string {
	return PrimaryTag(a.Tags)
}

// IsMatched reports whether the actual references a line item.
func (a Actual) IsMatched() bool {
	return a.LineItemID != nil && *a.LineItemID != ""
}

func (li LineItem) Validate() error {
	if strings.TrimSpace(li.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(li.Description) == "" {
		return ErrEmptyDescription
	}
	if !li.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !li.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, li.Frequency)
	}
	if !li.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, li.Type)
	}
	if err := li.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if li.EndDate != nil {
		if err := li.EndDate.Validate(); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		if li.EndDate.Before(li.StartDate.Time) {
			return ErrEndBeforeStart
		}
	}
	return nil
}

func (a Actual) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if err := a.Date.Validate(); err != nil {
		return err
	}
	if a.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (w Workspace) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return ErrEmptyID
	}
	switch w.PeriodType {
	case PeriodOpen:
	case PeriodFixed:
		if w.StartDate == nil || w.EndDate == nil {
			return ErrMissingPeriodRange
		}
		if w.EndDate.Before(w.StartDate.Time) {
			return ErrEndBeforeStart
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPeriodType, w.PeriodType)
	}
	switch w.Mode {
	case ModeCashflow, ModeEnvelope:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, w.Mode)
	}
	return nil
}

// LineItemIndex maps line item IDs to their items.
func LineItemIndex(items []LineItem) map[string]LineItem {
	idx := make(map[string]LineItem, len(items))
	for _, li := range items {
		idx[li.ID] = li
	}
	return idx
}

// ActualType resolves an actual's type through the line item it references.
// Unmatched actuals, and actuals whose line item no longer exists, count as
// expenses.
func ActualType(a Actual, items map[string]LineItem) ItemType {
	if !a.IsMatched() {
		return Expense
	}
	li, ok := items[*a.LineItemID]
	if !ok {
		return Expense
	}
	return li.Type
}
