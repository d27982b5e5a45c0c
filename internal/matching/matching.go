// Package matching reconciles imported transaction rows against line items.
//
// Reconcile runs three passes in a fixed order, each stricter about text and
// each claiming rows so later passes never see them:
//
//  1. high:   both sides tagged, primary tags equal (case-insensitive) and
//     amounts equal
//  2. medium: amounts equal and tag/description similarity within threshold
//  3. low:    amounts equal and the row's month inside the item's active range
//
// Rows left over are unmatched. A line item is never matched twice on the
// same date.
package matching

import (
	"strings"

	"cashplan/internal/core"

	"github.com/shopspring/decimal"
)

const (
	// DefaultFuzzyThreshold is the maximum text score accepted by the
	// medium pass. It is empirical and safe to tune.
	DefaultFuzzyThreshold = 0.4
)

// Options tune the matcher.
type Options struct {
	FuzzyThreshold  float64
	AmountTolerance decimal.Decimal
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		FuzzyThreshold:  DefaultFuzzyThreshold,
		AmountTolerance: core.Cent,
	}
}

// MatchResult pairs an imported row with the line item it was matched to.
type MatchResult struct {
	Row        core.ImportedRow     `json:"row"`
	LineItem   *core.LineItem       `json:"lineItem,omitempty"`
	Confidence core.MatchConfidence `json:"confidence"`
	Approved   bool                 `json:"approved"`
}

// Matcher runs the reconciliation passes with a given set of options.
type Matcher struct {
	opts Options
}

// NewMatcher creates a matcher. Zero-valued options fall back to defaults.
func NewMatcher(opts Options) *Matcher {
	def := DefaultOptions()
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = def.FuzzyThreshold
	}
	if !opts.AmountTolerance.IsPositive() {
		opts.AmountTolerance = def.AmountTolerance
	}
	return &Matcher{opts: opts}
}

// Reconcile matches rows against items with the default options.
func Reconcile(rows []core.ImportedRow, items []core.LineItem) []MatchResult {
	return NewMatcher(DefaultOptions()).Reconcile(rows, items)
}

// pass decides whether a row may match an item at one confidence level.
type pass struct {
	confidence core.MatchConfidence
	accept     func(row core.ImportedRow, item core.LineItem) bool
}

// claimKey identifies a (line item, date) pair already used by a match.
type claimKey struct {
	lineItemID string
	date       string
}

// Reconcile returns exactly one result per row, in row order.
func (m *Matcher) Reconcile(rows []core.ImportedRow, items []core.LineItem) []MatchResult {
	results := make([]MatchResult, len(rows))
	matched := make([]bool, len(rows))
	claimed := make(map[claimKey]bool)

	for _, p := range m.passes() {
		for i, row := range rows {
			if matched[i] {
				continue
			}
			var candidates []int
			for j, li := range items {
				if claimed[claimKey{li.ID, row.Date.String()}] {
					continue
				}
				if p.accept(row, li) {
					candidates = append(candidates, j)
				}
			}
			j, ok := pickCandidate(row, items, candidates)
			if !ok {
				continue
			}

			li := items[j]
			results[i] = MatchResult{
				Row:        row,
				LineItem:   &li,
				Confidence: p.confidence,
				Approved:   p.confidence.AutoApproved(),
			}
			matched[i] = true
			claimed[claimKey{li.ID, row.Date.String()}] = true
		}
	}

	for i, row := range rows {
		if !matched[i] {
			results[i] = MatchResult{Row: row, Confidence: core.ConfidenceUnmatched}
		}
	}
	return results
}

func (m *Matcher) passes() []pass {
	return []pass{
		{
			confidence: core.ConfidenceHigh,
			accept: func(row core.ImportedRow, li core.LineItem) bool {
				if !hasTag(row.Tags) || !hasTag(li.Tags) {
					return false
				}
				return m.amountsMatch(row, li) &&
					strings.EqualFold(row.PrimaryTag(), li.PrimaryTag())
			},
		},
		{
			confidence: core.ConfidenceMedium,
			accept: func(row core.ImportedRow, li core.LineItem) bool {
				if !m.amountsMatch(row, li) {
					return false
				}
				score := TextScore(row.PrimaryTag(), li.PrimaryTag(), row.Description, li.Description)
				return score <= m.opts.FuzzyThreshold
			},
		},
		{
			confidence: core.ConfidenceLow,
			accept: func(row core.ImportedRow, li core.LineItem) bool {
				return m.amountsMatch(row, li) && activeInMonth(li, row.Date)
			},
		},
	}
}

// hasTag reports whether tags holds a non-blank entry. Untagged sides share
// the Uncategorised label, which says nothing about the transaction.
func hasTag(tags []string) bool {
	for _, t := range tags {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

func (m *Matcher) amountsMatch(row core.ImportedRow, li core.LineItem) bool {
	return core.AmountsMatch(row.Amount.Abs(), li.Amount, m.opts.AmountTolerance)
}

// pickCandidate prefers the first candidate whose type agrees with the row's
// original sign, and otherwise takes the first candidate of any type.
func pickCandidate(row core.ImportedRow, items []core.LineItem, candidates []int) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	if row.OriginalSign != nil {
		want := row.OriginalSign.ImpliedType()
		for _, j := range candidates {
			if items[j].Type == want {
				return j, true
			}
		}
	}
	return candidates[0], true
}

// activeInMonth reports whether the month containing d lies within the item's
// active month range.
func activeInMonth(li core.LineItem, d core.Date) bool {
	month := d.MonthKey()
	if month < li.StartDate.MonthKey() {
		return false
	}
	return li.EndDate == nil || month <= li.EndDate.MonthKey()
}

// IsDuplicate reports whether row was already imported: same calendar date,
// amount within one cent and the same description ignoring case.
func IsDuplicate(row core.ImportedRow, existing []core.Actual) bool {
	desc := strings.TrimSpace(row.Description)
	for _, a := range existing {
		if !a.Date.SameDay(row.Date) {
			continue
		}
		if !core.WithinCent(a.Amount.Abs(), row.Amount.Abs()) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(a.Description), desc) {
			return true
		}
	}
	return false
}

// Summary counts results per confidence.
func Summary(results []MatchResult) map[core.MatchConfidence]int {
	counts := make(map[core.MatchConfidence]int)
	for _, r := range results {
		counts[r.Confidence]++
	}
	return counts
}
