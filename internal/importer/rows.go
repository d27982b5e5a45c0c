package importer

import (
	"fmt"
	"strings"

	"cashplan/internal/core"
)

// TagSeparator splits a category cell into several tags.
const TagSeparator = ";"

// RowError reports why one record could not become an ImportedRow. Row is
// the 1-based line in the source, counting the header as line 1.
type RowError struct {
	Row     int    `json:"row"`
	Field   Field  `json:"field"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// Options tune BuildRows.
type Options struct {
	// DateFormat forces a format. When nil it is detected from the date
	// column, and rows are parsed with any known format if detection fails.
	DateFormat *DateFormat
}

// Result is the outcome of BuildRows.
type Result struct {
	Rows       []core.ImportedRow
	Errors     []RowError
	Columns    Columns
	DateFormat string
}

// BuildRows maps a table onto ImportedRows. Missing date or amount columns
// fail the whole file; any other problem is recorded against its row and the
// row is skipped.
//
// Amounts are stored as absolute values. The source sign is kept in
// OriginalSign as a hint for type-aware matching.
func BuildRows(t Table, opts Options) (Result, error) {
	cols, err := DetectColumns(t.Headers)
	if err != nil {
		return Result{}, fmt.Errorf("detect columns: %w", err)
	}

	res := Result{Columns: cols, Rows: []core.ImportedRow{}, Errors: []RowError{}}

	parse := ParseAnyDate
	switch {
	case opts.DateFormat != nil:
		parse = opts.DateFormat.Parse
		res.DateFormat = opts.DateFormat.Label
	default:
		samples := make([]string, 0, len(t.Records))
		for _, rec := range t.Records {
			samples = append(samples, cell(rec, cols.Date))
		}
		if f, ok := DetectDateFormat(samples); ok {
			parse = f.Parse
			res.DateFormat = f.Label
		}
	}

	for i, rec := range t.Records {
		if isEmptyRow(rec) {
			continue
		}
		line := t.Line(i)

		date, err := parse(cell(rec, cols.Date))
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Field: FieldDate, Message: err.Error()})
			continue
		}

		raw := cell(rec, cols.Amount)
		amount, err := core.ParseAmount(raw)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Field: FieldAmount, Message: fmt.Sprintf("invalid amount %q", raw)})
			continue
		}

		sign := core.SignPositive
		if amount.IsNegative() {
			sign = core.SignNegative
		}

		res.Rows = append(res.Rows, core.ImportedRow{
			Date:         date,
			Amount:       amount.Abs(),
			Tags:         SplitTags(cell(rec, cols.Category)),
			Description:  strings.TrimSpace(cell(rec, cols.Description)),
			OriginalRow:  originalRow(t.Headers, rec),
			OriginalSign: &sign,
		})
	}
	return res, nil
}

// SplitTags splits a category cell on TagSeparator, trimming blanks and
// dropping repeats while keeping first-seen order.
func SplitTags(s string) []string {
	tags := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(s, TagSeparator) {
		part = strings.TrimSpace(part)
		key := strings.ToLower(part)
		if part == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, part)
	}
	return tags
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func originalRow(headers, rec []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, h := range headers {
		m[strings.TrimSpace(h)] = cell(rec, i)
	}
	return m
}
