// Package importer turns bank export files into ImportedRows.
//
// Reading is split in two steps. A tokenizer (CSV, JSON, XLSX or XLS) turns
// the file into a Table of header and raw string cells. BuildRows then maps
// the recognized columns onto rows, collecting per-row failures instead of
// aborting the import.
package importer

import (
	"errors"
	"fmt"
	"strings"
)

type Field string

const (
	FieldDate        Field = "date"
	FieldAmount      Field = "amount"
	FieldCategory    Field = "category"
	FieldDescription Field = "description"
)

var (
	ErrNoHeaders     = errors.New("no header row")
	ErrMissingColumn = errors.New("required column not found")
)

// Synonyms lists the header names recognized for each field, lower-cased.
var Synonyms = map[Field][]string{
	FieldDate:        {"date", "transaction date", "trans date", "posting date"},
	FieldAmount:      {"amount", "debit", "value", "total"},
	FieldCategory:    {"category", "type", "group"},
	FieldDescription: {"description", "desc", "memo", "reference", "narrative", "details"},
}

// fieldOrder fixes detection order so a header can only claim one field.
var fieldOrder = []Field{FieldDate, FieldAmount, FieldCategory, FieldDescription}

// Columns maps each detected field to its header index. Optional fields that
// were not found hold -1.
type Columns struct {
	Date        int
	Amount      int
	Category    int
	Description int
}

func (c Columns) index(f Field) int {
	switch f {
	case FieldDate:
		return c.Date
	case FieldAmount:
		return c.Amount
	case FieldCategory:
		return c.Category
	default:
		return c.Description
	}
}

func (c *Columns) set(f Field, i int) {
	switch f {
	case FieldDate:
		c.Date = i
	case FieldAmount:
		c.Amount = i
	case FieldCategory:
		c.Category = i
	default:
		c.Description = i
	}
}

// DetectColumns matches headers against Synonyms. For each field the first
// header, left to right, that equals one of its synonyms wins. Date and
// amount are required.
func DetectColumns(headers []string) (Columns, error) {
	if len(headers) == 0 {
		return Columns{}, ErrNoHeaders
	}

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	cols := Columns{Date: -1, Amount: -1, Category: -1, Description: -1}
	taken := make(map[int]bool)
	for _, f := range fieldOrder {
		for i, h := range normalized {
			if taken[i] || !isSynonym(f, h) {
				continue
			}
			cols.set(f, i)
			taken[i] = true
			break
		}
	}

	var missing []string
	for _, f := range []Field{FieldDate, FieldAmount} {
		if cols.index(f) < 0 {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func isSynonym(f Field, header string) bool {
	for _, s := range Synonyms[f] {
		if header == s {
			return true
		}
	}
	return false
}
