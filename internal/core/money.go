// Package core provides money parsing and handling utilities.
//
// This file contains the tolerant amount parser used by the importer and the
// comparison helpers shared by the matching and variance engines.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CurrencySymbols are stripped from amount strings before parsing.
const CurrencySymbols = "R$€£¥₹"

var (
	// Cent is the tolerance used for amount equality.
	Cent = decimal.New(1, -2)
	// HalfCent is the rounding tolerance below which a variance is neutral.
	HalfCent = decimal.New(5, -3)
)

// ParseAmount converts an amount string from a bank export to a decimal.
//
// It strips currency symbols, whitespace and thousands separators, and
// reads parenthesized values as negative.
//
// Examples:
//
//	ParseAmount("R 1,234.50") -> 1234.50, nil
//	ParseAmount("(45.00)")    -> -45.00, nil
//	ParseAmount("-$12")       -> -12, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ',' || strings.ContainsRune(CurrencySymbols, r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	if cleaned == "" || cleaned == "-" || cleaned == "+" {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range cleaned {
		if !unicode.IsDigit(r) && r != '.' && r != '-' && r != '+' {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative {
		d = d.Abs().Neg()
	}
	return d, nil
}

// AmountsMatch reports whether a and b differ by less than tolerance.
func AmountsMatch(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}

// WithinCent reports whether a and b are equal to within one cent.
func WithinCent(a, b decimal.Decimal) bool {
	return AmountsMatch(a, b, Cent)
}
