package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1,234.56", "1234.56", true},
		{" R 1 234.50 ", "1234.5", true},
		{"$12.00", "12", true},
		{"€7", "7", true},
		{"£-3.10", "-3.1", true},
		{"¥1000", "1000", true},
		{"₹ 99.99", "99.99", true},
		{"(45.00)", "-45", true},
		{"($1,000)", "-1000", true},
		{"-12.5", "-12.5", true},
		{"0", "0", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"()", "", false},
		{"1e5", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestWithinCent(t *testing.T) {
	a := decimal.RequireFromString("10.00")
	if !WithinCent(a, decimal.RequireFromString("10.009")) {
		t.Fatal("expected sub-cent difference to match")
	}
	if WithinCent(a, decimal.RequireFromString("10.02")) {
		t.Fatal("expected two-cent difference not to match")
	}
}
