package importer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cashplan/internal/core"
)

// DetectThreshold is the share of non-empty samples a format must parse to
// be accepted.
const DetectThreshold = 0.8

// DateFormat is a recognized date notation.
type DateFormat struct {
	Label   string
	Pattern *regexp.Regexp
	Layout  string
}

// DateFormats are tried in order. Day-first wins ties with month-first for
// ambiguous samples such as 03/04/2026.
var DateFormats = []DateFormat{
	{Label: "YYYY-MM-DD", Pattern: regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`), Layout: "2006-1-2"},
	{Label: "DD/MM/YYYY", Pattern: regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), Layout: "2/1/2006"},
	{Label: "MM/DD/YYYY", Pattern: regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), Layout: "1/2/2006"},
	{Label: "DD-MM-YYYY", Pattern: regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), Layout: "2-1-2006"},
	{Label: "YYYY/MM/DD", Pattern: regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`), Layout: "2006/1/2"},
}

// Parse reads s in this format.
func (f DateFormat) Parse(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if !f.Pattern.MatchString(s) {
		return core.Date{}, fmt.Errorf("date %q does not match %s", s, f.Label)
	}
	t, err := time.ParseInLocation(f.Layout, s, time.UTC)
	if err != nil {
		return core.Date{}, fmt.Errorf("date %q is not a valid %s date", s, f.Label)
	}
	return core.Date{Time: t}, nil
}

// DetectDateFormat returns the first format that parses at least
// DetectThreshold of the non-empty samples. A sample only counts when it
// matches the pattern and names a real calendar date, so 13/02/2026 rules
// out MM/DD/YYYY.
func DetectDateFormat(samples []string) (DateFormat, bool) {
	var values []string
	for _, s := range samples {
		if s = strings.TrimSpace(s); s != "" {
			values = append(values, s)
		}
	}
	if len(values) == 0 {
		return DateFormat{}, false
	}

	for _, f := range DateFormats {
		hits := 0
		for _, v := range values {
			if _, err := f.Parse(v); err == nil {
				hits++
			}
		}
		if float64(hits)/float64(len(values)) >= DetectThreshold {
			return f, true
		}
	}
	return DateFormat{}, false
}

// ParseAnyDate tries every format in order and returns the first success.
func ParseAnyDate(s string) (core.Date, error) {
	for _, f := range DateFormats {
		if d, err := f.Parse(s); err == nil {
			return d, nil
		}
	}
	return core.Date{}, fmt.Errorf("unrecognized date %q", strings.TrimSpace(s))
}
