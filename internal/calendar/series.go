package calendar

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MonthSeries is an ordered month-key → amount map. Iteration follows the
// slot sequence it was created from, never insertion order.
type MonthSeries struct {
	keys   []string
	values map[string]decimal.Decimal
}

// NewMonthSeries creates a zero-valued series over slots.
func NewMonthSeries(slots []MonthSlot) *MonthSeries {
	s := &MonthSeries{
		keys:   make([]string, 0, len(slots)),
		values: make(map[string]decimal.Decimal, len(slots)),
	}
	for _, slot := range slots {
		if _, ok := s.values[slot.Month]; ok {
			continue
		}
		s.keys = append(s.keys, slot.Month)
		s.values[slot.Month] = decimal.Zero
	}
	return s
}

// Has reports whether month is one of the series' keys.
func (s *MonthSeries) Has(month string) bool {
	_, ok := s.values[month]
	return ok
}

// Get returns the amount for month, or zero for unknown months.
func (s *MonthSeries) Get(month string) decimal.Decimal {
	return s.values[month]
}

// Add accumulates amount into month. Unknown months are ignored.
func (s *MonthSeries) Add(month string, amount decimal.Decimal) {
	v, ok := s.values[month]
	if !ok {
		return
	}
	s.values[month] = v.Add(amount)
}

// Set overwrites the amount for month. Unknown months are ignored.
func (s *MonthSeries) Set(month string, amount decimal.Decimal) {
	if _, ok := s.values[month]; !ok {
		return
	}
	s.values[month] = amount
}

// Keys returns the month keys in slot order.
func (s *MonthSeries) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of months.
func (s *MonthSeries) Len() int {
	return len(s.keys)
}

// Each calls fn for every month in slot order.
func (s *MonthSeries) Each(fn func(month string, amount decimal.Decimal)) {
	for _, k := range s.keys {
		fn(k, s.values[k])
	}
}

// Total sums every month.
func (s *MonthSeries) Total() decimal.Decimal {
	total := decimal.Zero
	for _, k := range s.keys {
		total = total.Add(s.values[k])
	}
	return total
}

// Equal reports whether two series carry the same months in the same order
// with numerically equal amounts.
func (s *MonthSeries) Equal(other *MonthSeries) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.keys) != len(other.keys) {
		return false
	}
	for i, k := range s.keys {
		if other.keys[i] != k || !s.values[k].Equal(other.values[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the series as a JSON object in slot order.
func (s *MonthSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
