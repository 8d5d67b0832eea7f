// Package core provides amount and date coercion helpers.
//
// Records coming back from a store or a spreadsheet are display data: a
// corrupt amount or date must not break a whole listing, so these helpers
// degrade to a zero value instead of failing.
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional sign. Empty or malformed input yields zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("-40")    -> -40
//	ParseAmount("12,5")   -> 12.5
//	ParseAmount("abc")    -> 0
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses s with the accepted layouts. Malformed input yields the
// zero time, which aggregation treats as "no date".
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
