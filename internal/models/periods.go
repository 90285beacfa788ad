package models

import (
	"fmt"
	"strings"
	"time"
)

// MonthNames are the twelve canonical period names, in calendar order.
var MonthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthNameToNum = func() map[string]int {
	m := make(map[string]int, len(MonthNames))
	for i, name := range MonthNames {
		m[name] = i + 1
	}
	return m
}()

// CanonicalMonth trims and case-normalizes a period name ("  aPRIL " → "April").
// The result is not guaranteed to be a valid month name.
func CanonicalMonth(name string) string {
	s := strings.TrimSpace(name)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// MonthNumber maps a canonical month name to 1-12, or 0 if unrecognized.
func MonthNumber(name string) int {
	return monthNameToNum[CanonicalMonth(name)]
}

// ParseMonth resolves a period name to its number, erroring on unknown names.
func ParseMonth(name string) (int, error) {
	n := MonthNumber(name)
	if n == 0 {
		return 0, fmt.Errorf("invalid month name %q (valid: %s)",
			name, strings.Join(MonthNames, ", "))
	}
	return n, nil
}

// DaysInMonth returns the day count of a month number for the given year.
func DaysInMonth(monthNum, year int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(monthNum)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
