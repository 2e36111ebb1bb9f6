package core

// convert.go provides cell parsing for raw CSV text.
//
// These functions handle the messy reality of public CSV exports:
//   - Multiple date formats (US, EU, ISO, with or without a time part)
//   - Thousand separators and accounting negatives in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//
// All Parse* functions return ok=false for empty or invalid input so callers
// can turn the cell into a null.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
// Within each group day-first layouts precede month-first ones, so a
// month-first reading only applies when the day-first one is impossible.
var (
	twoDigitYearLayouts = []string{
		"2/1/06", "2-1-06", "2.1.06",
		"1/2/06", "1-2-06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02", "2006.01.02",
		"2-1-2006", "2/1/2006", "2.1.2006",
		"2-1-2006 15:04", "2/1/2006 15:04",
		"1/2/2006", "1-2-2006",
		"1/2/2006 15:04",
		"Jan 2, 2006", "2 Jan 2006", "02-Jan-2006", "2-Jan-2006",
		"20060102",
	}
)

// ParseDate converts a string to a time.Time.
// Day-first layouts are tried before month-first ones because the source
// datasets are published with day-first dates.
func ParseDate(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous year)
	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseNumber converts a string to a float64.
// Handles thousands separators and accounting format (parentheses for negative).
func ParseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseBool converts a string to a bool.
// Accepts various representations: true/false, yes/no, t/f, y/n, 1/0.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(CleanCell(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// ParseValue converts raw cell text into a Value of the requested type.
// Empty or unparseable input yields null; ok is false only when a non-null
// cell could not be converted.
func ParseValue(raw string, t FieldType) (v Value, ok bool) {
	s := CleanCell(raw)
	if nullTokens[s] {
		return Null(), true
	}
	switch t {
	case FieldNumeric:
		if f, good := ParseNumber(s); good {
			return Number(f), true
		}
		return Null(), false
	case FieldDate:
		if d, good := ParseDate(s); good {
			return Date(d), true
		}
		return Null(), false
	case FieldBool:
		if b, good := ParseBool(s); good {
			return Bool(b), true
		}
		return Null(), false
	default:
		return Text(s), true
	}
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// nullTokens are the cell spellings read as missing values.
var nullTokens = map[string]bool{
	"": true, "#N/A": true, "#NA": true, "<NA>": true,
	"N/A": true, "n/a": true, "NA": true,
	"NULL": true, "null": true, "NaN": true, "nan": true, "-NaN": true, "None": true,
}

// IsNullToken reports whether a raw cell spells out a missing value.
func IsNullToken(s string) bool {
	return nullTokens[CleanCell(s)]
}
